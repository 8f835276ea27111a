package main

import (
	"fmt"
	"os"

	"campaign-messaging-api/utils"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	uploadCampaignID int
	uploadFile       string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Replace a campaign's recipients with the rows of a CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if uploadCampaignID <= 0 {
			return fmt.Errorf("--campaign must be a positive id")
		}

		f, err := os.Open(uploadFile)
		if err != nil {
			return err
		}
		defer f.Close()

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		campaign, err := a.campaigns.FindByID(ctx, uploadCampaignID)
		if err != nil {
			return err
		}

		log.Info("Uploading recipients", "campaign", campaign.ID, "file", uploadFile, "protected", campaign.Protect)
		result, err := a.pipeline.Upload(ctx, campaign, utils.NewCSVChunkReader(f, a.settings.Upload.ChunkSize))
		if err != nil {
			log.Error("Upload failed", "campaign", campaign.ID, "error", err)
			return err
		}

		fmt.Printf("Upload %s: %d rows in %d chunks (campaign %d)\n", result.UploadID, result.Rows, result.Chunks, result.CampaignID)
		return nil
	},
}

func init() {
	uploadCmd.Flags().IntVar(&uploadCampaignID, "campaign", 0, "campaign id")
	uploadCmd.Flags().StringVarP(&uploadFile, "file", "f", "", "CSV file with a header row")
	_ = uploadCmd.MarkFlagRequired("campaign")
	_ = uploadCmd.MarkFlagRequired("file")
}
