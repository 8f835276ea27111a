package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	sendCampaignID int
	sendUserID     int
	sendTo         string
	sendCredential string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one hydrated test message for an email campaign",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		campaign, err := a.dispatcher.FindOwnedCampaign(ctx, sendCampaignID, sendUserID)
		if err != nil {
			return err
		}

		credential := sendCredential
		if credential == "" {
			credential = campaign.CredentialName()
		}

		messageID, err := a.dispatcher.Dispatch(ctx, campaign.ID, sendTo, credential)
		if err != nil {
			log.Error("Send failed", "campaign", campaign.ID, "to", sendTo, "error", err)
			return err
		}

		log.Info("Message sent", "campaign", campaign.ID, "to", sendTo, "message_id", messageID)
		fmt.Println(messageID)
		return nil
	},
}

func init() {
	sendCmd.Flags().IntVar(&sendCampaignID, "campaign", 0, "campaign id")
	sendCmd.Flags().IntVar(&sendUserID, "user", 0, "owner user id")
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient email address")
	sendCmd.Flags().StringVar(&sendCredential, "credential", "", "credential name (defaults to the campaign's)")
	_ = sendCmd.MarkFlagRequired("campaign")
	_ = sendCmd.MarkFlagRequired("user")
	_ = sendCmd.MarkFlagRequired("to")
}
