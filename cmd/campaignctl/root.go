package main

import (
	"context"
	"fmt"

	"campaign-messaging-api/config"
	"campaign-messaging-api/services"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	envFile string
	verbose bool
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "campaignctl",
	Short: "Operate campaign uploads and test sends",
	Long: `campaignctl drives the same upload pipeline and dispatcher as the API.

Example:
  campaignctl upload --campaign 12 --file recipients.csv
  campaignctl send --campaign 12 --user 3 --to a@x.com`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(sendCmd)
}

func initLogging() {
	switch {
	case debug:
		log.SetLevel(log.DebugLevel)
	case verbose:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

// app holds the services wired from the environment for one command run.
type app struct {
	settings   config.Settings
	campaigns  services.CampaignStore
	pipeline   *services.UploadPipeline
	dispatcher *services.Dispatcher
	redis      *redis.Client
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func newApp(ctx context.Context) (*app, error) {
	if err := godotenv.Load(envFile); err != nil {
		log.Debug("No .env file loaded", "path", envFile, "error", err)
	}

	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.InitDB(settings)

	rdb, err := config.NewRedisClient(ctx, settings.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	lock, err := services.NewUploadLock(settings.Upload, config.DB, rdb)
	if err != nil {
		return nil, err
	}
	log.Debug("Upload lock configured", "backend", settings.Upload.LockBackend)

	credentials := services.NewCredentialRegistry()
	credentials.Register(settings.DefaultCredential, config.NewSMTPMailer(settings.SMTP))

	campaigns := services.NewCampaignStore(config.DB)
	templates := services.NewTemplateStore(config.DB)
	messages := services.NewMessageStore(config.DB, settings.Upload.BatchSize)
	protected := services.NewProtectedMessageStore(config.DB, settings.Protected.BaseURL, settings.Protected.HashCost, settings.Upload.BatchSize)
	layout := services.NewEmailLayout(settings.Email.LayoutEnabled, settings.Email.LogoURLs, settings.Email.FooterHTML)

	return &app{
		settings:   settings,
		campaigns:  campaigns,
		pipeline:   services.NewUploadPipeline(services.NewGormTransactor(config.DB), lock, templates, messages, protected),
		dispatcher: services.NewDispatcher(campaigns, templates, messages, credentials, settings.DefaultCredential, layout),
		redis:      rdb,
	}, nil
}
