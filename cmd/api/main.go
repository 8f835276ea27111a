package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campaign-messaging-api/config"
	"campaign-messaging-api/controllers"
	"campaign-messaging-api/middleware"
	"campaign-messaging-api/routes"
	"campaign-messaging-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	settings, err := config.Load()
	if err != nil {
		log.Fatal("❌ Invalid configuration:", err)
	}
	if settings.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET is required")
	}

	// Initialize database
	config.InitDB(settings)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := config.NewRedisClient(rootCtx, settings.Redis)
	if err != nil {
		log.Fatal("❌ Failed to connect to redis:", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	lock, err := services.NewUploadLock(settings.Upload, config.DB, rdb)
	if err != nil {
		log.Fatal("❌ Failed to configure upload lock:", err)
	}

	credentials := services.NewCredentialRegistry()
	credentials.Register(settings.DefaultCredential, config.NewSMTPMailer(settings.SMTP))

	campaigns := services.NewCampaignStore(config.DB)
	templates := services.NewTemplateStore(config.DB)
	messages := services.NewMessageStore(config.DB, settings.Upload.BatchSize)
	protected := services.NewProtectedMessageStore(config.DB, settings.Protected.BaseURL, settings.Protected.HashCost, settings.Upload.BatchSize)
	layout := services.NewEmailLayout(settings.Email.LayoutEnabled, settings.Email.LogoURLs, settings.Email.FooterHTML)

	handlers := routes.Handlers{
		Campaigns: &controllers.CampaignController{
			Campaigns:  campaigns,
			Pipeline:   services.NewUploadPipeline(services.NewGormTransactor(config.DB), lock, templates, messages, protected),
			Dispatcher: services.NewDispatcher(campaigns, templates, messages, credentials, settings.DefaultCredential, layout),
			Hydrator:   services.NewTemplateHydrator(templates, messages),
			Upload:     settings.Upload,
		},
		Protected: &controllers.ProtectedController{Store: protected},
		JWTSecret: settings.JWTSecret,
	}

	// Set Gin mode
	if settings.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add logging middleware
	router.Use(gin.LoggerWithWriter(config.LogWriter))

	// Add recovery middleware
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	})

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware(settings.AllowedOrigins))

	// Multipart bodies above this spill to temp files.
	router.MaxMultipartMemory = 8 << 20

	// Setup routes
	routes.SetupRoutes(router, handlers)

	srv := &http.Server{
		Addr:              ":" + settings.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on port %s", settings.ServerPort)
		log.Printf("📦 Upload lock backend: %s", settings.Upload.LockBackend)
		log.Printf("✉️ Default credential: %s", settings.DefaultCredential)
		if settings.GinMode == "release" {
			log.Printf("🏭 Running in production mode")
		} else {
			log.Printf("🔧 Running in development mode")
		}

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
