package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	uberzap "go.uber.org/zap"
	"google.golang.org/api/option"

	"sos-service/config"
	"sos-service/internal/alert"
	"sos-service/internal/api"
	"sos-service/internal/channel"
	"sos-service/internal/contact"
	"sos-service/internal/livetrack"
	"sos-service/internal/receipt"
	"sos-service/pkg/consul"
	"sos-service/pkg/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.LoadConfig()

	logger, err := zap.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	consulConn := consul.NewConsulConn(logger, cfg)
	consulClient := consulConn.Connect()
	defer consulConn.Deregister()

	mongoClient, err := connectToMongoDB(cfg.MongoURI)
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Fatal(err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB)

	pointRepository := livetrack.NewPointRepository(db.Collection("live_track_points"))
	sessionRepository := livetrack.NewSessionRepository(db.Collection("live_sessions"))
	liveTrackStore := livetrack.NewStore(cfg.TrackBufferMax)
	liveTrackService := livetrack.NewLiveTrackService(
		liveTrackStore, pointRepository, sessionRepository, logger, cfg.TrackingBase(), cfg.StaleAfter)
	liveTrackHandler := livetrack.NewLiveTrackHandler(liveTrackService)

	receiptRepository := receipt.NewReceiptRepository(
		db.Collection("wa_receipts"), db.Collection("sms_receipts"))
	receiptService := receipt.NewReceiptService(receiptRepository, logger)
	receiptHandler := receipt.NewReceiptHandler(receiptService)

	contactService := contact.NewContactService(consulClient, cfg.ContactServiceName)

	alertRepository := alert.NewAlertRepository(
		db.Collection("sos_audit"), db.Collection("metrics_events"))
	alertService := alert.NewAlertService(
		buildSenders(cfg, logger), contactService, liveTrackService, alertRepository, logger, cfg)
	alertHandler := alert.NewAlertHandler(alertService, alertRepository)

	gin.SetMode(ginMode(cfg.RunMode))
	router := gin.Default()
	api.RegisterRouters(router, alertHandler, liveTrackHandler, receiptHandler, cfg.JWTSecret)

	// Reconciliation sweep: flush the in-memory session index to the
	// durable mirror once a minute. It never expires or stops sessions.
	c := cron.New(cron.WithSeconds())
	_, err = c.AddFunc("0 */1 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := liveTrackService.SyncMirror(ctx); err != nil {
			logger.Warnf("Session mirror sync incomplete: %v", err)
		}
	})
	if err != nil {
		logger.Fatalf("AddFunc error: %v", err)
	}

	c.Start()
	defer c.Stop()

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Error shutting down server: %v", err)
	}
	logger.Info("Server stopped")
}

// buildSenders assembles the channel adapters the configuration
// enables. A channel with missing credentials is simply absent; the
// trigger path treats it as having no recipients.
func buildSenders(cfg *config.Config, logger *uberzap.SugaredLogger) []channel.Sender {

	providerClient := &http.Client{Timeout: cfg.ChannelTimeout}
	senders := make([]channel.Sender, 0, 5)

	if cfg.EmailEnabled && cfg.SMTPHost != "" && cfg.EmailFrom != "" {
		senders = append(senders, channel.NewEmailSender(channel.EmailConfig{
			Enabled:  true,
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.EmailFrom,
			FromName: cfg.EmailFromName,
		}, logger))
	}

	if cfg.ZenviaAPIToken != "" {
		zenviaCfg := channel.ZenviaConfig{
			APIToken:    cfg.ZenviaAPIToken,
			BaseURL:     cfg.ZenviaBaseURL,
			CallbackURL: cfg.ZenviaCallbackURL,
			SMSFrom:     cfg.ZenviaSMSFrom,
			WAFrom:      cfg.ZenviaWAFrom,
			WATemplate:  cfg.ZenviaWATemplate,
			WASimple:    cfg.ZenviaWASimple,
		}
		senders = append(senders,
			channel.NewSMSSender(zenviaCfg, providerClient, logger),
			channel.NewWhatsAppSender(zenviaCfg, providerClient, logger))
	}

	if cfg.TelegramEnabled && cfg.TelegramToken != "" {
		senders = append(senders, channel.NewTelegramSender(cfg.TelegramToken, providerClient, logger))
	}

	if cfg.FirebaseEnabled && cfg.FirebaseCredentialsFile != "" {
		app, err := firebase.NewApp(context.Background(), nil,
			option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
		if err != nil {
			logger.Warnf("Firebase init failed, push channel disabled: %v", err)
		} else {
			senders = append(senders, channel.NewPushSender(app, logger))
		}
	}

	return senders
}

func ginMode(runMode string) string {
	switch runMode {
	case gin.DebugMode, gin.TestMode:
		return runMode
	default:
		return gin.ReleaseMode
	}
}

func connectToMongoDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Println("Failed to connect to MongoDB")
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Println("Failed to ping MongoDB")
		return nil, err
	}

	log.Println("Successfully connected to MongoDB")
	return client, nil
}
