package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"swap-service/internal/config"
	"swap-service/internal/db"
	"swap-service/internal/grpcserver"
	"swap-service/internal/handlers"
	"swap-service/internal/jobs"
	"swap-service/internal/mailer"
	"swap-service/internal/middleware"
	"swap-service/internal/observability"
	"swap-service/internal/rabbitmq"
	"swap-service/internal/realtime"
	"swap-service/internal/repositories"
	"swap-service/internal/services"
	"swap-service/internal/storage"
	"swap-service/internal/telemetry"
)

const serviceName = "swap-service"

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	if cfg.JWTSecret == "" {
		log.Fatalf("JWT_SECRET is required")
	}

	store, err := newObjectStore(cfg)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, "audit.swap", serviceName, cfg.Environment)

	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	directoryRepo := repositories.NewDirectoryRepo(database)
	attachmentRepo := repositories.NewAttachmentRepo(database)
	proposalRepo := repositories.NewProposalRepo(database)
	receiptRepo := repositories.NewReadReceiptRepo(database)

	hub := realtime.NewHub()
	var broadcaster realtime.Broadcaster = realtime.NewLocalBroadcaster(hub)
	if cfg.RedisURL != "" {
		client, err := realtime.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer client.Close()
		redisBroadcaster := realtime.NewRedisBroadcaster(client, hub)
		go func() {
			if err := redisBroadcaster.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("realtime fan-out stopped: %v", err)
			}
		}()
		broadcaster = redisBroadcaster
	}
	notifier := realtime.NewNotifier(broadcaster)

	attachmentService := services.NewAttachmentService(attachmentRepo, conversationRepo, store, cfg.MaxUploadBytes)
	messagingService := services.NewMessagingService(conversationRepo, messageRepo, directoryRepo, attachmentService, notifier, publisher)
	proposalService := services.NewProposalService(proposalRepo, directoryRepo, messagingService, audit, publisher)
	sender, err := mailer.NewSender(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	if err != nil {
		log.Fatalf("failed to init mailer: %v", err)
	}
	unreadService := services.NewUnreadService(receiptRepo, conversationRepo, sender, cfg.AppBaseURL)

	messageHandler := handlers.NewMessageHandler(messagingService, unreadService)
	proposalHandler := handlers.NewProposalHandler(proposalService)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentService, cfg.MaxUploadBytes)
	cronHandler := handlers.NewCronHandler(unreadService)

	verifier := middleware.NewTokenVerifier(cfg.JWTSecret)
	wsHandler := realtime.NewWebSocketHandler(hub, notifier, conversationRepo, verifier)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handlers.RequestID())
	router.Use(observability.AccessLog("/healthz", "/metrics"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.StorageDriver != "cloudinary" {
		router.Static("/uploads", cfg.StorageDir)
	}

	router.GET("/ws", wsHandler.Handle)
	router.GET("/cron/sendUnread", middleware.SharedSecret(cfg.CronSecret), cronHandler.SendUnread)

	authed := router.Group("/", middleware.AuthMiddleware(verifier))
	authed.POST("/conversations/ensure", messageHandler.EnsureConversation)
	authed.GET("/conversations", messageHandler.ListConversations)
	authed.POST("/messages/send", messageHandler.SendMessage)
	authed.GET("/messages/list", messageHandler.ListMessages)
	authed.POST("/messages/read", messageHandler.MarkRead)
	authed.GET("/messages/unread", messageHandler.UnreadCount)
	authed.POST("/proposals/create", proposalHandler.CreateProposal)
	authed.POST("/proposals/respond", proposalHandler.Respond)
	authed.GET("/proposals/:id", proposalHandler.Get)
	authed.GET("/proposals/:id/status", proposalHandler.Status)
	authed.POST("/attachments/upload", attachmentHandler.Upload)

	handlers.RegisterDebugRoutes(router, audit, publisher, cfg.Environment != "production")

	if cfg.RedisURL != "" {
		runner, err := jobs.NewRunner(jobs.Config{
			RedisURL:         cfg.RedisURL,
			SweepCron:        cfg.SweepCron,
			AttachmentGCCron: cfg.AttachmentGCCron,
			AttachmentTTL:    cfg.AttachmentTTL,
		}, unreadService, attachmentService)
		if err != nil {
			log.Fatalf("failed to configure jobs: %v", err)
		}
		go func() {
			if err := runner.Run(ctx); err != nil {
				log.Printf("jobs stopped: %v", err)
			}
		}()
	} else {
		log.Printf("jobs disabled: REDIS_URL not set, use /cron/sendUnread")
	}

	grpcSrv := grpcserver.New(database)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatalf("failed to listen grpc: %v", err)
	}
	go grpcSrv.Watch(ctx, 15*time.Second)
	go func() {
		log.Printf("grpc listening port=%s", cfg.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Printf("grpc server error: %v", err)
		}
	}()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("http listening port=%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	grpcSrv.Stop()
}

func newObjectStore(cfg config.Config) (storage.ObjectStore, error) {
	if cfg.StorageDriver == "cloudinary" {
		return storage.NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	}
	return storage.NewLocalStore(cfg.StorageDir, cfg.StorageBaseURL)
}
