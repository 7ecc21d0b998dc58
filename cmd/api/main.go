package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	qrapp "github.com/qr-codes-api/internal/application/qrcode"
	"github.com/qr-codes-api/internal/config"
	"github.com/qr-codes-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/qr-codes-api/internal/infrastructure/jwt"
	s3infra "github.com/qr-codes-api/internal/infrastructure/s3"
	"github.com/qr-codes-api/internal/infrastructure/smtp"
	"github.com/qr-codes-api/internal/infrastructure/sns"
	transporthttp "github.com/qr-codes-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// One S3 client, two buckets: avatars are overwritable, QR content is not.
	s3Client := s3infra.NewClient(cfg)
	avatarStore := s3infra.NewStore(s3Client, cfg, cfg.AvatarsBucket)
	contentStore := s3infra.NewStore(s3Client, cfg, cfg.QRFilesBucket)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	qrCodeRepo := dynamo.NewQRCodeRepo(dynamoClient, cfg.DynamoTables.QRCodes)

	deps := &transporthttp.Deps{
		UserRepo:     userRepo,
		SessionRepo:  dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		QRCodeRepo:   qrCodeRepo,
		AvatarStore:  avatarStore,
		ContentStore: contentStore,
		JWTProvider:  jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// Expiry sweeper runs for the life of the process and stops on shutdown.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweeper := qrapp.NewSweeper(qrapp.SweeperDeps{
		RecordRepo: qrCodeRepo,
		UserRepo:   userRepo,
		Mailer:     mailer,
		SMSSender:  smsSender,
		Interval:   cfg.SweepInterval,
	})
	go sweeper.Run(sweepCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
