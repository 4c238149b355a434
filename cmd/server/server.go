package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"audioscribe/internal/api"
	"audioscribe/internal/audio"
	"audioscribe/internal/config"
	"audioscribe/internal/db"
	"audioscribe/internal/logger"
	"audioscribe/internal/pipeline"
	"audioscribe/internal/repository"
	"audioscribe/internal/storage"
	"audioscribe/internal/stt"
)

const shutdownTimeout = 10 * time.Second

// run wires every component from cfg and serves until ctx is canceled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Log)

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.WithFields(logrus.Fields{
		"driver": cfg.Database.Driver,
	}).Info("opening metadata database")
	conn, err := db.Open(ctx, cfg.Database, log.Component("db"))
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := repository.Migrate(ctx, conn); err != nil {
		return err
	}

	blobs, err := openBlobStore(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	scratch, err := storage.NewScratch(cfg.UploadFolder)
	if err != nil {
		return err
	}

	provider, err := stt.CreateProvider(ctx, cfg.STT, log.Component("stt"))
	if err != nil {
		return fmt.Errorf("failed to create STT provider: %w", err)
	}
	log.WithField("provider", provider.Name()).Info("STT provider initialized")

	p := pipeline.New(
		scratch,
		audio.NewNormalizer(audio.NewFFmpegCodec(cfg.Audio), log.Component("audio")),
		stt.NewClient(provider, log.Component("stt")),
		storage.NewGateway(blobs, repository.NewSQLRepository(conn, cfg.Database.Driver), log.Component("storage")),
		cfg.ProcessingTimeout,
		log.Component("pipeline"),
	)
	router := api.NewRouter(api.NewHandler(p, log.Component("http")), cfg.MaxContentLength)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":        cfg.Port,
			"max_upload":  cfg.MaxContentLength,
			"timeout":     cfg.ProcessingTimeout.String(),
			"blob_driver": cfg.Blob.Backend,
		}).Info("audioscribe listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func openBlobStore(ctx context.Context, cfg config.BlobConfig) (storage.BlobStore, error) {
	if cfg.Backend == "s3" {
		s3, err := storage.NewS3BlobStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s3, nil
	}
	local, err := storage.NewLocalBlobStore(cfg.Root)
	if err != nil {
		return nil, err
	}
	return local, nil
}
