package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"kcbxt/internal/api"
	"kcbxt/internal/config"
	"kcbxt/internal/fetch"
	"kcbxt/internal/gallery"
	"kcbxt/internal/ocr"
	"kcbxt/internal/schedule"
	"kcbxt/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	scheduleStore, err := schedule.NewFileStore(filepath.Join(cfg.Data.Dir, "schedules"), logger)
	if err != nil {
		log.Fatalf("init schedule store: %v", err)
	}

	objectStore, err := newObjectStorage(cfg)
	if err != nil {
		log.Fatalf("init object storage: %v", err)
	}
	log.Printf("object storage ready, backend=%s", cfg.Storage.Backend)

	galleryManager, err := gallery.NewManager(objectStore, filepath.Join(cfg.Data.Dir, "galleries.json"), cfg.Gallery)
	if err != nil {
		log.Fatalf("init gallery manager: %v", err)
	}

	ocrClient := ocr.NewClient(cfg.OCR.APIURL, cfg.OCR.APIKey)
	if !ocrClient.Configured() {
		logger.Warn("ocr api url not configured, image schedules are disabled")
	}

	scheduleHandler := api.NewScheduleHandler(scheduleStore, fetch.NewFetcher(), ocrClient, logger, cfg.Clamd.Addr)
	galleryHandler := api.NewGalleryHandler(galleryManager, logger)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, scheduleHandler, galleryHandler, cfg.API.InternalSecret)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}

func newObjectStorage(cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Backend {
	case "minio":
		return storage.NewMinIO(cfg.MinIO)
	default:
		return storage.NewLocal(cfg.Storage.LocalDir)
	}
}
