package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"linkgarden/internal/config"
	"linkgarden/internal/domain"
	"linkgarden/internal/downloader"
	"linkgarden/internal/filter"
	"linkgarden/internal/ingest"
	"linkgarden/internal/notify"
	"linkgarden/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	log.WithFields(logrus.Fields{
		"badgerdb_path": cfg.BadgerDBPath,
		"download_dir":  cfg.DownloadDir,
	}).Info("Configuration loaded")

	store, err := storage.OpenBadger(cfg.BadgerDBPath, log)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("Error closing database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	links := store.Links()
	filters := store.Filters()

	classifier, err := filter.NewService(ctx, filters, links, log)
	if err != nil {
		log.Fatalf("Failed to initialize classification engine: %v", err)
	}

	// Any command-line arguments are link files to ingest before the run.
	ingester := ingest.NewService(links, log)
	for _, path := range os.Args[1:] {
		if _, err := ingester.AddFromFile(ctx, path); err != nil {
			log.WithError(err).WithField("path", path).Error("Failed to ingest link file")
		}
	}

	if _, err := classifier.ClassifyPending(ctx); err != nil {
		log.WithError(err).Error("Classification pass failed")
	}

	cwd, _ := os.Getwd()
	svc := downloader.NewService(links, downloader.ToolConfig{
		Command:     cfg.GalleryDLCommand,
		DefaultArgs: cfg.GalleryDLArgs,
		OutputDir:   cfg.DownloadDir,
		ConfigFile:  cfg.GalleryDLConfigFile,
		BaseDir:     cwd,
	}, downloader.Limits{
		MaxImagesPerLink: cfg.MaxImagesPerLink,
		MaxTimePerLink:   time.Duration(cfg.MaxTimePerLinkSeconds) * time.Second,
		MaxFileSizeMB:    cfg.MaxFileSizeMB,
	}, log)

	// Headless limit policy. An interactive front end would register a
	// resolver that asks the user instead.
	continueOnLimit := cfg.LimitPolicy == "continue"
	svc.SetResolver(func(link *domain.Link, kind downloader.LimitKind) bool {
		return continueOnLimit
	})

	svc.OnProgress(func(p downloader.Progress) {
		log.WithFields(logrus.Fields{
			"status":    p.Status,
			"completed": p.CompletedLinks,
			"failed":    p.FailedLinks,
			"total":     p.TotalLinks,
			"operation": p.CurrentOperation,
		}).Debug("Progress")
	})
	svc.OnCompletion(func(linkID string, success bool) {
		log.WithFields(logrus.Fields{"link_id": linkID, "success": success}).Info("Link finished")
	})

	var notifier *notify.TelegramNotifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		notifier, err = notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, links, log)
		if err != nil {
			log.WithError(err).Error("Failed to initialize Telegram notifier, continuing without it")
		} else {
			notifier.Attach(ctx, svc)
		}
	}

	if err := svc.Start(ctx, nil); err != nil {
		if errors.Is(err, downloader.ErrNoLinks) {
			log.Info("Nothing to download")
			return
		}
		log.Fatalf("Failed to start downloads: %v", err)
	}

	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down, stopping downloads...")
		svc.Stop()
		svc.Wait()
	case <-done:
	}

	final := svc.Progress()
	log.WithFields(logrus.Fields{
		"completed": final.CompletedLinks,
		"failed":    final.FailedLinks,
	}).Info("Download batch finished")

	if notifier != nil {
		notifier.NotifyBatchDone(context.Background(), final.CompletedLinks, final.FailedLinks)
	}
}
