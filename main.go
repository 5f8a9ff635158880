package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ronnedahl/video-app-date/archive"
	"github.com/ronnedahl/video-app-date/config"
	"github.com/ronnedahl/video-app-date/database"
	"github.com/ronnedahl/video-app-date/events"
	"github.com/ronnedahl/video-app-date/ffmpeg"
	"github.com/ronnedahl/video-app-date/handlers"
	"github.com/ronnedahl/video-app-date/jobs"
	"github.com/ronnedahl/video-app-date/mirror"
	"github.com/ronnedahl/video-app-date/originals"
	"github.com/ronnedahl/video-app-date/transcodes"
)

var (
	port    int
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:          "video-app",
	Short:        "Upload, compress and serve videos",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.SetDataDir(dataDir)
		}
		return serve(cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("GitSHA: %s\nBuildDate: %s\n", config.GetGitSHA(), config.GetBuildDate())
	},
}

func init() {
	serveCmd.Flags().IntVar(&port, "port", config.DefaultPort, "listen port (overrides VIDEO_APP_PORT)")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "data", "data directory (overrides VIDEO_APP_DATA_DIR)")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cfg config.Config) error {
	if err := initLogger(cfg.LogLevel); err != nil {
		log.Warnln(err)
	}

	log.Infof("GitSHA: %s", config.GetGitSHA())
	log.Infof("BuildDate: %s", config.GetBuildDate())

	database.Init(log)
	events.Init(log)
	ffmpeg.Init(log)
	handlers.Init(log)
	mirror.Init(log)
	originals.Init(log)
	transcodes.Init(log)

	ffmpeg.SetBinaries(cfg.FfmpegPath, cfg.FfprobePath)

	for _, dir := range cfg.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	db, err := database.Open(filepath.Join(cfg.ConfigDir, "archive.db"), &archive.ArchivedJob{})
	if err != nil {
		return err
	}
	defer database.Close(db)

	history := archive.New(db)
	listeners, closeListeners, err := makeListeners(cfg, history)
	if err != nil {
		return err
	}
	defer closeListeners()

	registry := jobs.NewRegistry()
	videos := &handlers.Videos{
		Registry:      registry,
		Compressor:    transcodes.NewCompressor(ffmpeg.NewEncoder(cfg.TempDir), registry),
		Staging:       originals.NewStaging(cfg.UploadDir, cfg.MaxUploadBytes, cfg.AllowedExtensions),
		CompressedDir: cfg.CompressedDir,
		DataDir:       cfg.DataDir,
		Options:       cfg.Compression,
		Listeners:     listeners,
		Archive:       history,
	}

	s := &sweeper{registry: registry, purge: videos.Purge, db: db, ttl: cfg.JobTTL}
	go s.PeriodicCleanup(cfg.SweepInterval)

	e := handlers.NewServer(videos)
	go func() {
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalln(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Infoln("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorln(err)
	}
	videos.Wait()
	return nil
}

// makeListeners always archives; kafka and minio are added when configured.
func makeListeners(cfg config.Config, history *archive.Store) ([]jobs.Listener, func(), error) {
	listeners := []jobs.Listener{history}
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Errorln(err)
			}
		}
	}

	if cfg.Kafka.Enabled() {
		publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		listeners = append(listeners, publisher)
		closers = append(closers, publisher.Close)
		log.Infof("publishing job events to %s on %v", cfg.Kafka.Topic, cfg.Kafka.Brokers)
	}
	if cfg.Minio.Enabled() {
		m, err := mirror.New(mirror.Options{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			Bucket:    cfg.Minio.Bucket,
		}, cfg.CompressedDir)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		listeners = append(listeners, m)
		log.Infof("mirroring compressed videos to %s/%s", cfg.Minio.Endpoint, cfg.Minio.Bucket)
	}

	return listeners, closeAll, nil
}
