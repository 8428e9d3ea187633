package main

import (
	"log"
	"net/http"

	"mediaconv/internal/application/convert"
	"mediaconv/internal/config"
	"mediaconv/internal/infrastructure/ffmpeg"
	"mediaconv/internal/infrastructure/snapshot"
	"mediaconv/internal/infrastructure/youtube"
	httptransport "mediaconv/internal/transport/http"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := log.Default()

	dirs := convert.Dirs{
		Uploads: cfg.UploadsDir(),
		Work:    cfg.WorkDir(),
		Output:  cfg.OutputDir(),
	}
	if err := dirs.EnsureDirs(); err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	store := snapshot.NewStore(cfg.JobsDir(), logger)
	if err := store.Load(); err != nil {
		log.Fatalf("snapshot load failed: %v", err)
	}

	service := convert.NewService(store, youtube.NewFetcher(), ffmpeg.NewEncoder(), logger, dirs, cfg.MaxActiveJobs)

	if cfg.RetentionEnabled {
		sweeper := convert.NewSweeper(store, logger, cfg.Retention, cfg.ErrorRetention)
		if err := sweeper.Start(cfg.SweepInterval); err != nil {
			log.Fatalf("sweeper init failed: %v", err)
		}
		defer sweeper.Stop()
	}

	handler := httptransport.NewHandler(service, cfg.MaxUploadBytes)
	router := httptransport.NewRouter(handler)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	})

	logger.Printf("Server started on %s", cfg.ServerAddr)
	log.Fatal(http.ListenAndServe(cfg.ServerAddr, c.Handler(router)))
}
