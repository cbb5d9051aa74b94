package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognicore/revtopics/internal/logger"
	"github.com/cognicore/revtopics/pkg/revtopics"
	"github.com/cognicore/revtopics/pkg/revtopics/config"
	"github.com/cognicore/revtopics/pkg/revtopics/internalerr"
	"github.com/cognicore/revtopics/pkg/revtopics/store"
	"github.com/cognicore/revtopics/pkg/revtopics/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "Optional: YAML config file (default $TOPIC_CONFIG)")
		envFile    = flag.String("env", ".env", "Optional: .env file with TOPIC_* overrides")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := config.Loader{ConfigPath: *configPath, EnvFile: *envFile}
	components, err := loader.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg := components.Config

	var st store.Store
	if cfg.Archive.Path != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.Archive.Path)
		if err != nil {
			log.Fatalf("open run archive %s: %v", cfg.Archive.Path, err)
		}
		defer st.Close()
	}

	pipeline := revtopics.New(revtopics.Options{
		Config:    cfg,
		Tokenizer: components.Tokenizer,
		Store:     st,
		Logger:    logger.New("topics"),
	})

	if _, err := pipeline.Run(ctx); err != nil {
		switch {
		case errors.Is(err, internalerr.ErrEmptyVocabulary):
			log.Printf("[error] %v", err)
		case errors.Is(err, internalerr.ErrConfiguration), errors.Is(err, internalerr.ErrInvalidTopicCount):
			log.Printf("[error] configuration: %v", err)
		default:
			log.Printf("[error] topic modeling failed: %v", err)
		}
		if st != nil {
			st.Close()
		}
		os.Exit(1)
	}
}
