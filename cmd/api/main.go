// cmd/api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/conejito/coach/internal/coach"
	"github.com/conejito/coach/internal/config"
	"github.com/conejito/coach/internal/http/routes"
	"github.com/conejito/coach/internal/llm"
	"github.com/conejito/coach/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Printf("starting api on :%s", cfg.Port)

	// Store: postgres when configured, per-athlete files otherwise
	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}

	// Sessions hold the selected model and Gemini credential
	sess := scs.New()
	sess.Lifetime = 12 * time.Hour
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = false

	// Completion dispatcher
	composer := coach.NewComposer(st, coach.WithComposerLogger(logger))
	dispatcher := coach.NewDispatcher(coach.DispatcherOptions{
		Composer: composer,
		Ollama:   llm.NewOllama(llm.WithOllamaURL(cfg.OllamaURL)),
		MLX:      llm.NewMLX(llm.ExecRuntime{Command: cfg.MLXCommand}),
		Logger:   logger,
	})

	// Background sync queue
	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer queue.Close()

	// Router / server
	s := routes.New(routes.ServerOptions{
		Sess:       sess,
		Store:      st,
		Dispatcher: dispatcher,
		Queue:      queue,
		Cfg:        cfg,
		Logger:     logger,
	})
	h := hlog.NewHandler(logger)(s.Router)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: sess.LoadAndSave(h)}
	log.Fatal(srv.ListenAndServe())
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.HasPostgres() {
		return store.OpenPG(context.Background(), cfg.DatabaseURL)
	}
	return store.NewFileStore(cfg.DataDir)
}
