// README: serve: wires config, persistence, chat, OCR and maps into the orchestrator and HTTP server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dishbee/internal/chat"
	"dishbee/internal/config"
	httptransport "dishbee/internal/http"
	"dishbee/internal/http/handlers"
	"dishbee/internal/infra"
	"dishbee/internal/ingress"
	"dishbee/internal/kv"
	"dishbee/internal/lock"
	"dishbee/internal/maps"
	"dishbee/internal/metrics"
	"dishbee/internal/modules/dispatch"
	"dishbee/internal/modules/ocr"
	"dishbee/internal/modules/order"
	"dishbee/internal/render"
	"dishbee/internal/types"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Run the webhook server and the retention ticker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := infra.NewLogger(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	reporter, err := infra.NewReporter(cfg.Sentry.DSN)
	if err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	defer reporter.Flush()

	m := metrics.New()

	backend, err := kv.Open(ctx, cfg.Persistence.URL, cfg.Persistence.Password)
	if err != nil {
		return err
	}
	defer backend.Close()

	store := order.NewStore(backend, cfg.Persistence.TTL, cfg.Location, log)
	n, err := store.Load(ctx)
	if err != nil {
		return err
	}
	m.SetOpenOrders(store.OpenCount())
	log.Info("orders loaded", zap.Int("count", n), zap.Int("open", store.OpenCount()))

	locker, err := newLocker(cfg.Lock.Driver, backend)
	if err != nil {
		return err
	}

	opts := chat.DefaultTelegramOptions()
	opts.PoolSize = cfg.Chat.PoolSize
	if cfg.Chat.RatePerSec > 0 {
		opts.RatePerSec = cfg.Chat.RatePerSec
	}
	gw := chat.NewTelegram(infra.NewBot(cfg.Chat.Token, cfg.Chat.PoolSize), opts, log, m)

	var parser handlers.PhotoParser
	if cfg.OCR.GeminiKey != "" {
		engine, err := ocr.NewGeminiEngine(ctx, cfg.OCR.GeminiKey)
		if err != nil {
			return fmt.Errorf("ocr engine: %w", err)
		}
		defer engine.Close()
		parser = ocr.NewService(engine, log.Named("ocr"), m)
	} else {
		log.Warn("GEMINI_API_KEY not set; photo intake disabled")
	}

	var nav dispatch.Navigator
	if cfg.Maps.APIKey != "" {
		n, err := maps.NewNavigator(cfg.Maps.APIKey)
		if err != nil {
			return fmt.Errorf("maps: %w", err)
		}
		nav = n
	}

	clock := types.SystemClock{Loc: cfg.Location}
	orch := dispatch.New(dispatch.Deps{
		Gateway:        gw,
		Store:          store,
		Registry:       cfg.Registry,
		Renderer:       render.New(cfg.Chat.Brand, cfg.Registry, cfg.Location),
		Clock:          clock,
		Locker:         locker,
		Logger:         log.Named("dispatch"),
		Metrics:        m,
		Reporter:       reporter,
		Navigator:      nav,
		DispatchChatID: cfg.Chat.DispatchChatID,
		RetentionDays:  cfg.Retention.Days,
	})

	gin.SetMode(gin.ReleaseMode)
	srv := httptransport.NewServer(httptransport.ServerDeps{
		Orchestrator:  orch,
		Decoder:       ingress.NewDecoder(cfg.Registry, cfg.Location, cfg.Chat.DispatchChatID),
		OCR:           parser,
		Orders:        store,
		Gateway:       gw,
		Metrics:       m,
		Reporter:      reporter,
		Logger:        log.Named("http"),
		Clock:         clock,
		BotToken:      cfg.Chat.Token,
		WebhookSecret: cfg.Webhook.Secret,
		Sentry:        cfg.Sentry.DSN != "",
	})
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go runRetention(ctx, orch, cfg.Retention.Interval)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLocker(driver string, backend kv.Store) (lock.Locker, error) {
	switch driver {
	case "redis":
		rs, ok := backend.(*kv.RedisStore)
		if !ok {
			return nil, errors.New("LOCK_DRIVER=redis needs a redis PERSISTENCE_URL")
		}
		// in-process waiters queue locally before contending in redis
		return lock.Chain{lock.NewLocal(), lock.NewRedis(rs.Client())}, nil
	default:
		return lock.NewLocal(), nil
	}
}

func runRetention(ctx context.Context, orch *dispatch.Orchestrator, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			orch.Apply(ctx, dispatch.RetentionTick{Now: now})
		}
	}
}
