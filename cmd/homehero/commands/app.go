package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/benvon/homehero/internal/config"
	"github.com/benvon/homehero/internal/logger"
	"github.com/benvon/homehero/internal/pages"
	"github.com/benvon/homehero/internal/preferences"
	"github.com/benvon/homehero/internal/render"
	"github.com/benvon/homehero/internal/services/backend"
	"github.com/benvon/homehero/internal/services/identity"
	"github.com/benvon/homehero/internal/session"
	"github.com/benvon/homehero/internal/storage"
	"github.com/benvon/homehero/internal/telemetry"
)

// readyTimeout bounds the wait for the restored sign-in state.
const readyTimeout = 10 * time.Second

// app is one wired client for the lifetime of a command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	tp       *sdktrace.TracerProvider
	store    storage.Store
	identity *identity.Client
	session  *session.Manager
	pages    *pages.Pages
	themes   *preferences.Themes
	out      *render.Printer
}

func openApp(ctx context.Context, g *globalFlags, w io.Writer) (_ *app, err error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	zapLogger, err := logger.New(cfg.LogFormat, cfg.DebugMode || g.debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, logger: zapLogger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else if tp, tpErr := telemetry.InitTracer(ctx, "homehero", cfg.OTELEndpoint); tpErr != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(tpErr))
		} else {
			a.tp = tp
		}
	}

	a.store, err = storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	// Share the limiter budget across processes when state lives in Redis
	var rdb *redis.Client
	if rs, ok := a.store.(*storage.RedisStore); ok {
		rdb = rs.Client()
	}
	lim, err := backend.NewRateLimiter(cfg.BackendRate, rdb)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	idCfg := identity.Config{
		APIKey:         cfg.FirebaseAPIKey,
		ProjectID:      cfg.FirebaseProjectID,
		IdentityURL:    cfg.IdentityURL,
		SecureTokenURL: cfg.SecureTokenURL,
		JWKSURL:        cfg.JWKSURL,
		Store:          a.store,
		HTTPClient:     httpClient,
		Logger:         zapLogger,
	}
	if cfg.FederatedEnabled() {
		idCfg.Google = &identity.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			CallbackAddr: cfg.CallbackAddr,
		}
	}
	a.identity, err = identity.New(ctx, idCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity client: %w", err)
	}

	base, err := backend.NewClient(backend.Config{
		BaseURL:    cfg.APIURL,
		HTTPClient: httpClient,
		Limiter:    lim,
		Logger:     zapLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	a.session = session.NewManager(a.identity, base, a.store, session.Options{Logger: zapLogger})
	api := base.WithTokenSource(a.session)

	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := a.session.WaitReady(readyCtx); err != nil {
		return nil, fmt.Errorf("failed to restore sign-in state: %w", err)
	}

	a.themes, err = preferences.NewThemes(a.store, cfg.DefaultTheme)
	if err != nil {
		return nil, err
	}
	theme, themeErr := a.themes.Current(ctx)
	if themeErr != nil {
		zapLogger.Warn("theme_read_failed", zap.String("error", logger.SanitizeError(themeErr)))
	}

	a.pages = pages.New(api, a.session, zapLogger)
	a.out = render.NewPrinter(w, theme, !g.noColor && isTerminal(w))
	return a, nil
}

// Close waits briefly for a token exchange started by this command, then
// releases everything in reverse order of opening.
func (a *app) Close() {
	if a.session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
		if err := a.session.Settle(ctx); err != nil {
			a.logger.Warn("token_exchange_unfinished", zap.Error(err))
		}
		cancel()
		_ = a.session.Close()
	}
	if a.identity != nil {
		_ = a.identity.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed_to_close_storage", zap.Error(err))
		}
	}
	if a.tp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := telemetry.Shutdown(ctx, a.tp); err != nil {
			a.logger.Warn("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
		cancel()
	}
	_ = logger.Sync(a.logger)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
