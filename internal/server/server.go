package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aeschylus/botwallets/internal/config"
	"github.com/aeschylus/botwallets/internal/engine"
	"github.com/aeschylus/botwallets/internal/engine/cashu"
	"github.com/aeschylus/botwallets/internal/engine/fakemint"
	"github.com/aeschylus/botwallets/internal/handler"
	"github.com/aeschylus/botwallets/internal/repository"
	"github.com/aeschylus/botwallets/internal/router"
	"github.com/aeschylus/botwallets/internal/usecase/wallet"
	"github.com/aeschylus/botwallets/internal/worker"
)

type Server struct {
	httpServer *http.Server
	db         *pgxpool.Pool
	registry   *wallet.Registry
	recovery   *worker.RecoveryWorker
	cancel     context.CancelFunc
	logger     *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	db, err := config.ConnectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	ledger := repository.NewLedger(db)
	notifier := wallet.NewNotifier(logger)
	registry := wallet.NewRegistry(ledger, EngineFactory(logger), notifier, logger)

	deps := &handler.Deps{
		Registry: registry,
		MintURL:  cfg.MintURL,
		Unit:     cfg.Unit,
	}

	srv := &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router.New(deps, logger),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		db:       db,
		registry: registry,
		logger:   logger,
	}

	if cfg.RecoveryEnabled {
		srv.recovery = worker.NewRecoveryWorker(ledger, cfg.RecoveryInterval, cfg.RecoveryThreshold, logger)
		workerCtx, cancel := context.WithCancel(context.Background())
		srv.cancel = cancel
		go srv.recovery.Start(workerCtx)
	}

	return srv, nil
}

// EngineFactory builds the Token Engine for a (mint, unit) pair. The fake://
// scheme selects the in-memory mint, which is useful for local development
// without a reachable mint.
func EngineFactory(logger *zap.Logger) wallet.EngineFactory {
	return func(mintURL, unit string) (engine.Engine, error) {
		if strings.HasPrefix(mintURL, "fake://") {
			return fakemint.New(unit), nil
		}
		return cashu.NewClient(mintURL, unit, nil, logger), nil
	}
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	err := s.httpServer.Shutdown(ctx)
	s.registry.Close()
	s.db.Close()
	return err
}
