package common

import (
	"context"
	"fmt"

	"ledger-admin-go/internal/api"
	"ledger-admin-go/internal/database"
	"ledger-admin-go/internal/formance"
	"ledger-admin-go/internal/ledger"
	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/notify"
	"ledger-admin-go/internal/postgres"
	"ledger-admin-go/internal/store"

	"go.uber.org/zap"
)

type Services struct {
	Store  store.LedgerStore
	Assets *models.AssetRegistry
	Ledger *ledger.Service
	Outbox *notify.Outbox
	Admin  *api.AdminService

	closers []func()
}

// InitializeServices opens the configured store and wires the ledger, the
// notification outbox and the admin façade on top of it.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	assets, err := LoadAssetRegistry(cfg.Ledger.AssetsFile)
	if err != nil {
		return nil, err
	}

	ledgerStore, err := InitializeStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	ledgerService := ledger.NewService(ledgerStore, assets, cfg.Ledger)
	outbox := notify.NewOutbox(ledgerStore)

	zap.L().Info("Ledger services initialized",
		zap.String("driver", cfg.Database.Driver),
		zap.String("debit_policy", string(ledgerService.DebitPolicy())),
		zap.Strings("assets", assets.Symbols()))

	return &Services{
		Store:   ledgerStore,
		Assets:  assets,
		Ledger:  ledgerService,
		Outbox:  outbox,
		Admin:   api.NewAdminService(ledgerService, outbox),
		closers: []func(){ledgerStore.Close},
	}, nil
}

// InitializeStore opens the backend named by cfg.Driver. PostgreSQL
// migrations are applied before the pool is created.
func InitializeStore(ctx context.Context, cfg models.DatabaseConfig) (store.LedgerStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		db, err := database.NewService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		if err := postgres.MigrateUp(cfg.URL); err != nil {
			return nil, err
		}
		pg, err := postgres.NewService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// InitializeSinks builds the delivery sinks for the relay. The log sink is
// always present; NATS and Formance are added when configured.
func (s *Services) InitializeSinks(ctx context.Context, cfg *models.Config) ([]notify.Sink, error) {
	sinks := []notify.Sink{notify.LogSink{}}

	if cfg.NATS.URL != "" {
		nc, js, err := notify.ConnectJetStream(cfg.NATS)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() {
			if err := nc.Drain(); err != nil {
				zap.L().Warn("Failed to drain NATS connection", zap.Error(err))
			}
		})
		sinks = append(sinks, notify.NewNATSSink(js, cfg.NATS.SubjectPrefix))
	}

	if cfg.Formance.StackURL != "" {
		mirror, err := formance.NewMirror(ctx, cfg.Formance, s.Assets)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, notify.NewFormanceSink(mirror))
	}

	names := make([]string, 0, len(sinks))
	for _, sink := range sinks {
		names = append(names, sink.Name())
	}
	zap.L().Info("Notification sinks configured", zap.Strings("sinks", names))
	return sinks, nil
}

// Close releases resources in reverse order of acquisition
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
