package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/burst-camera/internal/ledger"
	"github.com/eleven-am/burst-camera/internal/status"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideLedgerStore(db *gorm.DB, logger *slog.Logger) *ledger.Store {
	if db == nil {
		return nil
	}
	return ledger.NewStore(db, logger)
}

func ProvideStatusStore(redisClient *redis.Client, cfg *Config, logger *slog.Logger) *status.Store {
	if redisClient == nil {
		return nil
	}
	return status.NewStore(redisClient, cfg.StatusTTL, logger)
}

func RunMigrations(ledgerStore *ledger.Store) error {
	if ledgerStore == nil {
		return nil
	}
	return ledgerStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideLedgerStore,
		ProvideStatusStore,
	),
	fx.Invoke(RunMigrations),
)
