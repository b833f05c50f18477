package bootstrap

import (
	"context"

	"github.com/brackwater/payrail/internal/config"
	"github.com/brackwater/payrail/internal/store"
	"github.com/brackwater/payrail/internal/store/pgstore"
)

func newPGStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	return pgstore.Connect(ctx, cfg.PostgresDSN)
}
