package pricecache

import (
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/pricecache/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("pricecache",
	fx.Provide(repository.Provide),
)
