package quota

import (
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/quota/repository"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/quota/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quota",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewLedger),
)
