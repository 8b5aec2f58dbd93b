package grocery

import (
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/basket"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/grocery/service"
	"go.uber.org/fx"
)

var Module = fx.Module("grocery",
	fx.Provide(basket.Default),
	fx.Provide(service.NewService),
)
