package provider

import (
	providerdomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/provider/domain"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/provider/searchapi"
	"go.uber.org/fx"
)

var Module = fx.Module("provider",
	fx.Provide(func(a *searchapi.Adapter) providerdomain.Gateway { return a }),
	fx.Provide(searchapi.New),
)
