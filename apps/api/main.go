package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/clock"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/config"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/db"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/grocery"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/observability"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/pricecache"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/provider"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/quota"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/ratelimit"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/redis"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/server"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func main() {
	// Optional .env for local development; real deployments use env vars.
	_ = godotenv.Load()

	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redis.Module,
		clock.Module,

		pricecache.Module,
		quota.Module,
		ratelimit.Module,
		provider.Module,
		grocery.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
