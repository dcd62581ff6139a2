package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/migration"
	"github.com/smallbiznis/vendora/internal/observability"
	"github.com/smallbiznis/vendora/internal/server"
	"github.com/smallbiznis/vendora/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
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
