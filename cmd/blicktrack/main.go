package main

import (
	"github.com/blicktrack/platform/internal/config"
	"github.com/blicktrack/platform/internal/migration"
	"github.com/blicktrack/platform/internal/observability"
	"github.com/blicktrack/platform/internal/server"
	"github.com/blicktrack/platform/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
