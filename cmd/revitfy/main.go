package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/revitfy/revitfy/internal/clock"
	"github.com/revitfy/revitfy/internal/config"
	"github.com/revitfy/revitfy/internal/migration"
	"github.com/revitfy/revitfy/internal/observability"
	"github.com/revitfy/revitfy/internal/server"
	"github.com/revitfy/revitfy/pkg/db"
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
