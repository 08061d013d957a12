package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/scailup/creditcore/internal/clock"
	"github.com/scailup/creditcore/internal/config"
	"github.com/scailup/creditcore/internal/migration"
	"github.com/scailup/creditcore/internal/observability"
	"github.com/scailup/creditcore/internal/server"
	"github.com/scailup/creditcore/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface plus the domain modules it pulls in
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
