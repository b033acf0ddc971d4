package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/snapcount/internal/cache"
	"github.com/smallbiznis/snapcount/internal/clock"
	"github.com/smallbiznis/snapcount/internal/config"
	"github.com/smallbiznis/snapcount/internal/export"
	"github.com/smallbiznis/snapcount/internal/intake"
	"github.com/smallbiznis/snapcount/internal/ledger"
	"github.com/smallbiznis/snapcount/internal/liveevents"
	"github.com/smallbiznis/snapcount/internal/metricspush"
	"github.com/smallbiznis/snapcount/internal/nutrition"
	"github.com/smallbiznis/snapcount/internal/observability"
	"github.com/smallbiznis/snapcount/internal/profile"
	"github.com/smallbiznis/snapcount/internal/ratelimit"
	"github.com/smallbiznis/snapcount/internal/scheduler"
	"github.com/smallbiznis/snapcount/internal/server"
	"github.com/smallbiznis/snapcount/internal/session"
	"github.com/smallbiznis/snapcount/internal/storage"
	"github.com/smallbiznis/snapcount/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		storage.Module,
		clock.Module,
		cache.Module,
		ratelimit.Module,
		liveevents.Module,
		metricspush.Module,

		// Tracker domains
		intake.Module,
		nutrition.Module,
		profile.Module,
		ledger.Module,
		session.Module,
		export.Module,

		scheduler.Module,
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
