package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/finledger/backoffice/internal/audit"
	"github.com/finledger/backoffice/internal/authorization"
	"github.com/finledger/backoffice/internal/clock"
	"github.com/finledger/backoffice/internal/config"
	"github.com/finledger/backoffice/internal/customer"
	"github.com/finledger/backoffice/internal/distlock"
	"github.com/finledger/backoffice/internal/ledger"
	"github.com/finledger/backoffice/internal/migration"
	"github.com/finledger/backoffice/internal/observability"
	"github.com/finledger/backoffice/internal/opsmetrics"
	"github.com/finledger/backoffice/internal/providers"
	"github.com/finledger/backoffice/internal/sequence"
	"github.com/finledger/backoffice/internal/server"
	"github.com/finledger/backoffice/internal/statement"
	"github.com/finledger/backoffice/pkg/db"
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
		distlock.Module,
		opsmetrics.Module,
		migration.Module,

		// Functional domains
		authorization.Module,
		audit.Module,
		customer.Module,
		ledger.Module,
		sequence.Module,
		providers.Module,
		statement.Module,

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
