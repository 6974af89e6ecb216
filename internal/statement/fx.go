package statement

import (
	"github.com/finledger/backoffice/internal/statement/delivery"
	"github.com/finledger/backoffice/internal/statement/generator"
	"github.com/finledger/backoffice/internal/statement/interest"
	"github.com/finledger/backoffice/internal/statement/repository"
	"github.com/finledger/backoffice/internal/statement/service"
	"github.com/finledger/backoffice/internal/statement/snapshot"
	"go.uber.org/fx"
)

var Module = fx.Module("statement.service",
	fx.Provide(repository.Provide),
	fx.Provide(interest.NewCalculator),
	fx.Provide(snapshot.NewBuilder),
	fx.Provide(delivery.New),
	fx.Provide(service.New),
	generator.Module,
)
