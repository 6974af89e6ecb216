package providers

import (
	"github.com/finledger/backoffice/internal/providers/email"
	"github.com/finledger/backoffice/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
