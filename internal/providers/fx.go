package providers

import (
	"github.com/smallbiznis/printflow/internal/providers/email"
	"github.com/smallbiznis/printflow/internal/providers/payment"
	"github.com/smallbiznis/printflow/internal/providers/pdf"
	"github.com/smallbiznis/printflow/internal/providers/sms"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	sms.Module,
	payment.Module,
	pdf.Module,
)
