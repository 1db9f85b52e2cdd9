package notification

import (
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(
		fx.Annotate(NewNotifier, fx.As(new(eventdomain.Notifier))),
	),
)
