package lifecyclemetrics

import "go.uber.org/fx"

var Module = fx.Module("lifecyclemetrics",
	fx.Provide(NewCollector),
	fx.Provide(NewPusher),
)
