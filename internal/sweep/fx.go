package sweep

import "go.uber.org/fx"

var Module = fx.Module("sweep",
	fx.Provide(NewLocker),
	fx.Provide(New),
)
