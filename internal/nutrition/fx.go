package nutrition

import (
	"github.com/smallbiznis/snapcount/internal/nutrition/gemini"
	"github.com/smallbiznis/snapcount/internal/nutrition/service"
	"go.uber.org/fx"
)

var Module = fx.Module("nutrition.service",
	fx.Provide(gemini.NewClient),
	fx.Provide(service.New),
)
