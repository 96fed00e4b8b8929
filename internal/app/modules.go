package app

import (
	"log/slog"

	"github.com/vk/runflowgo/internal/registry"
	"github.com/vk/runflowgo/modules/console"
	"github.com/vk/runflowgo/modules/dashboard"
	"github.com/vk/runflowgo/modules/echo"
	"github.com/vk/runflowgo/modules/webhook"
)

// coreModules assembles the default module set for a host: the console
// observer and echo handler always, the webhook and dashboard observers
// only when their targets are configured.
func coreModules(cfg *Config, logger *slog.Logger) []registry.Module {
	modules := []registry.Module{
		console.NewModule(logger),
		echo.NewModule(),
	}
	if cfg.WebhookURL != "" {
		modules = append(modules, webhook.NewModule(cfg.WebhookURL, logger))
	}
	if cfg.DashboardURL != "" {
		modules = append(modules, dashboard.NewModule(cfg.DashboardURL, cfg.DashboardNamespace, logger))
	}
	return modules
}
