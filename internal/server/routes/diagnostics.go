package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/dropview/dropview/internal/cache"
	"github.com/dropview/dropview/internal/control"
	"github.com/dropview/dropview/internal/metrics"
)

// StatusSource 提供控制器诊断快照。
type StatusSource interface {
	Status() control.Status
}

// DiagnosticsOptions 汇总 /-/status 与 /-/metrics 需要的依赖，Metrics 为空时不注册 /-/metrics。
type DiagnosticsOptions struct {
	Backend    string
	Volatile   *cache.Volatile
	Controller StatusSource
	Metrics    *metrics.Collector
}

// RegisterDiagnosticsRoutes 暴露 /-/status 与 /-/metrics 诊断接口。
func RegisterDiagnosticsRoutes(app *fiber.App, opts DiagnosticsOptions) {
	if app == nil || opts.Volatile == nil || opts.Controller == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		paths := opts.Volatile.Paths()
		return c.JSON(statusPayload{
			Backend: opts.Backend,
			Volatile: volatilePayload{
				Entries: len(paths),
				Paths:   paths,
			},
			Sync: opts.Controller.Status(),
		})
	})

	if opts.Metrics != nil {
		app.Get("/-/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}
}

type statusPayload struct {
	Backend  string          `json:"backend"`
	Volatile volatilePayload `json:"volatile"`
	Sync     control.Status  `json:"sync"`
}

type volatilePayload struct {
	Entries int      `json:"entries"`
	Paths   []string `json:"paths"`
}
