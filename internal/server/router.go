package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ViewHandler claims request paths carrying the view marker and renders them
// from the cache tiers. It allows injecting fake handlers during tests.
type ViewHandler interface {
	// Claim reports whether rawPath belongs to the view and, if so, its decoded key.
	Claim(rawPath string) (key string, claimed bool, err error)
	Handle(c fiber.Ctx, key string) error
	RejectPath(c fiber.Ctx, rawPath string, cause error) error
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger *logrus.Logger
	View   ViewHandler
	// BodyLimit 是请求体上限（字节），0 使用 DefaultBodyLimit。整包文件经 /-/control 上传，需足够大。
	BodyLimit int
}

// DefaultBodyLimit 与配置中 MaxBundleSize 的默认值一致。
const DefaultBodyLimit = 512 << 20

const contextKeyRequestID = "_dropview_request_id"

// NewApp builds a Fiber application with request-id and view interception
// middleware. Routes registered afterwards only see unclaimed paths.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.View == nil {
		return nil, errors.New("view handler is required")
	}

	if opts.BodyLimit < 0 {
		return nil, fmt.Errorf("invalid body limit: %d", opts.BodyLimit)
	}
	bodyLimit := opts.BodyLimit
	if bodyLimit == 0 {
		bodyLimit = DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		BodyLimit:     bodyLimit,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware())
	app.Use(viewMiddleware(opts.View))

	return app, nil
}

// requestContextMiddleware 为每个请求生成 ID，写入 Locals 与 X-Request-ID 响应头。
func requestContextMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// viewMiddleware 使用未解码的原始路径判断是否命中视图标记，避免 %2F 等字符被提前还原。
func viewMiddleware(view ViewHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		rawPath := rawRequestPath(c)
		if isDiagnosticsPath(rawPath) {
			return c.Next()
		}
		key, claimed, err := view.Claim(rawPath)
		if !claimed {
			return c.Next()
		}
		if err != nil {
			return view.RejectPath(c, rawPath, err)
		}
		return view.Handle(c, key)
	}
}

func rawRequestPath(c fiber.Ctx) string {
	if raw := c.Request().URI().PathOriginal(); len(raw) > 0 {
		return string(raw)
	}
	return c.Path()
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
