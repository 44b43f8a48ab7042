package view

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/dropview/dropview/internal/cache"
	"github.com/dropview/dropview/internal/logging"
	"github.com/dropview/dropview/internal/server"
)

// DefaultNotFoundMessage 是两层缓存都未命中时的纯文本响应体。
const DefaultNotFoundMessage = "File not found in Allure Report"

// DefaultMarker 是默认的视图路径标记。
const DefaultMarker = "/__view__/"

const (
	readFailedMessage = "Storage read failed"
	badPathMessage    = "Malformed view path"
)

// Handler 将 Resolver 的结果渲染为 Fiber 响应，并输出结构化日志。
type Handler struct {
	resolver *Resolver
	logger   *logrus.Logger
	marker   string
	notFound string
}

// NewHandler constructs a view handler claiming paths that contain marker.
// Empty marker and notFound fall back to DefaultMarker and DefaultNotFoundMessage.
func NewHandler(resolver *Resolver, logger *logrus.Logger, marker, notFound string) *Handler {
	if marker == "" {
		marker = DefaultMarker
	}
	if notFound == "" {
		notFound = DefaultNotFoundMessage
	}
	return &Handler{
		resolver: resolver,
		logger:   logger,
		marker:   marker,
		notFound: notFound,
	}
}

// Marker returns the path marker this handler claims.
func (h *Handler) Marker() string {
	return h.marker
}

// Claim 供路由中间件调用，判定 rawPath 是否属于视图请求并给出解码后的 key。
func (h *Handler) Claim(rawPath string) (string, bool, error) {
	return ExtractKey(rawPath, h.marker)
}

// RejectPath 响应无法解码的视图路径（400）。
func (h *Handler) RejectPath(c fiber.Ctx, rawPath string, cause error) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	h.logger.WithFields(logrus.Fields{
		"action":     "view",
		"path":       rawPath,
		"status":     fiber.StatusBadRequest,
		"request_id": server.RequestID(c),
		"error":      cause.Error(),
	}).Warn("view_rejected")
	return h.writeText(c, fiber.StatusBadRequest, badPathMessage)
}

// Handle 解析 key 并写出响应：命中 200，未命中 404，引擎故障 500。
// 所有响应都禁止中间层与浏览器缓存，保证总是反映当前缓存状态。
func (h *Handler) Handle(c fiber.Ctx, key string) error {
	started := time.Now()
	requestID := server.RequestID(c)

	c.Set(fiber.HeaderCacheControl, "no-store")

	result, err := h.resolver.Resolve(c.Context(), key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			h.logResult(key, "", requestID, fiber.StatusNotFound, started, nil)
			return h.writeText(c, fiber.StatusNotFound, h.notFound)
		}
		h.logResult(key, "", requestID, fiber.StatusInternalServerError, started, err)
		return h.writeText(c, fiber.StatusInternalServerError, readFailedMessage)
	}

	c.Set(fiber.HeaderContentType, result.ContentType)
	c.Set("X-Dropview-Tier", result.Tier)
	c.Status(fiber.StatusOK)

	if c.Method() == http.MethodHead {
		c.Response().Header.SetContentLength(len(result.File.Content))
		h.logResult(key, result.Tier, requestID, fiber.StatusOK, started, nil)
		return nil
	}

	h.logResult(key, result.Tier, requestID, fiber.StatusOK, started, nil)
	return c.Send(result.File.Content)
}

func (h *Handler) writeText(c fiber.Ctx, status int, body string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(status).SendString(body)
}

func (h *Handler) logResult(key, tier, requestID string, status int, started time.Time, err error) {
	fields := logging.RequestFields(key, tier, status)
	fields["action"] = "view"
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("view_failed")
		return
	}
	h.logger.WithFields(fields).Info("view_complete")
}
