package routes

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/dropview/dropview/internal/control"
	"github.com/dropview/dropview/internal/server"
)

// Dispatcher 是控制通道的执行端，*control.Controller 实现该接口。
type Dispatcher interface {
	Dispatch(cmd control.Command) (*control.Job, error)
}

// RegisterControlRoutes 暴露 POST /-/control，请求体即控制消息。
// 接受返回 202，被忽略的消息返回 204，控制器关闭后返回 503。
func RegisterControlRoutes(app *fiber.App, dispatcher Dispatcher, logger *logrus.Logger) {
	if app == nil || dispatcher == nil || logger == nil {
		return
	}

	app.Post("/-/control", func(c fiber.Ctx) error {
		requestID := server.RequestID(c)
		cmd, skipped := control.DecodeCommand(c.Body())
		for _, path := range skipped {
			logger.WithFields(logrus.Fields{
				"action":     "control",
				"path":       path,
				"request_id": requestID,
			}).Warn("file entry skipped")
		}

		job, err := dispatcher.Dispatch(cmd)
		if err != nil {
			if errors.Is(err, control.ErrClosed) {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "controller_closed"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if job == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}

		logger.WithFields(logrus.Fields{
			"action":     "control",
			"command":    string(job.Kind),
			"job_id":     job.ID,
			"files":      job.FileCount(),
			"skipped":    len(skipped),
			"request_id": requestID,
		}).Info("control_accepted")

		return c.Status(fiber.StatusAccepted).JSON(acceptedPayload{
			JobID:   job.ID,
			Kind:    string(job.Kind),
			Files:   job.FileCount(),
			Skipped: skipped,
		})
	})
}

type acceptedPayload struct {
	JobID   string   `json:"job_id"`
	Kind    string   `json:"kind"`
	Files   int      `json:"files"`
	Skipped []string `json:"skipped,omitempty"`
}
