package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/dropview/dropview/internal/cache"
	"github.com/dropview/dropview/internal/config"
	"github.com/dropview/dropview/internal/control"
	"github.com/dropview/dropview/internal/metrics"
	"github.com/dropview/dropview/internal/server"
	"github.com/dropview/dropview/internal/server/routes"
	"github.com/dropview/dropview/internal/view"
)

// service 持有一次进程生命周期内的全部组件，所有请求共享同一份缓存与控制器实例。
type service struct {
	app             *fiber.App
	store           cache.Store
	volatile        *cache.Volatile
	controller      *control.Controller
	logger          *logrus.Logger
	shutdownTimeout time.Duration
}

func newService(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*service, error) {
	store, err := cache.NewStore(storeOptions(cfg))
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	collector := metrics.New()
	volatile := cache.NewVolatile()
	ctrl, err := control.New(control.Options{
		Volatile: volatile,
		Store:    store,
		Logger:   logger,
		Metrics:  collector,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	resolver := view.NewResolver(collector, volatile, cache.NewDurableTier(store))
	handler := view.NewHandler(resolver, logger, cfg.Global.RoutePrefix, cfg.Global.NotFoundMessage)

	app, err := server.NewApp(server.AppOptions{
		Logger:    logger,
		View:      handler,
		BodyLimit: cfg.Global.MaxBundleSize.Int(),
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	routes.RegisterControlRoutes(app, ctrl, logger)
	routes.RegisterDiagnosticsRoutes(app, routes.DiagnosticsOptions{
		Backend:    cfg.Global.Backend,
		Volatile:   volatile,
		Controller: ctrl,
		Metrics:    collector,
	})

	return &service{
		app:             app,
		store:           store,
		volatile:        volatile,
		controller:      ctrl,
		logger:          logger,
		shutdownTimeout: cfg.Global.ShutdownTimeout.DurationValue(),
	}, nil
}

func storeOptions(cfg *config.Config) cache.Options {
	return cache.Options{
		Backend:    cfg.Global.Backend,
		SQLitePath: cfg.SQLitePath(),
		Redis: cache.RedisOptions{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			KeyPrefix:   cfg.Redis.KeyPrefix,
			DialTimeout: cfg.Redis.DialTimeout.DurationValue(),
		},
	}
}

// shutdown 在超时内停止接收请求并排空持久化队列，最后关闭持久层。
func (svc *service) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), svc.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := svc.app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}
	if err := svc.controller.Close(ctx); err != nil {
		// worker 仍可能在写入，此时关闭持久层会让进行中的事务失败，保持打开交由进程退出回收。
		errs = append(errs, fmt.Errorf("drain sync queue: %w (store left open)", err))
	} else if err := svc.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	svc.logger.WithFields(logrus.Fields{
		"action":  "shutdown",
		"pending": svc.controller.Status().Pending,
	}).Info("stopped")
	return errors.Join(errs...)
}
