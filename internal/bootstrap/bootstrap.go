// Package bootstrap wires configuration, storage, services and transports
// into a running server and owns the shutdown sequence.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"coolwatch-server-go/internal/app/services"
	"coolwatch-server-go/internal/domain/auth"
	authstore "coolwatch-server-go/internal/domain/auth/store"
	"coolwatch-server-go/internal/domain/eventbus"
	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/config"
	"coolwatch-server-go/internal/platform/errors"
	"coolwatch-server-go/internal/platform/logging"
	"coolwatch-server-go/internal/platform/storage"
	"coolwatch-server-go/internal/realtime"
	httptransport "coolwatch-server-go/internal/transport/http"
	"coolwatch-server-go/internal/transport/http/webapi"
)

const shutdownTimeout = 10 * time.Second

type appState struct {
	configPath string

	config  *config.Config
	logger  *logging.Logger
	db      *gorm.DB
	bus     *eventbus.Bus
	tokens  *auth.TokenManager
	refresh authstore.TokenStore

	users      *storage.UserRepository
	devices    *storage.DeviceRepository
	readings   *storage.SensorRepository
	alerts     *storage.AlertRepository
	activities *storage.ActivityRepository

	activity  *services.ActivityService
	notifier  *services.NotificationService
	sensor    *services.SensorService
	authSvc   *services.AuthService
	simulator *services.SimulatorService

	hub      *realtime.Hub
	wsServer *realtime.Server
	engine   *gin.Engine
}

type initStep struct {
	ID      string
	Title   string
	Kind    errors.Kind
	Execute func(ctx context.Context, state *appState) error
}

func initSteps() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "load configuration",
			Kind:    errors.KindConfig,
			Execute: stepLoadConfig,
		},
		{
			ID:      "logging:init",
			Title:   "initialise logging",
			Kind:    errors.KindBootstrap,
			Execute: stepInitLogging,
		},
		{
			ID:      "storage:open",
			Title:   "open database",
			Kind:    errors.KindStorage,
			Execute: stepOpenStorage,
		},
		{
			ID:      "auth:init",
			Title:   "initialise authentication",
			Kind:    errors.KindAuth,
			Execute: stepInitAuth,
		},
		{
			ID:      "services:init",
			Title:   "initialise domain services",
			Kind:    errors.KindBootstrap,
			Execute: stepInitServices,
		},
		{
			ID:      "realtime:init",
			Title:   "initialise realtime hub",
			Kind:    errors.KindRealtime,
			Execute: stepInitRealtime,
		},
		{
			ID:      "http:init",
			Title:   "initialise http transport",
			Kind:    errors.KindTransport,
			Execute: stepInitHTTP,
		},
	}
}

func stepLoadConfig(_ context.Context, state *appState) error {
	cfg, err := config.NewLoader().Load(state.configPath)
	if err != nil {
		return err
	}
	state.config = cfg
	return nil
}

func stepInitLogging(_ context.Context, state *appState) error {
	logger, err := logging.New(logging.Config{
		Level: state.config.Log.Level,
		Dir:   state.config.Log.Dir,
		File:  state.config.Log.File,
	})
	if err != nil {
		return err
	}
	state.logger = logger
	return nil
}

func stepOpenStorage(_ context.Context, state *appState) error {
	db, err := storage.Open(state.config.Database.Path, state.logger)
	if err != nil {
		return err
	}
	if err := storage.SeedAdminUser(db, state.logger); err != nil {
		return err
	}

	state.db = db
	state.users = storage.NewUserRepository(db)
	state.devices = storage.NewDeviceRepository(db)
	state.readings = storage.NewSensorRepository(db)
	state.alerts = storage.NewAlertRepository(db)
	state.activities = storage.NewActivityRepository(db)
	return nil
}

func stepInitAuth(_ context.Context, state *appState) error {
	jwt := state.config.JWT
	state.tokens = auth.NewTokenManager(jwt.Secret, jwt.Issuer, jwt.Audience, jwt.TTL)

	refresh, err := authstore.New(state.config.TokenStore, jwt.RefreshTTL)
	if err != nil {
		return err
	}
	state.refresh = refresh
	return nil
}

func stepInitServices(_ context.Context, state *appState) error {
	state.bus = eventbus.New()
	state.activity = services.NewActivityService(state.activities, state.bus, state.logger)
	state.notifier = services.NewNotificationService(state.bus, state.logger)
	state.sensor = services.NewSensorService(services.SensorServiceConfig{
		Devices:  state.devices,
		Readings: state.readings,
		Alerts:   state.alerts,
		Activity: state.activity,
		Bus:      state.bus,
		Logger:   state.logger,
	})
	state.authSvc = services.NewAuthService(services.AuthServiceConfig{
		Users:      state.users,
		Tokens:     state.tokens,
		Refresh:    state.refresh,
		RefreshTTL: state.config.JWT.RefreshTTL,
		Activity:   state.activity,
		Notifier:   state.notifier,
		Logger:     state.logger,
	})
	state.simulator = services.NewSimulatorService(state.sensor, state.devices, state.config.Simulation.Interval, state.logger)
	return nil
}

func stepInitRealtime(_ context.Context, state *appState) error {
	state.hub = realtime.NewHub(state.logger)
	if err := state.hub.BindBus(state.bus); err != nil {
		return err
	}
	state.wsServer = realtime.NewServer(state.config.Realtime, state.hub, state.tokens, state.users, state.activity, state.logger)
	return nil
}

func stepInitHTTP(_ context.Context, state *appState) error {
	router, err := httptransport.Build(httptransport.Options{
		Config:         state.config,
		Logger:         state.logger,
		AuthMiddleware: httptransport.AuthMiddleware(state.tokens, state.users, state.logger),
		StaticRoot:     state.config.Web.StaticDir,
		WSHandler:      state.wsServer.HandleHTTP,
	})
	if err != nil {
		return err
	}

	staff := router.Secured.Group("", httptransport.RequireRoles(models.RoleAdmin, models.RoleTechnician))
	admin := router.Secured.Group("", httptransport.RequireRoles(models.RoleAdmin))

	webapi.NewAuthAPI(state.authSvc, state.users, state.logger).Register(router.API, router.Secured)
	webapi.NewUserAPI(state.users, state.activity, state.hub, state.logger).Register(admin)
	webapi.NewDeviceAPI(webapi.DeviceAPIConfig{
		Devices:  state.devices,
		Readings: state.readings,
		Alerts:   state.alerts,
		Sensor:   state.sensor,
		Activity: state.activity,
		Bus:      state.bus,
		Logger:   state.logger,
	}).Register(router.Secured, staff)
	webapi.NewActivityAPI(state.activities).Register(router.Secured)
	webapi.NewSystemAPI(state.hub, state.notifier, state.activity, state.logger).Register(router.Engine, router.Secured, admin)

	state.engine = router.Engine
	return nil
}

// Run executes the init sequence, serves HTTP/websocket traffic and blocks
// until a termination signal or a fatal server error.
func Run(ctx context.Context, configPath string) error {
	state := &appState{configPath: configPath}

	for _, step := range initSteps() {
		if err := step.Execute(ctx, state); err != nil {
			if state.logger != nil {
				state.logger.ErrorTag("Boot", "step %s failed: %v", step.ID, err)
			}
			return errors.Wrap(step.Kind, "bootstrap."+step.ID, step.Title+" failed", err)
		}
		if state.logger != nil {
			state.logger.DebugTag("Boot", "step %s done", step.ID)
		}
	}

	logger := state.logger
	defer logger.Close()
	defer func() {
		if err := state.refresh.Close(context.Background()); err != nil {
			logger.WarnTag("Boot", "token store close failed: %v", err)
		}
	}()

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(signalCtx)

	addr := fmt.Sprintf("%s:%d", state.config.Server.IP, state.config.Server.Port)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: state.engine,
	}

	group.Go(func() error {
		logger.InfoTag("Boot", "listening on %s (ws at %s)", addr, state.config.Realtime.Path)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(errors.KindTransport, "bootstrap.serve", "http server failed", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.WarnTag("Boot", "http shutdown failed: %v", err)
		}

		state.hub.CloseAll()
		state.bus.WaitAsync()
		return nil
	})

	if state.config.Simulation.Enabled {
		state.simulator.Start(groupCtx)
		defer state.simulator.Stop()
	}

	err := group.Wait()
	logger.InfoTag("Boot", "server stopped")
	return err
}
