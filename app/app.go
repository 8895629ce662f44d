package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/grafana/dskit/modules"
	"github.com/grafana/dskit/server"
	"github.com/grafana/dskit/services"
	"github.com/grafana/dskit/signals"
	"github.com/pkg/errors"

	"github.com/zachfi/radiogo/modules/player"
	"github.com/zachfi/radiogo/pkg/audio"
	"github.com/zachfi/radiogo/pkg/station"
)

const metricsNamespace = "radiogo"

type App struct {
	cfg    Config
	logger *slog.Logger

	out       io.Writer
	directory station.Directory
	device    audio.Device

	Server *server.Server
	Player *player.Player

	ModuleManager *modules.Manager
	serviceMap    map[string]services.Service
}

// Option overrides one of the App's collaborators.
type Option func(*App)

// WithOutput sets where the stream URL and the meter are written. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithDirectory replaces the station directory.
func WithDirectory(d station.Directory) Option {
	return func(a *App) { a.directory = d }
}

// WithDevice replaces the audio output.
func WithDevice(d audio.Device) Option {
	return func(a *App) { a.device = d }
}

// New creates and returns a new App.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
		out:    os.Stdout,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.cfg.Target == "" {
		a.cfg.Target = Player
	}

	if err := a.setupModuleManager(); err != nil {
		return nil, errors.Wrap(err, "failed to setup module manager")
	}

	return a, nil
}

// Run starts the target's modules and blocks until they stop. It returns the failure of the
// first module that failed, or nil when stopped by a signal.
func (a *App) Run() error {
	serviceMap, err := a.ModuleManager.InitModuleServices(a.cfg.Target)
	if err != nil {
		return fmt.Errorf("failed to init module services %w", err)
	}
	a.serviceMap = serviceMap

	servs := []services.Service(nil)
	for _, s := range serviceMap {
		servs = append(servs, s)
	}

	sm, err := services.NewManager(servs...)
	if err != nil {
		return fmt.Errorf("failed to start service manager %w", err)
	}

	// Listen for events from this manager, and log them.
	healthy := func() { a.logger.Debug("started") }
	stopped := func() { a.logger.Debug("stopped") }
	serviceFailed := func(service services.Service) {
		// if any service fails, stop everything
		sm.StopAsync()

		// let's find out which module failed
		for m, s := range serviceMap {
			if s == service {
				if service.FailureCase() == modules.ErrStopProcess {
					a.logger.Info("received stop signal via return error", "module", m, "err", service.FailureCase())
				} else {
					a.logger.Debug("module failed", "module", m, "err", service.FailureCase())
				}
				return
			}
		}

		a.logger.Error("module failed", "module", "unknown", "err", service.FailureCase())
	}
	sm.AddListener(services.NewManagerListener(healthy, stopped, serviceFailed))

	// Setup signal handler. If signal arrives, we stop the manager, which stops all the services.
	handler := signals.NewHandler(kitlog.NewLogfmtLogger(os.Stderr))
	go func() {
		handler.Loop()
		sm.StopAsync()
	}()
	defer handler.Stop()

	// Start all services. This can really only fail if some service is already
	// in other state than New, which should not be the case.
	err = sm.StartAsync(context.Background())
	if err != nil {
		return fmt.Errorf("failed to start service manager %w", err)
	}

	if err := sm.AwaitStopped(context.Background()); err != nil {
		return err
	}

	return a.failure()
}

// failure returns why the run ended, preferring the player's failure over the server's.
func (a *App) failure() error {
	for _, m := range []string{Player, Server} {
		s, ok := a.serviceMap[m]
		if !ok || s.State() != services.Failed {
			continue
		}
		if err := s.FailureCase(); err != modules.ErrStopProcess {
			return err
		}
	}
	return nil
}
