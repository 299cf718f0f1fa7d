package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/internal/dispatcher"
	"github.com/cargoloop/simcore/internal/influx"
	"github.com/cargoloop/simcore/internal/logging"
	"github.com/cargoloop/simcore/internal/monitor"
	"github.com/cargoloop/simcore/internal/scenario"
	"github.com/cargoloop/simcore/internal/sim"
	"github.com/cargoloop/simcore/internal/spawn"
	"github.com/cargoloop/simcore/internal/status"
	"github.com/cargoloop/simcore/internal/storage"
	"github.com/cargoloop/simcore/internal/worker"
	"github.com/cargoloop/simcore/internal/zone"
	"github.com/cargoloop/simcore/pkg/core"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	AppName   = "cargoloop"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "cargoloop:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// .env first, .env.local overrides for local development
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	configDir := os.Getenv("CARGOLOOP_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	if err := config.Load(configDir); err != nil {
		return err
	}

	if len(args) > 0 && args[0] == "report" {
		return runReport(args[1:], os.Stdout)
	}
	return simulate()
}

// app holds everything that must be shut down in order.
type app struct {
	logger  *slog.Logger
	slogMgr *logging.SlogManager
	logFile *os.File

	world    *sim.World
	events   *dispatcher.Dispatcher
	backend  storage.Backend
	metrics  *influx.Manager
	recorder *worker.Manager
	status   *status.Server
	monitor  *monitor.Service
}

func simulate() error {
	start := time.Now()
	a := &app{}
	defer a.close()

	logOut, err := a.setupLogging(start)
	if err != nil {
		return err
	}
	level := config.GetString("logLevel")
	a.logger.Info("Starting", "app", AppName, "version", Version, "buildDate", BuildDate)

	simCfg := config.GetSimConfig()
	sc, err := scenario.Load(simCfg.Scenario)
	if err != nil {
		return err
	}
	seed := simCfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	if err := a.buildWorld(sc, simCfg, rng); err != nil {
		return err
	}

	a.backend, err = storage.NewBackend(config.GetStorageConfig(), a.logger, logging.NewZerolog(logOut, level, "database"))
	if err != nil {
		return err
	}
	if err := a.backend.Init(); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	session := &core.Session{
		UUID:         uuid.NewString(),
		ScenarioName: sc.Name,
		Seed:         seed,
		TickRate:     simCfg.TickRate,
		StartTime:    start,
		Course:       a.world.Course().Waypoints(),
	}
	for _, z := range a.world.Zones() {
		session.Zones = append(session.Zones, z.Name())
	}
	if err := a.backend.StartSession(session); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	deps := worker.Dependencies{Backend: a.backend, Logger: a.logger}
	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		a.metrics = influx.NewManager(logging.NewZerolog(logOut, level, "influx"), influxCfg)
		if err := a.metrics.Connect(context.Background()); err != nil {
			a.logger.Warn("InfluxDB output unavailable", "error", err)
		} else {
			deps.Metrics = a.metrics
		}
	}

	a.events, err = dispatcher.New(logging.NewDispatcherLogger(logging.NewZerolog(logOut, level, "dispatcher")))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	a.recorder = worker.NewManager(deps)
	a.recorder.RegisterHandlers(a.events)
	a.world.AttachDispatcher(a.events)

	if statusCfg := config.GetStatusConfig(); statusCfg.Enabled {
		sdeps := status.Dependencies{World: a.world, Recorder: a.recorder, Logger: a.logger}
		if r, ok := a.backend.(storage.TransferReader); ok {
			sdeps.Transfers = r
		}
		a.status = status.NewServer(statusCfg, sdeps)
		if _, err := a.status.Start(); err != nil {
			a.logger.Error("Status API unavailable", "error", err)
			a.status = nil
		}
	}

	if monCfg := config.GetMonitorConfig(); monCfg.Enabled {
		mdeps := monitor.Dependencies{
			World:      a.world,
			Recorder:   a.recorder,
			StatusPath: monCfg.StatusFile,
			Interval:   monCfg.Interval,
			Logger:     a.logger,
		}
		if deps.Metrics != nil {
			mdeps.Metrics = a.metrics
		}
		a.monitor = monitor.NewService(mdeps)
		a.monitor.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.logger.Info("Simulation running",
		"scenario", sc.Name,
		"seed", seed,
		"tickRate", simCfg.TickRate,
		"duration", simCfg.Duration)
	loop(ctx, a.world, simCfg.TickRate, simCfg.Duration)

	return a.finish()
}

func (a *app) setupLogging(start time.Time) (io.Writer, error) {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}
	f, err := os.OpenFile(logging.LogFilePath(logsDir, AppName, start), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	a.logFile = f
	out := io.MultiWriter(os.Stdout, f)

	opts := logging.Options{
		File:  out,
		Level: config.GetString("logLevel"),
		// the world does not exist yet
		Clock: func() []slog.Attr {
			if a.world == nil {
				return nil
			}
			return logging.ClockAttrs(a.world)()
		},
	}
	if g := config.GetGraylogConfig(); g.Enabled {
		opts.GelfAddress = g.Address
	}

	a.slogMgr = logging.NewSlogManager()
	if err := a.slogMgr.Setup(opts); err != nil {
		// file and console logging still work
		a.slogMgr.Logger().Warn("Graylog output unavailable", "error", err)
	}
	a.logger = a.slogMgr.Logger()
	return out, nil
}

func (a *app) buildWorld(sc *scenario.Scenario, simCfg config.SimConfig, rng *rand.Rand) error {
	c, err := sc.BuildCourse(a.logger)
	if err != nil {
		return err
	}
	a.world = sim.NewWorld(sim.Config{
		AutoDrive:     simCfg.AutoDrive,
		CruiseSpeed:   simCfg.CruiseSpeed,
		StateInterval: simCfg.StateInterval,
	}, c, rng, a.logger)

	player, err := sc.BuildPlayer(c, rng, a.logger)
	if err != nil {
		return err
	}
	if err := a.world.SetPlayer(player.Vehicle, player.Follower, player.Start, player.Toward); err != nil {
		return err
	}

	zoneCfgs, err := sc.ZoneConfigs()
	if err != nil {
		return err
	}
	for _, cfg := range zoneCfgs {
		z := zone.New(cfg, rng, a.logger)
		z.Populate()
		a.world.AddZone(z)
	}

	if t, ok := sc.BuildTraffic(); ok {
		spawner := spawn.New(t.Spawn, rng, a.logger)
		for _, pos := range spawner.Positions(c, a.world.Player().Vehicle) {
			if _, err := a.world.AddTraffic(pos, t.Follower); err != nil {
				a.logger.Warn("Traffic vehicle skipped", "error", err)
			}
		}
	}
	return nil
}

// loop steps the world at a fixed tick until ctx ends or the simulated
// duration has elapsed. A zero duration runs until interrupted.
func loop(ctx context.Context, w *sim.World, tick, duration time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Step(tick)
			if duration > 0 && w.Now() >= duration {
				return
			}
		}
	}
}

// finish drains the recorder and ends the session.
func (a *app) finish() error {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.status.Shutdown(ctx); err != nil {
			a.logger.Warn("Status API shutdown", "error", err)
		}
		a.status = nil
	}
	a.events.Close()

	for _, z := range a.world.Zones() {
		a.logger.Info("Zone totals",
			"zone", z.Name(),
			"state", z.State().String(),
			"transferred", z.Transferred(),
			"waiting", len(z.Waiting()))
	}
	stats := a.recorder.Stats()
	a.logger.Info("Recorder totals",
		"vehicleStates", stats.VehicleStates,
		"transfers", stats.Transfers,
		"zoneStates", stats.ZoneStates,
		"failed", stats.Failed)

	if err := a.backend.EndSession(); err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	if e, ok := a.backend.(storage.Exporter); ok && e.ExportedFilePath() != "" {
		path, _ := filepath.Abs(e.ExportedFilePath())
		a.logger.Info("Session saved", "path", path)
	}
	return nil
}

func (a *app) close() {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.status != nil {
		_ = a.status.Shutdown(context.Background())
	}
	if a.events != nil {
		a.events.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Closing storage", "error", err)
		}
	}
	if a.metrics != nil {
		if err := a.metrics.Close(); err != nil {
			a.logger.Error("Closing influx", "error", err)
		}
	}
	if a.slogMgr != nil {
		_ = a.slogMgr.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
