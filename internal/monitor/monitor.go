// Package monitor samples the running simulation once per interval, keeps a
// human readable status file current and ships performance points.
package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cargoloop/simcore/internal/sim"
	"github.com/cargoloop/simcore/internal/worker"
)

// DefaultInterval is used when Dependencies.Interval is zero.
const DefaultInterval = time.Second

// SnapshotSource provides the world state.
type SnapshotSource interface {
	Snapshot() sim.Snapshot
}

// StatsSource provides recorder counters.
type StatsSource interface {
	Stats() worker.Stats
}

// PerformanceWriter receives one sample per interval.
type PerformanceWriter interface {
	WritePerformance(fields map[string]any) error
}

// Dependencies holds all dependencies for the monitor service. Recorder,
// Metrics and StatusPath are optional.
type Dependencies struct {
	World      SnapshotSource
	Recorder   StatsSource
	Metrics    PerformanceWriter
	StatusPath string
	Interval   time.Duration
	Logger     *slog.Logger
}

// Performance is one monitor sample.
type Performance struct {
	Time           time.Time    `json:"time"`
	SimTimeSec     float64      `json:"simTimeSec"`
	Ticks          uint64       `json:"ticks"`
	RealTimeFactor float64      `json:"realTimeFactor"` // simulated seconds per wall second
	Vehicles       int          `json:"vehicles"`
	ActiveZones    int          `json:"activeZones"`
	Waiting        int          `json:"waiting"`
	Transferred    int          `json:"transferred"`
	Recorder       worker.Stats `json:"recorder"`
}

// Fields flattens the sample for a time-series point.
func (p Performance) Fields() map[string]any {
	return map[string]any{
		"sim_time":         p.SimTimeSec,
		"ticks":            int64(p.Ticks),
		"real_time_factor": p.RealTimeFactor,
		"vehicles":         p.Vehicles,
		"active_zones":     p.ActiveZones,
		"waiting":          p.Waiting,
		"transferred":      p.Transferred,
		"recorded_states":  p.Recorder.VehicleStates,
		"recorded_events":  p.Recorder.Transfers + p.Recorder.ZoneStates,
		"record_failures":  p.Recorder.Failed,
	}
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}

	last     sim.Snapshot
	lastWall time.Time
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "monitor")
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample takes one measurement. The real time factor is relative to the
// previous sample and zero for the first one. Sample must not be called
// while the service is running.
func (s *Service) Sample(now time.Time) Performance {
	snap := s.deps.World.Snapshot()
	p := Performance{
		Time:       now,
		SimTimeSec: snap.SimTime.Seconds(),
		Ticks:      snap.Ticks,
		Vehicles:   len(snap.Vehicles),
	}
	for _, z := range snap.Zones {
		if z.State != "idle" && z.State != "retired" {
			p.ActiveZones++
		}
		p.Waiting += z.Waiting
		p.Transferred += z.Transferred
	}
	if s.deps.Recorder != nil {
		p.Recorder = s.deps.Recorder.Stats()
	}

	if !s.lastWall.IsZero() {
		if wall := now.Sub(s.lastWall).Seconds(); wall > 0 {
			p.RealTimeFactor = (snap.SimTime - s.last.SimTime).Seconds() / wall
		}
	}
	s.last = snap
	s.lastWall = now
	return p
}

// record writes the sample to the status file and the metrics writer.
func (s *Service) record(p Performance) {
	if s.deps.StatusPath != "" {
		data, err := json.MarshalIndent(p, "", "  ")
		if err == nil {
			err = os.WriteFile(s.deps.StatusPath, append(data, '\n'), 0644)
		}
		if err != nil {
			s.deps.Logger.Error("Error writing status file", "path", s.deps.StatusPath, "error", err)
		}
	}

	if s.deps.Metrics != nil {
		if err := s.deps.Metrics.WritePerformance(p.Fields()); err != nil {
			s.deps.Logger.Error("Error writing performance point", "error", err)
		}
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case now := <-ticker.C:
				s.record(s.Sample(now))
			}
		}
	}()
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.isRunning = false
	done := s.done
	s.mu.Unlock()
	<-done
}
