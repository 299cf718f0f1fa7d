// Package influx ships zone metrics to InfluxDB, or to a gzipped line
// protocol file when the server cannot be reached.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/pkg/core"
)

// BackupFileName is the line protocol fallback written into the backup dir.
const BackupFileName = "influx_backup.lp.gz"

var (
	// ErrDisabled is returned by Connect when influx output is switched off.
	ErrDisabled = errors.New("influx is disabled")
	// ErrNoWriter is returned when neither the server nor a backup is available.
	ErrNoWriter = errors.New("influx client not initialized and backup writer not available")
)

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger

	cfg        config.InfluxConfig
	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: []string{cfg.Bucket},
		Logger:      log,
		cfg:         cfg,
	}
}

// BackupPath is where points go while the server is unreachable.
func (m *Manager) BackupPath() string {
	return filepath.Join(m.cfg.BackupDir, BackupFileName)
}

// Connect establishes a connection to InfluxDB. An unreachable server is not
// an error: points are appended to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Warn().Err(err).Str("url", m.cfg.URL()).
			Msg("InfluxDB unreachable, using backup writer")
		return m.OpenBackup()
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Str("url", m.cfg.URL()).Msg("InfluxDB client initialized")
	return nil
}

// OpenBackup opens the gzipped line protocol file for appending.
func (m *Manager) OpenBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	if err := os.MkdirAll(m.cfg.BackupDir, 0755); err != nil {
		return fmt.Errorf("error creating backup dir: %w", err)
	}
	file, err := os.OpenFile(m.BackupPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.Logger.Info().Str("backupPath", m.BackupPath()).Msg("Writing influx points to backup file")
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := m.cfg.Org

	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// 30 day retention
	for _, bucket := range m.BucketNames {
		if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 30,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(m.cfg.Org, bucket)

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, m.Writers[bucket].Errors())
	}

	m.Logger.Debug().Strs("buckets", m.BucketNames).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return ErrNoWriter
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteTransfer records one passenger transfer in the configured bucket.
func (m *Manager) WriteTransfer(e core.TransferEvent) error {
	return m.WritePoint(m.cfg.Bucket, TransferPoint(e))
}

// WriteZoneState records one zone state change in the configured bucket.
func (m *Manager) WriteZoneState(e core.ZoneStateChange) error {
	return m.WritePoint(m.cfg.Bucket, ZoneStatePoint(e))
}

// WritePerformance records one monitor sample as a "sim_performance" point.
func (m *Manager) WritePerformance(fields map[string]any) error {
	p := influxdb2_write.NewPoint("sim_performance", map[string]string{"bucket": m.cfg.Bucket}, fields, time.Now())
	return m.WritePoint(m.cfg.Bucket, p)
}

// Close flushes pending writes and closes the client and backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	if m.BackupWriter == nil {
		return nil
	}
	err := m.BackupWriter.Close()
	if cerr := m.backupFile.Close(); err == nil {
		err = cerr
	}
	m.BackupWriter = nil
	return err
}

// TransferPoint converts a transfer into a "zone_transfer" point.
func TransferPoint(e core.TransferEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"zone_transfer",
		map[string]string{
			"zone":      e.ZoneName,
			"kind":      e.ZoneKind,
			"direction": string(e.Direction),
			"vehicle":   e.VehicleID,
		},
		map[string]any{
			"sequence":  e.Sequence,
			"pitch":     e.Pitch,
			"sim_time":  e.SimTime.Seconds(),
			"passenger": e.PassengerID,
		},
		pointTime(e.Time),
	)
}

// ZoneStatePoint converts a state change into a "zone_state" point.
func ZoneStatePoint(e core.ZoneStateChange) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"zone_state",
		map[string]string{
			"zone": e.ZoneName,
			"kind": e.ZoneKind,
			"to":   e.To,
		},
		map[string]any{
			"from":        e.From,
			"waiting":     len(e.Waiting),
			"transferred": e.Transferred,
			"sim_time":    e.SimTime.Seconds(),
		},
		pointTime(e.Time),
	)
}

func pointTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
