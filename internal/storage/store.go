// Package storage keeps run records on disk: one directory per run holding
// metadata.json and telemetry.csv.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/Elib27/galaxy-simulation/internal/metrics"
	"github.com/Elib27/galaxy-simulation/internal/sim"
)

const (
	metadataFile  = "metadata.json"
	telemetryFile = "telemetry.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Preset       string             `json:"preset,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
	Seed         int64              `json:"seed"`
	Stars        int                `json:"stars"`
	InitialSpeed float64            `json:"initial_speed"`
	TimeStep     float64            `json:"time_step"`
	Theta        float64            `json:"theta"`
	Softening    float64            `json:"softening"`
	BoundSize    float64            `json:"bound_size"`
	MinCellSize  float64            `json:"min_cell_size"`
	Dt           float64            `json:"dt"`
	Steps        int                `json:"steps"`
	SimTime      float64            `json:"sim_time"`
	Elapsed      float64            `json:"elapsed_seconds"`
	Metrics      map[string]float64 `json:"metrics"`
}

// NewMetadata fills the parameter fields of a record from p.
func NewMetadata(p sim.Params, seed int64, dt float64) RunMetadata {
	return RunMetadata{
		Timestamp:    time.Now(),
		Seed:         seed,
		Stars:        p.Stars,
		InitialSpeed: p.InitialSpeed,
		TimeStep:     p.TimeStep,
		Theta:        p.Theta,
		Softening:    p.Softening,
		BoundSize:    p.BoundSize,
		MinCellSize:  p.MinCellSize,
		Dt:           dt,
	}
}

// Run is an open run directory. Samples are appended to telemetry.csv as
// they arrive; metadata is written on Close.
type Run struct {
	ID            string
	dir           string
	file          *os.File
	headerWritten bool
}

// Open creates a fresh run directory.
func (s *Store) Open() (*Run, error) {
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	base := fmt.Sprintf("galaxy_%d", time.Now().Unix())
	id := base
	for i := 1; ; i++ {
		err := os.Mkdir(filepath.Join(s.baseDir, id), 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating run directory: %w", err)
		}
		id = fmt.Sprintf("%s_%d", base, i)
	}

	dir := filepath.Join(s.baseDir, id)
	f, err := os.Create(filepath.Join(dir, telemetryFile))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", telemetryFile, err)
	}
	return &Run{ID: id, dir: dir, file: f}, nil
}

// Append writes samples to telemetry.csv, with a header on the first call.
func (r *Run) Append(samples ...metrics.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	if !r.headerWritten {
		if err := gocsv.Marshal(samples, r.file); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		r.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(samples, r.file); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// Close writes metadata.json and closes the telemetry file.
func (r *Run) Close(meta RunMetadata) error {
	meta.ID = r.ID
	closeErr := r.file.Close()

	f, err := os.Create(filepath.Join(r.dir, metadataFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", metadataFile, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("writing %s: %w", metadataFile, err)
	}
	return closeErr
}

// Save writes a complete run in one call and returns its ID.
func (s *Store) Save(meta RunMetadata, samples []metrics.Sample) (string, error) {
	run, err := s.Open()
	if err != nil {
		return "", err
	}
	if err := run.Append(samples...); err != nil {
		run.file.Close()
		return "", err
	}
	if err := run.Close(meta); err != nil {
		return "", err
	}
	return run.ID, nil
}

// List returns all readable runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing %s for %s: %w", metadataFile, runID, err)
	}
	return &meta, nil
}

// Latest returns the most recent run.
func (s *Store) Latest() (*RunMetadata, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: store is empty", ErrRunNotFound)
	}
	return &runs[len(runs)-1], nil
}

func (s *Store) LoadSamples(runID string) ([]metrics.Sample, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, telemetryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return []metrics.Sample{}, nil
	}

	var samples []metrics.Sample
	if err := gocsv.UnmarshalFile(f, &samples); err != nil {
		return nil, fmt.Errorf("parsing %s for %s: %w", telemetryFile, runID, err)
	}
	return samples, nil
}
