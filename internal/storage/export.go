package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/Elib27/galaxy-simulation/internal/metrics"
)

type ExportData struct {
	Run     RunMetadata      `json:"run"`
	Samples []metrics.Sample `json:"samples"`
}

// Export writes a run and its telemetry as one JSON document.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Run: *meta, Samples: samples})
}

func (s *Store) ExportFile(path, runID string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.Export(file, runID)
}
