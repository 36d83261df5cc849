package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/piger/ferm-probe/internal/probe"
)

// Document is the content of the JSON log.
type Document struct {
	Session uuid.UUID   `json:"session"`
	Started time.Time   `json:"started"`
	Probes  []ProbeData `json:"probes"`
}

// ProbeData is the whole history of a probe.
type ProbeData struct {
	Name             string            `json:"name"`
	Position         int               `json:"position"`
	ID               string            `json:"id"`
	TargetTemp       float64           `json:"target_temp"`
	AllowedTempRange string            `json:"allowed_temp_range"`
	RecordedTempData []RecordedTemp    `json:"recorded_temp_data"`
	HighestTemp      *float64          `json:"highest_recorded_temp"`
	LowestTemp       *float64          `json:"lowest_recorded_temp"`
	Percentages      probe.Percentages `json:"percent_spent"`
	Error            string            `json:"error,omitempty"`
}

// RecordedTemp is one reading; failed readings are recorded as 0.0 with class ERROR.
type RecordedTemp struct {
	Timestamp time.Time   `json:"timestamp"`
	TempF     float64     `json:"temp_f"`
	Class     probe.Class `json:"class"`
}

// JSONLog keeps the whole session in a JSON file, rewritten in full after every cycle. Fine for
// a handful of probes polled every few minutes; the file grows with the session.
type JSONLog struct {
	path string
	doc  Document
}

// NewJSONLog creates the JSON file of a session, listing the probes with no readings yet.
func NewJSONLog(dir string, session uuid.UUID, started time.Time, probes []probe.Snapshot) (*JSONLog, error) {
	path, err := logPath(dir, "json", started)
	if err != nil {
		return nil, err
	}

	l := JSONLog{
		path: path,
		doc:  Document{Session: session, Started: started, Probes: make([]ProbeData, 0, len(probes))},
	}
	for _, s := range probes {
		l.doc.Probes = append(l.doc.Probes, newProbeData(s))
	}

	if err := l.flush(); err != nil {
		return nil, err
	}
	return &l, nil
}

func newProbeData(s probe.Snapshot) ProbeData {
	pd := ProbeData{
		Name:             s.Name,
		Position:         s.Position,
		ID:               s.ID,
		RecordedTempData: []RecordedTemp{},
	}
	pd.update(s)
	return pd
}

func (pd *ProbeData) update(s probe.Snapshot) {
	pd.TargetTemp = s.Target.Target
	pd.AllowedTempRange = s.Target.String()
	pd.HighestTemp = s.Highest
	pd.LowestTemp = s.Lowest
	pd.Percentages = s.Percentages
	pd.Error = s.ErrorLabel()
}

// Path returns the path of the JSON file.
func (l *JSONLog) Path() string { return l.path }

func (l *JSONLog) Name() string { return "json" }

// Write adds the snapshots of a poll cycle to the document and rewrites the file.
func (l *JSONLog) Write(_ context.Context, _ time.Time, snaps []probe.Snapshot) error {
	for _, s := range snaps {
		pd := l.lookup(s)
		pd.RecordedTempData = append(pd.RecordedTempData, RecordedTemp{
			Timestamp: s.Latest.Time,
			TempF:     s.Latest.Value(),
			Class:     s.Class,
		})
		pd.update(s)
	}
	return l.flush()
}

func (l *JSONLog) lookup(s probe.Snapshot) *ProbeData {
	for i := range l.doc.Probes {
		if l.doc.Probes[i].ID == s.ID && l.doc.Probes[i].Position == s.Position {
			return &l.doc.Probes[i]
		}
	}
	l.doc.Probes = append(l.doc.Probes, newProbeData(s))
	return &l.doc.Probes[len(l.doc.Probes)-1]
}

// flush writes the document to a temporary file and renames it over the log, so a crash never
// leaves a truncated file behind.
func (l *JSONLog) flush() error {
	data, err := json.MarshalIndent(l.doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding json log: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ferm-*.json")
	if err != nil {
		return fmt.Errorf("writing json log: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing json log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing json log: %w", err)
	}

	return os.Rename(tmp.Name(), l.path)
}

// Close is a no-op: the file is complete after every Write.
func (l *JSONLog) Close() error { return nil }
