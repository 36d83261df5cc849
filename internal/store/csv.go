package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/piger/ferm-probe/internal/probe"
)

var csvHeader = []string{
	"Sensor Name",
	"Sensor Position",
	"Sensor ID",
	"Timestamp",
	"Recorded Temp",
	"Target Temp",
	"Allowed Temp Range",
	"Highest Recorded Temp",
	"Lowest Recorded Temp",
	"% Spent Above Temp Range",
	"% Spent Within Temp Range",
	"% Spent Below Temp Range",
	"% Spent in Error State",
	"Error",
}

// CSVLog appends one row per probe after each poll cycle; rows are never rewritten.
type CSVLog struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVLog creates the CSV file of a session started at the given time and writes its header.
func NewCSVLog(dir string, started time.Time) (*CSVLog, error) {
	path, err := logPath(dir, "csv", started)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening csv log: %w", err)
	}

	l := CSVLog{path: path, file: f, writer: csv.NewWriter(f)}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := l.writer.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
		l.writer.Flush()
		if err := l.writer.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &l, nil
}

// Path returns the path of the CSV file.
func (l *CSVLog) Path() string { return l.path }

func (l *CSVLog) Name() string { return "csv" }

// Write appends the snapshots of a poll cycle.
func (l *CSVLog) Write(_ context.Context, _ time.Time, snaps []probe.Snapshot) error {
	for _, s := range snaps {
		row := []string{
			s.Name,
			strconv.Itoa(s.Position),
			s.ID,
			s.Latest.Time.Format(timestampValue),
			formatTemp(s.Latest.Value()),
			formatTemp(s.Target.Target),
			s.Target.String(),
			formatOptional(s.Highest),
			formatOptional(s.Lowest),
			formatTemp(s.Percentages.Above),
			formatTemp(s.Percentages.Within),
			formatTemp(s.Percentages.Below),
			formatTemp(s.Percentages.Error),
			s.ErrorLabel(),
		}
		if err := l.writer.Write(row); err != nil {
			return err
		}
	}
	l.writer.Flush()
	return l.writer.Error()
}

// Close flushes and closes the file.
func (l *CSVLog) Close() error {
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
