// Package store writes the fermentation logs: an append-only CSV file with one row per probe
// per poll cycle, and a JSON file holding the whole session, rewritten after each cycle.
//
// Files are created under <dir>/csv and <dir>/json and named after the time the session started,
// e.g. ferm_temp_data_log_Dec-17-2018_04-32-56.csv.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	filePrefix     = "ferm_temp_data_log_"
	fileLayout     = "Jan-02-2006_03-04-05"
	timestampValue = "Mon, Jan 02, 2006 03:04:05 PM"
)

func logPath(dir, kind string, started time.Time) (string, error) {
	sub := filepath.Join(dir, kind)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", fmt.Errorf("cannot create log dir: %w", err)
	}
	return filepath.Join(sub, filePrefix+started.Format(fileLayout)+"."+kind), nil
}

func formatTemp(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatTemp(*f)
}
