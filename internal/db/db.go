// Package db stores the readings in a PostgreSQL table, one row per probe and poll cycle.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/piger/ferm-probe/internal/probe"
)

var DBConnTimeout = 1 * time.Minute

var ColumnNames = []string{
	"time",
	"name",
	"position",
	"sensor_id",
	"temperature",
	"class",
	"error",
}

func MakeColumnString(names []string) string {
	return strings.Join(names, ",")
}

func MakeValuesString(names []string) string {
	result := make([]string, len(names))
	for i := range names {
		result[i] = fmt.Sprintf("$%d", i+1)
	}

	return strings.Join(result, ",")
}

// Writer inserts the snapshots of each poll cycle into a table. A new connection is opened for
// every cycle; cycles are minutes apart.
type Writer struct {
	url   string
	query string
}

func NewWriter(url, table string) *Writer {
	w := Writer{
		url: url,
		query: fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)",
			table, MakeColumnString(ColumnNames), MakeValuesString(ColumnNames)),
	}
	return &w
}

func (w *Writer) Name() string { return "postgres" }

func (w *Writer) Write(ctx context.Context, t time.Time, snaps []probe.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, DBConnTimeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, w.url)
	if err != nil {
		return fmt.Errorf("error connecting to DB: %w", err)
	}
	defer conn.Close(ctx)

	batch := &pgx.Batch{}
	for _, snap := range snaps {
		batch.Queue(w.query, rowValues(t, snap)...)
	}

	br := conn.SendBatch(ctx, batch)
	for range snaps {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("error writing row to DB: %w", err)
		}
	}

	return br.Close()
}

func (w *Writer) Close() error { return nil }

// rowValues returns the values of a row in ColumnNames order; the temperature and the error
// are NULL when they don't apply.
func rowValues(t time.Time, snap probe.Snapshot) []interface{} {
	var (
		temperature *float64
		errText     *string
	)
	if snap.Latest.OK() {
		v := snap.Latest.Fahrenheit
		temperature = &v
	} else {
		label := probe.ErrorLabel(snap.Latest.Err)
		errText = &label
	}

	return []interface{}{
		t,
		snap.Name,
		snap.Position,
		snap.ID,
		temperature,
		snap.Class.String(),
		errText,
	}
}
