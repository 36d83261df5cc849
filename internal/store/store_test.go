package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/piger/ferm-probe/internal/onewire"
	"github.com/piger/ferm-probe/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fermRange = probe.TargetRange{Target: 68, PositiveAllowance: 2, NegativeAllowance: 2}

// cycle builds the snapshots of two probes after feeding them the given readings.
func cycle(sensors []*probe.Sensor, readings ...probe.Reading) []probe.Snapshot {
	snaps := make([]probe.Snapshot, len(sensors))
	for i, s := range sensors {
		s.Add(readings[i])
		snaps[i] = s.Snapshot()
	}
	return snaps
}

func newSensors() []*probe.Sensor {
	return []*probe.Sensor{
		probe.NewSensor(probe.Identity{Name: "Fermenter", Position: 1, ID: "28-0000000000a1"}, fermRange, nil, nil, nil),
		probe.NewSensor(probe.Identity{Name: "Ambient", Position: 2, ID: "28-0000000000a2"}, fermRange, nil, nil, nil),
	}
}

func TestCSVLog(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2018, 12, 17, 16, 32, 56, 0, time.Local)

	l, err := NewCSVLog(dir, started)
	require.NoError(t, err)
	assert.Equal(t, dir+"/csv/ferm_temp_data_log_Dec-17-2018_04-32-56.csv", l.Path())

	sensors := newSensors()
	t1 := started.Add(time.Minute)
	t2 := started.Add(3 * time.Minute)
	ctx := context.Background()

	require.NoError(t, l.Write(ctx, t1, cycle(sensors,
		probe.Success(t1, 68.5),
		probe.Failure(t1, fmt.Errorf("%w: 28-0000000000a2", onewire.ErrFileNotFound)),
	)))
	require.NoError(t, l.Write(ctx, t2, cycle(sensors,
		probe.Success(t2, 71.25),
		probe.Success(t2, 64.0),
	)))
	require.NoError(t, l.Close())

	f, err := os.Open(l.Path())
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{
		"Fermenter", "1", "28-0000000000a1", "Mon, Dec 17, 2018 04:33:56 PM", "68.50", "68.00", "66-70",
		"68.50", "68.50", "0.00", "100.00", "0.00", "0.00", "",
	}, records[1])
	assert.Equal(t, []string{
		"Ambient", "2", "28-0000000000a2", "Mon, Dec 17, 2018 04:33:56 PM", "0.00", "68.00", "66-70",
		"", "", "0.00", "0.00", "0.00", "100.00", "FILE NOT FOUND",
	}, records[2])
	assert.Equal(t, "71.25", records[3][4])
	assert.Equal(t, "71.25", records[3][7])
	assert.Equal(t, "50.00", records[3][9])
	assert.Equal(t, "64.00", records[4][8])
	assert.Equal(t, "", records[4][13])
}

func TestCSVLogAppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2018, 12, 17, 16, 32, 56, 0, time.Local)

	l, err := NewCSVLog(dir, started)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = NewCSVLog(dir, started)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1, "the header is written once")
}

func TestJSONLog(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2018, 12, 17, 16, 32, 56, 0, time.UTC)
	session := uuid.New()
	sensors := newSensors()

	initial := []probe.Snapshot{sensors[0].Snapshot(), sensors[1].Snapshot()}
	l, err := NewJSONLog(dir, session, started, initial)
	require.NoError(t, err)

	doc := readDocument(t, l.Path())
	assert.Equal(t, session, doc.Session)
	require.Len(t, doc.Probes, 2)
	assert.Empty(t, doc.Probes[0].RecordedTempData)
	assert.Nil(t, doc.Probes[0].HighestTemp)

	t1 := started.Add(2 * time.Minute)
	t2 := started.Add(4 * time.Minute)
	ctx := context.Background()
	require.NoError(t, l.Write(ctx, t1, cycle(sensors,
		probe.Success(t1, 69.0),
		probe.Failure(t1, onewire.ErrFileEmpty),
	)))
	require.NoError(t, l.Write(ctx, t2, cycle(sensors,
		probe.Success(t2, 72.0),
		probe.Success(t2, 67.5),
	)))
	require.NoError(t, l.Close())

	doc = readDocument(t, l.Path())
	require.Len(t, doc.Probes, 2)

	fermenter := doc.Probes[0]
	assert.Equal(t, "Fermenter", fermenter.Name)
	assert.Equal(t, "66-70", fermenter.AllowedTempRange)
	assert.Equal(t, []RecordedTemp{
		{Timestamp: t1, TempF: 69.0, Class: probe.Within},
		{Timestamp: t2, TempF: 72.0, Class: probe.Above},
	}, fermenter.RecordedTempData)
	require.NotNil(t, fermenter.HighestTemp)
	assert.Equal(t, 72.0, *fermenter.HighestTemp)
	assert.Equal(t, 69.0, *fermenter.LowestTemp)
	assert.Equal(t, probe.Percentages{Above: 50, Within: 50}, fermenter.Percentages)

	ambient := doc.Probes[1]
	assert.Equal(t, 0.0, ambient.RecordedTempData[0].TempF)
	assert.Equal(t, probe.Error, ambient.RecordedTempData[0].Class)
	assert.Equal(t, "", ambient.Error, "the error is cleared by the next successful reading")
	assert.Equal(t, probe.Percentages{Within: 50, Error: 50}, ambient.Percentages)
}

func readDocument(t *testing.T, path string) Document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}
