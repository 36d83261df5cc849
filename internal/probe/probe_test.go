package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/piger/ferm-probe/internal/onewire"
	"github.com/piger/ferm-probe/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	writes [][]Snapshot
	times  []time.Time
	err    error
	closed bool
}

func (m *memorySink) Write(_ context.Context, t time.Time, snaps []Snapshot) error {
	m.writes = append(m.writes, snaps)
	m.times = append(m.times, t)
	return m.err
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

func writeRecord(t *testing.T, dir, id string, milliC string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, id), 0o755))
	content := "72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n72 01 4b 46 7f ff 0e 10 57 t=" + milliC + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, id, "w1_slave"), []byte(content), 0o644))
}

func newFileSensors(dir string, ids ...string) []*Sensor {
	acq := &onewire.Acquirer{
		Reader: onewire.FileReader{Dir: dir},
		Policy: &retry.Fixed{MaxAttempts: 5, After: func(time.Duration) <-chan time.Time {
			ch := make(chan time.Time, 1)
			ch <- time.Time{}
			return ch
		}},
	}

	sensors := make([]*Sensor, len(ids))
	for i, id := range ids {
		sensors[i] = NewSensor(Identity{Name: "probe " + id, Position: i + 1, ID: id}, fermRange, acq, nil, nil)
	}
	return sensors
}

func TestCycleIsolatesFailingProbe(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "28-000001", "20000")
	writeRecord(t, dir, "28-000003", "19000")

	sink := &memorySink{}
	m, err := New(newFileSensors(dir, "28-000001", "28-000002", "28-000003"), MinInterval, nil, sink)
	require.NoError(t, err)

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	snaps := m.Cycle(context.Background(), now)
	require.Len(t, snaps, 3)

	assert.True(t, snaps[0].Latest.OK())
	assert.Equal(t, 68.0, snaps[0].Latest.Fahrenheit)

	assert.False(t, snaps[1].Latest.OK())
	assert.ErrorIs(t, snaps[1].Err, onewire.ErrFileNotFound)
	assert.Equal(t, Error, snaps[1].Class)

	assert.True(t, snaps[2].Latest.OK())
	assert.Equal(t, 66.2, snaps[2].Latest.Fahrenheit)

	for i, snap := range snaps {
		assert.Equal(t, i+1, snap.Position, "list order is kept")
		assert.Equal(t, now, snap.Latest.Time, "every probe shares the timestamp")
	}

	require.Len(t, sink.writes, 1)
	assert.Equal(t, snaps, sink.writes[0])
	assert.Equal(t, now, sink.times[0])
}

func TestCycleInvariantHolds(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "28-000001", "20000")

	m, err := New(newFileSensors(dir, "28-000001", "28-000002"), MinInterval, nil)
	require.NoError(t, err)

	values := []string{"20000", "25000", "10000", "60000", "garbage"}
	for i := 0; i < 20; i++ {
		writeRecord(t, dir, "28-000001", values[i%len(values)])
		m.Cycle(context.Background(), time.Now())

		for _, s := range m.Sensors() {
			sum := 0
			for _, c := range Classes {
				sum += s.Count(c)
			}
			require.Equal(t, len(s.Readings()), sum)
			require.Equal(t, i+1, len(s.Readings()))
		}
	}
}

func TestCycleContinuesAfterSinkError(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "28-000001", "20000")

	failing := &memorySink{err: errors.New("disk full")}
	after := &memorySink{}
	m, err := New(newFileSensors(dir, "28-000001"), MinInterval, nil, failing, after)
	require.NoError(t, err)

	m.Cycle(context.Background(), time.Now())
	assert.Len(t, failing.writes, 1)
	assert.Len(t, after.writes, 1)
}

func TestNewRequiresProbes(t *testing.T) {
	_, err := New(nil, MinInterval, nil)
	assert.ErrorIs(t, err, ErrNoProbes)
}

func TestNewClampsInterval(t *testing.T) {
	sensors := newFileSensors(t.TempDir(), "28-000001")

	m, err := New(sensors, 30*time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, MinInterval, m.Interval())

	m, err = New(sensors, 5*time.Minute, nil)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, m.Interval())
}

func TestRunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "28-000001", "20000")

	sink := &memorySink{}
	m, err := New(newFileSensors(dir, "28-000001"), MinInterval, nil, sink)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, m.Run(ctx))
	assert.Len(t, sink.writes, 1, "the first cycle runs immediately")
}

func TestCloseReleasesIndicators(t *testing.T) {
	ind := &recordingIndicator{}
	sink := &memorySink{}
	s := NewSensor(Identity{Name: "a", Position: 1, ID: "28-000001"}, fermRange, &scripted{}, ind, nil)

	m, err := New([]*Sensor{s}, MinInterval, nil, sink)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.True(t, ind.off)
	assert.True(t, sink.closed)
}
