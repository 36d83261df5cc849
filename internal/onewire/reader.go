package onewire

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

const slaveFile = "w1_slave"

// RawReader returns the raw lines of a probe's record.
type RawReader interface {
	ReadLines(id string) ([]string, error)
}

// FileReader reads records from the w1 sysfs tree rooted at Dir.
type FileReader struct {
	Dir string
}

// Path returns the path of the record file of the probe with the given bus address.
func (r FileReader) Path(id string) string {
	return filepath.Join(r.Dir, id, slaveFile)
}

// ReadLines opens the record of a probe and returns its lines; it doesn't retry.
func (r FileReader) ReadLines(id string) ([]string, error) {
	fh, err := os.Open(r.Path(id))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", r.Path(id), err)
	}
	defer fh.Close()

	var lines []string
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.Path(id), err)
	}

	return lines, nil
}
