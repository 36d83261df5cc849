package onewire

import (
	"fmt"
	"path/filepath"
	"sort"
)

// familyPrefix is the bus address prefix of the DS18B20 family.
const familyPrefix = "28-"

// Discover returns the bus addresses of the probes found in dir, sorted by address.
func Discover(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, familyPrefix+"*"))
	if err != nil {
		return nil, fmt.Errorf("searching probes in %s: %w", dir, err)
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = filepath.Base(m)
	}
	sort.Strings(ids)

	return ids, nil
}
