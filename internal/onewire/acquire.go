package onewire

import (
	"context"
	"fmt"
	"strings"

	"github.com/piger/ferm-probe/internal/retry"
)

const crcValid = "YES"

// Acquirer obtains a validated temperature line from a probe, retrying while the probe
// reports a failed CRC.
type Acquirer struct {
	Reader RawReader
	Policy retry.Policy
}

// Acquire returns the temperature line of the probe with the given bus address.
//
// A file that can't be opened fails with ErrFileNotFound and an empty file with ErrFileEmpty,
// neither is retried. A failed CRC is retried according to the policy and fails with
// ErrNoSuccessfulReading once the attempts are exhausted.
func (a *Acquirer) Acquire(ctx context.Context, id string) (string, error) {
	var payload string

	err := a.Policy.Start(ctx, id, func(ctx context.Context) (bool, error) {
		lines, err := a.Reader.ReadLines(id)
		switch {
		case err != nil:
			return false, fmt.Errorf("%w: %s", ErrFileNotFound, err)
		case len(lines) == 0:
			return false, fmt.Errorf("%w: %s", ErrFileEmpty, id)
		case !crcPassed(lines[0]):
			return true, fmt.Errorf("%w: %s reported a failed crc", ErrNoSuccessfulReading, id)
		case len(lines) < 2:
			return false, fmt.Errorf("%w: %s has no temperature line", ErrMalformedRecord, id)
		}

		payload = lines[1]
		return false, nil
	})
	if err != nil {
		return "", err
	}

	return payload, nil
}

func crcPassed(line string) bool {
	return strings.HasSuffix(strings.TrimSpace(line), crcValid)
}
