package config

import "regexp"

var (
	// busAddress matches a DS18B20 one-wire address, e.g. 28-0316a2795cff.
	busAddress = regexp.MustCompile(`(?i)^28-[0-9a-f]{12}$`)

	tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)
