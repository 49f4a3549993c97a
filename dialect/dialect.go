package dialect

import "strings"

// Dialect names for external usage.
const (
	Cassandra = "cassandra"
	Scylla    = "scylla"
)

// Normalize maps a driver name, possibly prefixed by wrapping drivers
// (e.g. "cassandra+stats"), to one of the dialect constants. Unknown names
// are returned unchanged.
func Normalize(name string) string {
	for _, d := range []string{Cassandra, Scylla} {
		if strings.HasPrefix(name, d) {
			return d
		}
	}
	return name
}
