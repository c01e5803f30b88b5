// Package anywin draws fixed-size sequence windows from a
// merged genome and packs them into training batches.
//
// A Generator composes an eligibility Filter, an optional
// Balancer, a Sampler and an Assembler.
// Epochs are planned ahead of time, so fetching a batch is
// read-only and may be repeated until NextEpoch is called.
package anywin

import "fmt"

// A ConfigError reports an invalid generator setting.
type ConfigError struct {
	Field string
	Msg   string
}

// Error returns a description of the problem.
func (c *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", c.Field, c.Msg)
}

// A Strand selects which orientation windows are read in.
type Strand int

const (
	Both Strand = iota
	Forward
	Reverse
)

// ParseStrand parses "for", "rev" or "both".
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "for":
		return Forward, nil
	case "rev":
		return Reverse, nil
	case "both":
		return Both, nil
	default:
		return 0, &ConfigError{Field: "strand", Msg: fmt.Sprintf("unknown strand %q", s)}
	}
}

// String returns the name accepted by ParseStrand.
func (s Strand) String() string {
	switch s {
	case Forward:
		return "for"
	case Reverse:
		return "rev"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("Strand(%d)", int(s))
	}
}

// A Draw is one sampled window: a merged-coordinate center
// and the strand to read it on.
type Draw struct {
	Pos     int
	Reverse bool
}
