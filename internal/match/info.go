package match

import (
	"fmt"
	"regexp"
)

// Aggregate selects how a Stat folds its matches into one number.
type Aggregate string

const (
	AggregateCount       Aggregate = "count"
	AggregateUniqueCount Aggregate = "unique_count"
	AggregateFileCount   Aggregate = "file_count"
)

// ParseAggregate validates an aggregate name; the empty string means count.
func ParseAggregate(s string) (Aggregate, error) {
	switch Aggregate(s) {
	case "", AggregateCount:
		return AggregateCount, nil
	case AggregateUniqueCount, AggregateFileCount:
		return Aggregate(s), nil
	default:
		return "", fmt.Errorf("unknown aggregate %q", s)
	}
}

// Stat is an informational measurement over the file set. It never affects
// pass or fail counts.
type Stat struct {
	ID        string
	Label     string
	Pattern   *regexp.Regexp
	Aggregate Aggregate
}

// Compute evaluates the stat over srcs.
//
// For unique_count the first capture group is counted when the pattern has
// one, the whole match otherwise.
func (s *Stat) Compute(srcs []*Source) int {
	total := 0
	files := 0
	unique := make(map[string]struct{})

	for _, src := range srcs {
		hits := 0
		for _, line := range src.Lines {
			for _, m := range s.Pattern.FindAllStringSubmatch(line, -1) {
				hits++
				key := m[0]
				if len(m) > 1 && m[1] != "" {
					key = m[1]
				}
				unique[key] = struct{}{}
			}
		}
		total += hits
		if hits > 0 {
			files++
		}
	}

	switch s.Aggregate {
	case AggregateUniqueCount:
		return len(unique)
	case AggregateFileCount:
		return files
	default:
		return total
	}
}
