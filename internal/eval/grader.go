package eval

import (
	"strconv"
	"strings"
)

// LevelMarker separates a base paper id from its relevance level
const LevelMarker = "_level"

// Grading bounds. Level 1 is the closest variant and grades highest.
const (
	MinLevel = 1
	MaxLevel = 5
)

// Level parses the relevance level N of an id of the form <base>_level<N>.
// ok is false when the id has no marker or N is not an integer.
func Level(id string) (int, bool) {
	idx := strings.Index(id, LevelMarker)
	if idx < 0 {
		return 0, false
	}
	rest := id[idx+len(LevelMarker):]
	if next := strings.Index(rest, LevelMarker); next >= 0 {
		rest = rest[:next]
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Grade maps an id to its graded relevance: 6-N for levels 1..5, else 0
func Grade(id string) int {
	n, ok := Level(id)
	if !ok || n < MinLevel || n > MaxLevel {
		return 0
	}
	return MaxLevel + 1 - n
}

// BaseID returns the part of id before the level marker, or id itself
func BaseID(id string) string {
	if idx := strings.Index(id, LevelMarker); idx >= 0 {
		return id[:idx]
	}
	return id
}

// FilterByMaxLevel keeps ids whose level is between 1 and maxLevel,
// preserving input order. Ids without a parsable level are dropped.
func FilterByMaxLevel(ids []string, maxLevel int) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		n, ok := Level(id)
		if !ok || n < MinLevel || n > maxLevel {
			continue
		}
		out = append(out, id)
	}
	return out
}
