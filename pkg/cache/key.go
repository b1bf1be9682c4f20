package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// keySeparator joins key components. Collection names are slugs and never
// contain it, so parsed components are unambiguous.
const keySeparator = "|"

// Key identifies one cached page. Collection plus sort field, direction and
// page size form the partition; Page addresses the page within it.
//
// Invalidation by collection compares the parsed Collection component for
// equality. A plain string-prefix match would make "song" invalidate
// "songs_*" as well, which is exactly the collision this structure avoids.
type Key struct {
	Collection string
	SortField  string
	Descending bool
	PageSize   int
	Page       int
}

// PartitionID is the stable identifier of the key's partition, without the
// page component.
func (k Key) PartitionID() string {
	return strings.Join([]string{k.Collection, k.SortField, directionToken(k.Descending), strconv.Itoa(k.PageSize)}, keySeparator)
}

// String renders the full cache key.
func (k Key) String() string {
	return k.PartitionID() + keySeparator + strconv.Itoa(k.Page)
}

// ParseKey parses a rendered key back into its components. Keys written by
// other tiers (different component counts) fail to parse and are skipped by
// structured invalidation.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, keySeparator)
	if len(parts) != 5 {
		return Key{}, fmt.Errorf("malformed cache key %q", s)
	}

	size, err := strconv.Atoi(parts[3])
	if err != nil {
		return Key{}, fmt.Errorf("malformed page size in cache key %q: %w", s, err)
	}
	page, err := strconv.Atoi(parts[4])
	if err != nil {
		return Key{}, fmt.Errorf("malformed page number in cache key %q: %w", s, err)
	}

	desc, err := parseDirectionToken(parts[2])
	if err != nil {
		return Key{}, fmt.Errorf("malformed cache key %q: %w", s, err)
	}

	return Key{
		Collection: parts[0],
		SortField:  parts[1],
		Descending: desc,
		PageSize:   size,
		Page:       page,
	}, nil
}

func directionToken(descending bool) string {
	if descending {
		return "desc"
	}
	return "asc"
}

func parseDirectionToken(s string) (bool, error) {
	switch s {
	case "asc":
		return false, nil
	case "desc":
		return true, nil
	default:
		return false, fmt.Errorf("unknown sort direction %q", s)
	}
}
