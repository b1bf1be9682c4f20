// Package taxonomy adapts the flat taxonomy collections to the paged query
// surface the pagination tier expects. Categories are small enough to load
// whole; paging happens in memory so the backoffice tables behave the same
// for every collection.
package taxonomy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"
)

// PageSource serves one category as an ordered, cursor-addressable list.
type PageSource struct {
	repo     ports.TaxonomyRepository
	category domain.TaxonomyCategory
}

// NewPageSource creates a paged view over one taxonomy category.
func NewPageSource(repo ports.TaxonomyRepository, category domain.TaxonomyCategory) *PageSource {
	return &PageSource{repo: repo, category: category}
}

// Page implements ports.PageSource. Cursors are entry ids; they stay valid
// for as long as the entry exists under the requested sort.
func (s *PageSource) Page(ctx context.Context, req ports.PageRequest) (ports.Page[domain.TaxonomyEntry], error) {
	entries, err := s.sorted(ctx, req.SortField, req.Descending)
	if err != nil {
		return ports.Page[domain.TaxonomyEntry]{}, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = len(entries)
	}

	var window []domain.TaxonomyEntry
	switch {
	case req.After != "":
		idx := indexOf(entries, string(req.After))
		if idx < 0 {
			return ports.Page[domain.TaxonomyEntry]{}, fmt.Errorf("stale cursor for %s", s.category)
		}
		window = take(entries[idx+1:], limit)
	case req.Before != "":
		idx := indexOf(entries, string(req.Before))
		if idx < 0 {
			return ports.Page[domain.TaxonomyEntry]{}, fmt.Errorf("stale cursor for %s", s.category)
		}
		start := idx - limit
		if start < 0 {
			start = 0
		}
		window = entries[start:idx]
	default:
		window = take(entries, limit)
	}

	page := ports.Page[domain.TaxonomyEntry]{Items: window}
	if len(window) > 0 {
		page.First = ports.Cursor(window[0].ID)
		page.Last = ports.Cursor(window[len(window)-1].ID)
	}
	return page, nil
}

// Count implements ports.PageSource.
func (s *PageSource) Count(ctx context.Context) (int, error) {
	entries, err := s.repo.List(ctx, s.category)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *PageSource) sorted(ctx context.Context, field string, descending bool) ([]domain.TaxonomyEntry, error) {
	entries, err := s.repo.List(ctx, s.category)
	if err != nil {
		return nil, err
	}

	var less func(a, b domain.TaxonomyEntry) bool
	switch field {
	case "", "sortOrder":
		less = func(a, b domain.TaxonomyEntry) bool {
			if a.SortOrder != b.SortOrder {
				return a.SortOrder < b.SortOrder
			}
			return nameLess(a, b)
		}
	case "name":
		less = nameLess
	default:
		return nil, fmt.Errorf("%s cannot be sorted by %q", s.category, field)
	}

	out := make([]domain.TaxonomyEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out, nil
}

// nameLess orders case-insensitively, with the id breaking ties so equal
// names still order deterministically.
func nameLess(a, b domain.TaxonomyEntry) bool {
	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}

func indexOf(entries []domain.TaxonomyEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func take(entries []domain.TaxonomyEntry, limit int) []domain.TaxonomyEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
