package taxonomy

import (
	"context"
	"errors"
	"testing"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTaxonomyRepo struct {
	entries map[domain.TaxonomyCategory][]domain.TaxonomyEntry
	err     error
}

func (f *fakeTaxonomyRepo) List(_ context.Context, category domain.TaxonomyCategory) ([]domain.TaxonomyEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.TaxonomyEntry(nil), f.entries[category]...), nil
}

func (f *fakeTaxonomyRepo) Replace(_ context.Context, category domain.TaxonomyCategory, entries []domain.TaxonomyEntry) error {
	f.entries[category] = entries
	return nil
}

func regionsSource(entries ...domain.TaxonomyEntry) *PageSource {
	repo := &fakeTaxonomyRepo{entries: map[domain.TaxonomyCategory][]domain.TaxonomyEntry{
		domain.TaxonomyRegions: entries,
	}}
	return NewPageSource(repo, domain.TaxonomyRegions)
}

func region(id, name string, order int) domain.TaxonomyEntry {
	return domain.TaxonomyEntry{ID: id, Name: name, SortOrder: order}
}

func ids(entries []domain.TaxonomyEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestPageSource_DefaultSortUsesSortOrder(t *testing.T) {
	src := regionsSource(
		region("r3", "Alentejo", 3),
		region("r1", "Minho", 1),
		region("r2", "Beira", 2),
	)

	page, err := src.Page(context.Background(), ports.PageRequest{Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids(page.Items))
	assert.Equal(t, ports.Cursor("r1"), page.First)
	assert.Equal(t, ports.Cursor("r3"), page.Last)
}

func TestPageSource_NameSortIsCaseInsensitive(t *testing.T) {
	src := regionsSource(
		region("r1", "minho", 1),
		region("r2", "Alentejo", 2),
		region("r3", "beira", 3),
	)

	page, err := src.Page(context.Background(), ports.PageRequest{SortField: "name", Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3", "r1"}, ids(page.Items))
}

func TestPageSource_DescendingReversesOrder(t *testing.T) {
	src := regionsSource(
		region("r1", "Minho", 1),
		region("r2", "Beira", 2),
	)

	page, err := src.Page(context.Background(), ports.PageRequest{Descending: true, Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, ids(page.Items))
}

func TestPageSource_AfterCursorWindows(t *testing.T) {
	src := regionsSource(
		region("r1", "Minho", 1),
		region("r2", "Beira", 2),
		region("r3", "Alentejo", 3),
		region("r4", "Algarve", 4),
	)
	ctx := context.Background()

	first, err := src.Page(ctx, ports.PageRequest{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids(first.Items))

	second, err := src.Page(ctx, ports.PageRequest{Limit: 2, After: first.Last})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r4"}, ids(second.Items))

	// Past the end there is nothing left.
	third, err := src.Page(ctx, ports.PageRequest{Limit: 2, After: second.Last})
	require.NoError(t, err)
	assert.Empty(t, third.Items)
	assert.Empty(t, string(third.First))
}

func TestPageSource_BeforeCursorPreservesOrder(t *testing.T) {
	src := regionsSource(
		region("r1", "Minho", 1),
		region("r2", "Beira", 2),
		region("r3", "Alentejo", 3),
		region("r4", "Algarve", 4),
	)

	page, err := src.Page(context.Background(), ports.PageRequest{Limit: 2, Before: "r4"})

	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3"}, ids(page.Items), "the window immediately precedes the cursor in list order")
}

func TestPageSource_BeforeCursorClampsAtStart(t *testing.T) {
	src := regionsSource(
		region("r1", "Minho", 1),
		region("r2", "Beira", 2),
	)

	page, err := src.Page(context.Background(), ports.PageRequest{Limit: 5, Before: "r2"})

	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(page.Items))
}

func TestPageSource_StaleCursorIsAnError(t *testing.T) {
	src := regionsSource(region("r1", "Minho", 1))

	_, err := src.Page(context.Background(), ports.PageRequest{Limit: 2, After: "deleted-id"})
	assert.Error(t, err)

	_, err = src.Page(context.Background(), ports.PageRequest{Limit: 2, Before: "deleted-id"})
	assert.Error(t, err)
}

func TestPageSource_UnknownSortFieldIsAnError(t *testing.T) {
	src := regionsSource(region("r1", "Minho", 1))

	_, err := src.Page(context.Background(), ports.PageRequest{SortField: "population", Limit: 2})
	assert.Error(t, err)
}

func TestPageSource_Count(t *testing.T) {
	src := regionsSource(
		region("r1", "Minho", 1),
		region("r2", "Beira", 2),
	)

	n, err := src.Count(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPageSource_RepositoryErrorPropagates(t *testing.T) {
	repo := &fakeTaxonomyRepo{err: errors.New("table unavailable")}
	src := NewPageSource(repo, domain.TaxonomyRegions)

	_, err := src.Page(context.Background(), ports.PageRequest{Limit: 2})
	assert.Error(t, err)

	_, err = src.Count(context.Background())
	assert.Error(t, err)
}
