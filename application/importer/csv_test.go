package importer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSongRepo struct {
	mu         sync.Mutex
	stored     []*domain.Song
	batchCalls int
	batchErr   error
}

func (f *fakeSongRepo) PutBatch(_ context.Context, songs []*domain.Song) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.batchErr != nil {
		return f.batchErr
	}
	f.stored = append(f.stored, songs...)
	return nil
}

func (f *fakeSongRepo) Page(context.Context, ports.PageRequest) (ports.Page[domain.Song], error) {
	return ports.Page[domain.Song]{}, errors.New("not implemented")
}

func (f *fakeSongRepo) Count(context.Context) (int, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeSongRepo) Get(context.Context, string) (*domain.Song, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeSongRepo) Put(context.Context, *domain.Song) error {
	return errors.New("not implemented")
}

func (f *fakeSongRepo) Delete(context.Context, string) error {
	return errors.New("not implemented")
}

const header = "title,description,lyrics,region,language,theme,country,keywords\n"

func TestCSVImporter_ImportsValidRows(t *testing.T) {
	repo := &fakeSongRepo{}
	imp := NewCSVImporter(repo, zap.NewNop())

	input := header +
		"Grandola Vila Morena,Carnation revolution anthem,Grandola vila morena...,alentejo,pt,protest,pt,revolution;april\n" +
		"Verdes Anos,Instrumental guitarrada,,lisboa,pt,saudade,pt,\n"

	result, err := imp.Import(context.Background(), strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Rejected)
	require.Len(t, repo.stored, 2)

	first := repo.stored[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Grandola Vila Morena", first.Title)
	assert.Equal(t, "alentejo", first.RegionID)
	assert.Equal(t, []string{"revolution", "april"}, first.Keywords)
	assert.False(t, first.CreatedAt.IsZero())

	assert.Nil(t, repo.stored[1].Keywords, "empty keywords column must not produce an empty string keyword")
}

func TestCSVImporter_BadRowsAreReportedNotFatal(t *testing.T) {
	repo := &fakeSongRepo{}
	imp := NewCSVImporter(repo, zap.NewNop())

	// Line 2 is missing a title, line 4 has too few columns.
	input := header +
		",missing title,,,,,,\n" +
		"Valid Song,ok,,,,,,\n" +
		"short,row\n"

	result, err := imp.Import(context.Background(), strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, 2, result.Rejected[0].Line, "line numbers are 1-based counting the header")
	assert.Equal(t, 4, result.Rejected[1].Line)
	require.Len(t, repo.stored, 1)
	assert.Equal(t, "Valid Song", repo.stored[0].Title)
}

func TestCSVImporter_RejectsWrongHeader(t *testing.T) {
	repo := &fakeSongRepo{}
	imp := NewCSVImporter(repo, zap.NewNop())

	input := "name,description,lyrics,region,language,theme,country,keywords\n" +
		"Some Song,ok,,,,,,\n"

	result, err := imp.Import(context.Background(), strings.NewReader(input))

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Zero(t, repo.batchCalls)
}

func TestCSVImporter_HeaderIsCaseInsensitive(t *testing.T) {
	repo := &fakeSongRepo{}
	imp := NewCSVImporter(repo, zap.NewNop())

	input := "Title,Description,Lyrics,Region,Language,Theme,Country,Keywords\n" +
		"Some Song,ok,,,,,,\n"

	result, err := imp.Import(context.Background(), strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
}

func TestCSVImporter_SingleBatchWrite(t *testing.T) {
	repo := &fakeSongRepo{}
	imp := NewCSVImporter(repo, zap.NewNop())

	var sb strings.Builder
	sb.WriteString(header)
	for i := 0; i < 50; i++ {
		sb.WriteString("Song,desc,,,,,,\n")
	}

	result, err := imp.Import(context.Background(), strings.NewReader(sb.String()))

	require.NoError(t, err)
	assert.Equal(t, 50, result.Imported)
	assert.Equal(t, 1, repo.batchCalls, "all rows go to storage in one batch call")
}

func TestCSVImporter_StorageFailureIsAnError(t *testing.T) {
	repo := &fakeSongRepo{batchErr: errors.New("throughput exceeded")}
	imp := NewCSVImporter(repo, zap.NewNop())

	input := header + "Some Song,ok,,,,,,\n"

	result, err := imp.Import(context.Background(), strings.NewReader(input))

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestCSVImporter_EmptyFileOnlyHeader(t *testing.T) {
	repo := &fakeSongRepo{}
	imp := NewCSVImporter(repo, zap.NewNop())

	result, err := imp.Import(context.Background(), strings.NewReader(header))

	require.NoError(t, err)
	assert.Zero(t, result.Imported)
	assert.Empty(t, result.Rejected)
	assert.Zero(t, repo.batchCalls)
}
