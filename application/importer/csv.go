// Package importer handles CSV bulk import of song records. Malformed rows
// are collected and reported; one bad row never aborts the import.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// expected CSV header, in order. Extra trailing columns are ignored.
var columns = []string{"title", "description", "lyrics", "region", "language", "theme", "country", "keywords"}

// RowError is one rejected row with the reason, 1-based including the
// header line so it matches what the operator sees in a spreadsheet.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result summarizes an import run.
type Result struct {
	Imported int        `json:"imported"`
	Rejected []RowError `json:"rejected,omitempty"`
}

// CSVImporter parses song CSVs into the repository in batches.
type CSVImporter struct {
	songs  ports.SongRepository
	logger *zap.Logger
}

// NewCSVImporter creates an importer writing through the given repository.
func NewCSVImporter(songs ports.SongRepository, logger *zap.Logger) *CSVImporter {
	return &CSVImporter{songs: songs, logger: logger}
}

// Import reads the CSV stream and stores every parseable row. The returned
// result lists rejected lines; an error is returned only when the stream
// itself or the storage write fails.
func (i *CSVImporter) Import(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	result := &Result{}
	var batch []*domain.Song
	line := 1

	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.Reader reports quoting problems per record; skip the
			// row and keep going.
			result.Rejected = append(result.Rejected, RowError{Line: line, Reason: err.Error()})
			continue
		}

		song, perr := parseRow(record)
		if perr != nil {
			result.Rejected = append(result.Rejected, RowError{Line: line, Reason: perr.Error()})
			continue
		}
		batch = append(batch, song)
	}

	if len(batch) > 0 {
		if err := i.songs.PutBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to store imported songs: %w", err)
		}
		result.Imported = len(batch)
	}

	i.logger.Info("CSV import finished",
		zap.Int("imported", result.Imported),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

func validateHeader(header []string) error {
	if len(header) < len(columns) {
		return fmt.Errorf("CSV header has %d columns, expected at least %d", len(header), len(columns))
	}
	for idx, name := range columns {
		if !strings.EqualFold(strings.TrimSpace(header[idx]), name) {
			return fmt.Errorf("CSV column %d is %q, expected %q", idx+1, header[idx], name)
		}
	}
	return nil
}

func parseRow(record []string) (*domain.Song, error) {
	if len(record) < len(columns) {
		return nil, fmt.Errorf("row has %d columns, expected %d", len(record), len(columns))
	}

	now := time.Now().UTC()
	song := &domain.Song{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(record[0]),
		Description: strings.TrimSpace(record[1]),
		Lyrics:      record[2],
		RegionID:    strings.TrimSpace(record[3]),
		LanguageID:  strings.TrimSpace(record[4]),
		ThemeID:     strings.TrimSpace(record[5]),
		CountryID:   strings.TrimSpace(record[6]),
		Keywords:    splitKeywords(record[7]),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := song.Validate(); err != nil {
		return nil, err
	}
	return song, nil
}

func splitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if kw := strings.TrimSpace(p); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
