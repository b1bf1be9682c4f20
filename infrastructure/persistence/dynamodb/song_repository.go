package dynamodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const songCollection = "songs"

// SongRepository persists songs in the shared table. Sorting by title runs
// on GSI1, by creation time on GSI2.
type SongRepository struct {
	client *Client
	logger *zap.Logger
}

// NewSongRepository creates a song repository.
func NewSongRepository(client *Client, logger *zap.Logger) ports.SongRepository {
	return &SongRepository{client: client, logger: logger}
}

// songItem is the DynamoDB item layout for a song.
type songItem struct {
	PK          string   `dynamodbav:"PK"`
	SK          string   `dynamodbav:"SK"`
	GSI1PK      string   `dynamodbav:"GSI1PK"`
	GSI1SK      string   `dynamodbav:"GSI1SK"`
	GSI2PK      string   `dynamodbav:"GSI2PK"`
	GSI2SK      string   `dynamodbav:"GSI2SK"`
	EntityType  string   `dynamodbav:"EntityType"`
	SongID      string   `dynamodbav:"SongID"`
	Title       string   `dynamodbav:"Title"`
	Description string   `dynamodbav:"Description"`
	Lyrics      string   `dynamodbav:"Lyrics,omitempty"`
	RegionID    string   `dynamodbav:"RegionID,omitempty"`
	LanguageID  string   `dynamodbav:"LanguageID,omitempty"`
	ThemeID     string   `dynamodbav:"ThemeID,omitempty"`
	CountryID   string   `dynamodbav:"CountryID,omitempty"`
	AudioRef    string   `dynamodbav:"AudioRef,omitempty"`
	ImageRef    string   `dynamodbav:"ImageRef,omitempty"`
	Keywords    []string `dynamodbav:"Keywords,omitempty"`
	CreatedAt   string   `dynamodbav:"CreatedAt"`
	UpdatedAt   string   `dynamodbav:"UpdatedAt"`
}

func songToItem(s *domain.Song) songItem {
	return songItem{
		PK:          collectionPK(songCollection),
		SK:          recordSK(s.ID),
		GSI1PK:      collectionPK(songCollection),
		GSI1SK:      sortableText(s.Title, s.ID),
		GSI2PK:      collectionPK(songCollection),
		GSI2SK:      sortableTime(s.CreatedAt, s.ID),
		EntityType:  "SONG",
		SongID:      s.ID,
		Title:       s.Title,
		Description: s.Description,
		Lyrics:      s.Lyrics,
		RegionID:    s.RegionID,
		LanguageID:  s.LanguageID,
		ThemeID:     s.ThemeID,
		CountryID:   s.CountryID,
		AudioRef:    s.AudioRef,
		ImageRef:    s.ImageRef,
		Keywords:    s.Keywords,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.Format(time.RFC3339),
	}
}

// itemToSong normalizes the stored item back into the domain shape. Dates
// are parsed here and nowhere else; past this boundary only time.Time
// exists.
func itemToSong(item songItem) domain.Song {
	return domain.Song{
		ID:          item.SongID,
		Title:       item.Title,
		Description: item.Description,
		Lyrics:      item.Lyrics,
		RegionID:    item.RegionID,
		LanguageID:  item.LanguageID,
		ThemeID:     item.ThemeID,
		CountryID:   item.CountryID,
		AudioRef:    item.AudioRef,
		ImageRef:    item.ImageRef,
		Keywords:    item.Keywords,
		CreatedAt:   parseStoredTime(item.CreatedAt),
		UpdatedAt:   parseStoredTime(item.UpdatedAt),
	}
}

// Page implements ports.PageSource for songs.
func (r *SongRepository) Page(ctx context.Context, req ports.PageRequest) (ports.Page[domain.Song], error) {
	idx, err := songSortIndex(req.SortField)
	if err != nil {
		return ports.Page[domain.Song]{}, err
	}

	items, first, last, err := r.client.queryPage(ctx, songCollection, idx, req)
	if err != nil {
		return ports.Page[domain.Song]{}, err
	}

	songs := make([]domain.Song, 0, len(items))
	for _, raw := range items {
		var item songItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return ports.Page[domain.Song]{}, fmt.Errorf("failed to unmarshal song item: %w", err)
		}
		songs = append(songs, itemToSong(item))
	}

	return ports.Page[domain.Song]{Items: songs, First: first, Last: last}, nil
}

// Count implements ports.PageSource for songs.
func (r *SongRepository) Count(ctx context.Context) (int, error) {
	return r.client.count(ctx, songCollection)
}

// Get loads one song by id.
func (r *SongRepository) Get(ctx context.Context, id string) (*domain.Song, error) {
	out, err := r.client.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.client.table),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: collectionPK(songCollection)},
			attrSK: &types.AttributeValueMemberS{Value: recordSK(id)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load song %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, domain.ErrNotFound
	}

	var item songItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal song %s: %w", id, err)
	}
	song := itemToSong(item)
	return &song, nil
}

// Put stores or overwrites a song.
func (r *SongRepository) Put(ctx context.Context, song *domain.Song) error {
	av, err := attributevalue.MarshalMap(songToItem(song))
	if err != nil {
		return fmt.Errorf("failed to marshal song: %w", err)
	}

	if _, err := r.client.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.client.table),
		Item:      av,
	}); err != nil {
		r.logger.Error("Failed to save song", zap.Error(err), zap.String("songID", song.ID))
		return fmt.Errorf("failed to save song: %w", err)
	}
	return nil
}

// Delete removes a song. Deleting a missing song is not an error.
func (r *SongRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.client.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.client.table),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: collectionPK(songCollection)},
			attrSK: &types.AttributeValueMemberS{Value: recordSK(id)},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete song %s: %w", id, err)
	}
	return nil
}

// PutBatch writes imported songs in chunks of 25, the BatchWriteItem limit.
func (r *SongRepository) PutBatch(ctx context.Context, songs []*domain.Song) error {
	const chunkSize = 25

	for start := 0; start < len(songs); start += chunkSize {
		end := start + chunkSize
		if end > len(songs) {
			end = len(songs)
		}

		writes := make([]types.WriteRequest, 0, end-start)
		for _, song := range songs[start:end] {
			av, err := attributevalue.MarshalMap(songToItem(song))
			if err != nil {
				return fmt.Errorf("failed to marshal song %s: %w", song.ID, err)
			}
			writes = append(writes, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: av},
			})
		}

		_, err := r.client.db.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				r.client.table: writes,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to write song batch: %w", err)
		}
	}

	r.logger.Info("Imported song batch", zap.Int("count", len(songs)))
	return nil
}

func songSortIndex(field string) (sortIndex, error) {
	switch field {
	case "", "title":
		return gsi1, nil
	case "createdAt":
		return gsi2, nil
	default:
		return sortIndex{}, fmt.Errorf("songs cannot be sorted by %q", field)
	}
}

// sortableText builds a case-insensitive sort key, suffixed with the record
// id so equal values still order deterministically.
func sortableText(value, id string) string {
	return strings.ToLower(strings.TrimSpace(value)) + "#" + id
}

// sortableTime builds a chronologically ordered sort key.
func sortableTime(t time.Time, id string) string {
	return t.UTC().Format(time.RFC3339) + "#" + id
}

func parseStoredTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
