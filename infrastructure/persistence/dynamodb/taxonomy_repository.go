package dynamodb

import (
	"context"
	"fmt"
	"sort"

	"songarchive-backend/application/ports"
	"songarchive-backend/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// TaxonomyRepository stores the static taxonomy collections. Each category
// is its own collection partition, so replacing regions never touches
// languages.
type TaxonomyRepository struct {
	client *Client
	logger *zap.Logger
}

// NewTaxonomyRepository creates a taxonomy repository.
func NewTaxonomyRepository(client *Client, logger *zap.Logger) ports.TaxonomyRepository {
	return &TaxonomyRepository{client: client, logger: logger}
}

type taxonomyItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	EntryID    string `dynamodbav:"EntryID"`
	Name       string `dynamodbav:"Name"`
	Code       string `dynamodbav:"Code,omitempty"`
	SortOrder  int    `dynamodbav:"SortOrder,omitempty"`
}

// List returns all entries of one category in display order.
func (r *TaxonomyRepository) List(ctx context.Context, category domain.TaxonomyCategory) ([]domain.TaxonomyEntry, error) {
	out, err := r.client.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.client.table),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPK,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: collectionPK(category.CollectionName())},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", category, err)
	}

	entries := make([]domain.TaxonomyEntry, 0, len(out.Items))
	for _, raw := range out.Items {
		var item taxonomyItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s entry: %w", category, err)
		}
		entries = append(entries, domain.TaxonomyEntry{
			ID:        item.EntryID,
			Name:      item.Name,
			Code:      item.Code,
			SortOrder: item.SortOrder,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].SortOrder != entries[j].SortOrder {
			return entries[i].SortOrder < entries[j].SortOrder
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Replace overwrites a category wholesale. Taxonomy data is small and
// edited rarely, so delete-then-write is acceptable here.
func (r *TaxonomyRepository) Replace(ctx context.Context, category domain.TaxonomyCategory, entries []domain.TaxonomyEntry) error {
	existing, err := r.List(ctx, category)
	if err != nil {
		return err
	}

	writes := make([]types.WriteRequest, 0, len(existing)+len(entries))
	kept := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		kept[e.ID] = struct{}{}
	}
	for _, e := range existing {
		if _, ok := kept[e.ID]; ok {
			continue
		}
		writes = append(writes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					attrPK: &types.AttributeValueMemberS{Value: collectionPK(category.CollectionName())},
					attrSK: &types.AttributeValueMemberS{Value: recordSK(e.ID)},
				},
			},
		})
	}

	for _, e := range entries {
		av, err := attributevalue.MarshalMap(taxonomyItem{
			PK:         collectionPK(category.CollectionName()),
			SK:         recordSK(e.ID),
			EntityType: "TAXONOMY",
			EntryID:    e.ID,
			Name:       e.Name,
			Code:       e.Code,
			SortOrder:  e.SortOrder,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal %s entry %s: %w", category, e.ID, err)
		}
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	const chunkSize = 25
	for start := 0; start < len(writes); start += chunkSize {
		end := start + chunkSize
		if end > len(writes) {
			end = len(writes)
		}
		if _, err := r.client.db.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				r.client.table: writes[start:end],
			},
		}); err != nil {
			return fmt.Errorf("failed to replace %s: %w", category, err)
		}
	}

	r.logger.Info("Replaced taxonomy category",
		zap.String("category", string(category)),
		zap.Int("entries", len(entries)),
	)
	return nil
}
