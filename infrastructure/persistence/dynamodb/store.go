// Package dynamodb implements the persistence ports on a single DynamoDB
// table. Every collection lives under one partition key, with two global
// secondary indexes providing the sortable orderings the backoffice screens
// paginate over.
package dynamodb

import (
	"context"
	"fmt"

	"songarchive-backend/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Key attribute names of the table and its sort indexes.
const (
	attrPK     = "PK"
	attrSK     = "SK"
	attrGSI1PK = "GSI1PK"
	attrGSI1SK = "GSI1SK"
	attrGSI2PK = "GSI2PK"
	attrGSI2SK = "GSI2SK"
)

// sortIndex names a GSI and its key attributes.
type sortIndex struct {
	name   string
	pkAttr string
	skAttr string
}

var (
	gsi1 = sortIndex{pkAttr: attrGSI1PK, skAttr: attrGSI1SK}
	gsi2 = sortIndex{pkAttr: attrGSI2PK, skAttr: attrGSI2SK}
)

// Client wraps the DynamoDB connection for all repositories.
type Client struct {
	db       *dynamodb.Client
	table    string
	gsi1Name string
	gsi2Name string
	logger   *zap.Logger
}

// NewClient creates the shared persistence client.
func NewClient(db *dynamodb.Client, table, gsi1Name, gsi2Name string, logger *zap.Logger) *Client {
	return &Client{
		db:       db,
		table:    table,
		gsi1Name: gsi1Name,
		gsi2Name: gsi2Name,
		logger:   logger,
	}
}

func collectionPK(collection string) string {
	return "COLLECTION#" + collection
}

func recordSK(id string) string {
	return "ID#" + id
}

func (c *Client) index(idx sortIndex) sortIndex {
	switch idx.pkAttr {
	case attrGSI1PK:
		idx.name = c.gsi1Name
	case attrGSI2PK:
		idx.name = c.gsi2Name
	}
	return idx
}

// queryPage runs one cursor-positioned page query against a collection.
//
// Forward requests (After) use the cursor as the exclusive start key in sort
// order. Backward requests (Before) run the query in the opposite scan
// direction from the cursor and reverse the result, which yields the limit
// records immediately preceding it with sort order preserved.
func (c *Client) queryPage(ctx context.Context, collection string, idx sortIndex, req ports.PageRequest) ([]map[string]types.AttributeValue, ports.Cursor, ports.Cursor, error) {
	idx = c.index(idx)

	forward := !req.Descending
	start, err := decodeCursor(req.After)
	if err != nil {
		return nil, "", "", err
	}
	if req.Before != "" {
		if start, err = decodeCursor(req.Before); err != nil {
			return nil, "", "", err
		}
		forward = !forward
	}

	expr, err := collectionKeyExpr(idx.pkAttr, collection)
	if err != nil {
		return nil, "", "", err
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(c.table),
		IndexName:                 aws.String(idx.name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(forward),
		Limit:                     aws.Int32(int32(req.Limit)),
		ExclusiveStartKey:         start,
	}

	out, err := c.db.Query(ctx, input)
	if err != nil {
		c.logger.Error("DynamoDB page query failed",
			zap.Error(err),
			zap.String("collection", collection),
			zap.String("index", idx.name),
		)
		return nil, "", "", fmt.Errorf("failed to query page of %s: %w", collection, err)
	}

	items := out.Items
	if req.Before != "" {
		reverseItems(items)
	}

	if len(items) == 0 {
		return nil, "", "", nil
	}

	first, err := encodeCursor(keyOf(items[0], idx))
	if err != nil {
		return nil, "", "", err
	}
	last, err := encodeCursor(keyOf(items[len(items)-1], idx))
	if err != nil {
		return nil, "", "", err
	}

	return items, first, last, nil
}

// count returns the total number of records in a collection, following
// DynamoDB's own result pagination for large collections.
func (c *Client) count(ctx context.Context, collection string) (int, error) {
	expr, err := collectionKeyExpr(attrPK, collection)
	if err != nil {
		return 0, err
	}

	total := 0
	var start map[string]types.AttributeValue

	for {
		out, err := c.db.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(c.table),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			Select:                    types.SelectCount,
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count %s: %w", collection, err)
		}

		total += int(out.Count)
		if out.LastEvaluatedKey == nil {
			break
		}
		start = out.LastEvaluatedKey
	}

	return total, nil
}

// collectionKeyExpr builds the partition key condition for a collection.
func collectionKeyExpr(pkAttr, collection string) (expression.Expression, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(pkAttr).Equal(expression.Value(collectionPK(collection)))).
		Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("failed to build key condition for %s: %w", collection, err)
	}
	return expr, nil
}

// keyOf extracts the table and index key attributes of an item, which is
// exactly the exclusive-start position DynamoDB needs to resume next to it.
func keyOf(item map[string]types.AttributeValue, idx sortIndex) map[string]types.AttributeValue {
	key := make(map[string]types.AttributeValue, 4)
	for _, attr := range []string{attrPK, attrSK, idx.pkAttr, idx.skAttr} {
		if v, ok := item[attr]; ok {
			key[attr] = v
		}
	}
	return key
}

func reverseItems(items []map[string]types.AttributeValue) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
