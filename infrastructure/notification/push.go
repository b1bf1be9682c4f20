package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"songarchive-backend/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	connectionPK = "WS#CONNECTIONS"
	connectionSK = "CONN#"

	// connectionTTL bounds how long a stale registration survives if the
	// disconnect handler never fired.
	connectionTTL = 2 * time.Hour
)

// PushDispatcher fans a payload out to every registered websocket
// connection through the API Gateway management API. Connection ids are
// registered by the websocket connect handler and kept in the main table.
type PushDispatcher struct {
	gateway *apigatewaymanagementapi.Client
	db      *dynamodb.Client
	table   string
	logger  *zap.Logger
}

// NewPushDispatcher creates a dispatcher posting through the given
// websocket management endpoint.
func NewPushDispatcher(cfg aws.Config, endpoint, table string, db *dynamodb.Client, logger *zap.Logger) *PushDispatcher {
	gateway := apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &PushDispatcher{
		gateway: gateway,
		db:      db,
		table:   table,
		logger:  logger,
	}
}

var _ ports.PushDispatcher = (*PushDispatcher)(nil)

// Push delivers the payload to every live connection. Gone connections are
// pruned from the registry instead of failing the dispatch.
func (d *PushDispatcher) Push(ctx context.Context, payload []byte) error {
	ids, err := d.connectionIDs(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, id := range ids {
		_, err := d.gateway.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(id),
			Data:         payload,
		})
		if err == nil {
			continue
		}
		var gone *apigwtypes.GoneException
		if errors.As(err, &gone) {
			d.logger.Debug("Pruning stale websocket connection", zap.String("connectionId", id))
			if err := d.RemoveConnection(ctx, id); err != nil {
				d.logger.Warn("Failed to prune stale connection", zap.String("connectionId", id), zap.Error(err))
			}
			continue
		}
		failed++
		d.logger.Warn("Failed to push to connection", zap.String("connectionId", id), zap.Error(err))
	}

	if failed > 0 {
		return fmt.Errorf("push failed for %d of %d connections", failed, len(ids))
	}
	return nil
}

// RegisterConnection records a new websocket connection.
func (d *PushDispatcher) RegisterConnection(ctx context.Context, connectionID, userID string) error {
	expireAt := time.Now().Add(connectionTTL).Unix()
	_, err := d.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item: map[string]dbtypes.AttributeValue{
			"PK":       &dbtypes.AttributeValueMemberS{Value: connectionPK},
			"SK":       &dbtypes.AttributeValueMemberS{Value: connectionSK + connectionID},
			"UserID":   &dbtypes.AttributeValueMemberS{Value: userID},
			"expireAt": &dbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", expireAt)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to register connection: %w", err)
	}
	return nil
}

// RemoveConnection drops a websocket connection from the registry.
func (d *PushDispatcher) RemoveConnection(ctx context.Context, connectionID string) error {
	_, err := d.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key: map[string]dbtypes.AttributeValue{
			"PK": &dbtypes.AttributeValueMemberS{Value: connectionPK},
			"SK": &dbtypes.AttributeValueMemberS{Value: connectionSK + connectionID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}
	return nil
}

func (d *PushDispatcher) connectionIDs(ctx context.Context) ([]string, error) {
	result, err := d.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]dbtypes.AttributeValue{
			":pk":     &dbtypes.AttributeValueMemberS{Value: connectionPK},
			":prefix": &dbtypes.AttributeValueMemberS{Value: connectionSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	ids := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		sk, ok := item["SK"].(*dbtypes.AttributeValueMemberS)
		if !ok {
			continue
		}
		ids = append(ids, strings.TrimPrefix(sk.Value, connectionSK))
	}
	return ids, nil
}
