// Package main implements the websocket disconnect Lambda handler. It
// drops the connection from the push registry.
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"songarchive-backend/infrastructure/notification"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

var (
	dispatcher *notification.PushDispatcher
	logger     *zap.Logger
)

func init() {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	table := os.Getenv("TABLE_NAME")
	if table == "" {
		table = "songarchive"
	}
	dispatcher = notification.NewPushDispatcher(cfg, os.Getenv("WEBSOCKET_ENDPOINT"), table, dynamodb.NewFromConfig(cfg), logger)
}

// Handler removes the closing connection from the registry. Removal is
// idempotent; a connection already pruned by a failed push is not an error.
func Handler(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connectionID := req.RequestContext.ConnectionID
	if err := dispatcher.RemoveConnection(ctx, connectionID); err != nil {
		logger.Error("Failed to remove connection",
			zap.String("connectionID", connectionID),
			zap.Error(err),
		)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to disconnect"}, nil
	}

	logger.Info("Websocket disconnected", zap.String("connectionID", connectionID))
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Body: "Disconnected"}, nil
}

func main() {
	lambda.Start(Handler)
}
