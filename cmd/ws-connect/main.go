// Package main implements the websocket connect Lambda handler. It
// authenticates the upgrade request and registers the connection for
// mutation push notifications.
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"songarchive-backend/infrastructure/notification"
	"songarchive-backend/pkg/auth"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

var (
	dispatcher *notification.PushDispatcher
	validator  *auth.Validator
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

	validator, err = auth.NewValidator(auth.Config{
		SecretKey: os.Getenv("JWT_SECRET"),
		Issuer:    os.Getenv("JWT_ISSUER"),
	})
	if err != nil {
		logger.Fatal("Failed to create token validator", zap.Error(err))
	}
}

// Handler authorizes and registers a new websocket connection. Browsers
// cannot set headers on upgrade requests, so the token rides in the query
// string.
func Handler(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := validator.ValidateToken(req.QueryStringParameters["token"])
	if err != nil {
		logger.Warn("Rejected websocket connection", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}, nil
	}

	connectionID := req.RequestContext.ConnectionID
	if err := dispatcher.RegisterConnection(ctx, connectionID, claims.UserID); err != nil {
		logger.Error("Failed to register connection",
			zap.String("connectionID", connectionID),
			zap.Error(err),
		)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to connect"}, nil
	}

	logger.Info("Websocket connected",
		zap.String("connectionID", connectionID),
		zap.String("userID", claims.UserID),
	)
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Body: "Connected"}, nil
}

func main() {
	lambda.Start(Handler)
}
