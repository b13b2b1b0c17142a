package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"agrinudge/handler"
	"agrinudge/internal/integrations/paramstore"
	"agrinudge/internal/integrations/queue"
	"agrinudge/internal/repository"
	"agrinudge/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	tableName := mustEnv("TABLE_NAME")
	processorQueueURL := mustEnv("PROCESSOR_QUEUE_URL")
	voiceQueueURL := mustEnv("VOICE_QUEUE_URL")
	paramPrefix := mustEnv("PARAM_PREFIX")
	verifyToken := mustEnv("WHATSAPP_VERIFY_TOKEN")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(cfg), tableName)
	if err != nil {
		slog.Error("failed to create store", "err", err)
		os.Exit(1)
	}
	sqsClient := awssqs.NewFromConfig(cfg)
	processorQ, err := queue.New(sqsClient, processorQueueURL)
	if err != nil {
		slog.Error("failed to create processor queue forwarder", "err", err)
		os.Exit(1)
	}
	voiceQ, err := queue.New(sqsClient, voiceQueueURL)
	if err != nil {
		slog.Error("failed to create voice queue forwarder", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	ingest, err := usecase.NewIngestService(store, processorQ, voiceQ)
	if err != nil {
		slog.Error("failed to create ingest service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewWebhookHandler(ingest, ssmClient, paramPrefix+"/whatsapp/app-secret", verifyToken)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
