package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsscheduler "github.com/aws/aws-sdk-go-v2/service/scheduler"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"agrinudge/handler"
	"agrinudge/internal/integrations/paramstore"
	"agrinudge/internal/integrations/scheduler"
	"agrinudge/internal/integrations/whatsapp"
	"agrinudge/internal/repository"
	"agrinudge/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	tableName := mustEnv("TABLE_NAME")
	paramPrefix := mustEnv("PARAM_PREFIX")
	reminderLambdaArn := mustEnv("REMINDER_LAMBDA_ARN")
	schedulerRoleArn := mustEnv("SCHEDULER_ROLE_ARN")

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
	waClient, err := whatsapp.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create messaging client", "err", err)
		os.Exit(1)
	}
	sched, err := scheduler.New(awsscheduler.NewFromConfig(cfg), reminderLambdaArn, schedulerRoleArn)
	if err != nil {
		slog.Error("failed to create scheduler client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	detector, err := usecase.NewDetectorService(store, waClient, sched)
	if err != nil {
		slog.Error("failed to create detector service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewDetectorHandler(detector)
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
