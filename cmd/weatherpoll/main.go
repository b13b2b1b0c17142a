package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awssfn "github.com/aws/aws-sdk-go-v2/service/sfn"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"agrinudge/handler"
	"agrinudge/internal/integrations/paramstore"
	"agrinudge/internal/integrations/weather"
	"agrinudge/internal/integrations/workflow"
	"agrinudge/internal/repository"
	"agrinudge/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	tableName := mustEnv("TABLE_NAME")
	paramPrefix := mustEnv("PARAM_PREFIX")
	stateMachineArn := mustEnv("STATE_MACHINE_ARN")
	activity := envOr("NUDGE_ACTIVITY", "spray")

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

	var creds weather.Credentials
	if err := paramstore.GetJSON(ctx, ssmClient, paramPrefix+"/weather/credentials", &creds); err != nil {
		slog.Error("failed to resolve weather credentials", "err", err)
		os.Exit(1)
	}
	feed, err := weather.NewClient(creds)
	if err != nil {
		slog.Error("failed to create weather client", "err", err)
		os.Exit(1)
	}
	wf, err := workflow.New(awssfn.NewFromConfig(cfg), stateMachineArn)
	if err != nil {
		slog.Error("failed to create workflow client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	poll, err := usecase.NewWeatherPollService(store, feed, wf, activity)
	if err != nil {
		slog.Error("failed to create weather poll service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewWeatherPollHandler(poll)
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

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
