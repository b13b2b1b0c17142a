package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsbedrockagent "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"agrinudge/handler"
	"agrinudge/internal/integrations/bedrock"
	"agrinudge/internal/integrations/paramstore"
	"agrinudge/internal/integrations/whatsapp"
	"agrinudge/internal/repository"
	"agrinudge/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	tableName := mustEnv("TABLE_NAME")
	paramPrefix := mustEnv("PARAM_PREFIX")
	knowledgeBaseID := mustEnv("KNOWLEDGE_BASE_ID")
	modelArn := mustEnv("MODEL_ARN")
	guardrailID := mustEnv("GUARDRAIL_ID")
	guardrailVersion := mustEnv("GUARDRAIL_VERSION")
	visionModelID := mustEnv("VISION_MODEL_ID")

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
	answerer, err := bedrock.NewAnswerClient(awsbedrockagent.NewFromConfig(cfg), knowledgeBaseID, modelArn, guardrailID, guardrailVersion)
	if err != nil {
		slog.Error("failed to create answer client", "err", err)
		os.Exit(1)
	}
	vision, err := bedrock.NewVisionClient(awsbedrock.NewFromConfig(cfg), visionModelID)
	if err != nil {
		slog.Error("failed to create vision client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	onboarding, err := usecase.NewOnboardingService(store, waClient, usecase.DefaultDistricts)
	if err != nil {
		slog.Error("failed to create onboarding service", "err", err)
		os.Exit(1)
	}
	conversation, err := usecase.NewConversationService(store, onboarding, answerer, vision, waClient, waClient)
	if err != nil {
		slog.Error("failed to create conversation service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewProcessorHandler(conversation)
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
