// Package bedrock holds the clients for the external answer-generation and
// vision collaborators.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	agenttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"agrinudge/internal/dialect"
	"agrinudge/internal/domain"
)

// answerAPI is the minimal agent-runtime interface required by AnswerClient.
type answerAPI interface {
	RetrieveAndGenerate(ctx context.Context, in *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// AnswerClient generates grounded answers from the knowledge base, with the
// guardrail applied.
type AnswerClient struct {
	api              answerAPI
	knowledgeBaseID  string
	modelArn         string
	guardrailID      string
	guardrailVersion string
}

// NewAnswerClient creates an AnswerClient.
func NewAnswerClient(api answerAPI, knowledgeBaseID, modelArn, guardrailID, guardrailVersion string) (*AnswerClient, error) {
	if api == nil {
		return nil, errors.New("bedrock: answer api must not be nil")
	}
	if strings.TrimSpace(knowledgeBaseID) == "" || strings.TrimSpace(modelArn) == "" {
		return nil, errors.New("bedrock: knowledge base id and model ARN must not be empty")
	}
	return &AnswerClient{
		api:              api,
		knowledgeBaseID:  knowledgeBaseID,
		modelArn:         modelArn,
		guardrailID:      guardrailID,
		guardrailVersion: guardrailVersion,
	}, nil
}

func answerPromptTemplate(d dialect.Dialect) string {
	return fmt.Sprintf(`You are an agricultural extension agent helping smallholder farmers in India.
Respond in %s dialect (hi=Hindi, mr=Marathi, te=Telugu).
Use simple, practical language. Include source citations.

Question: $query$

Context: $search_results$

Provide actionable advice with source references.`, d)
}

// Generate answers a free-text question with a dialect hint, returning the
// generated text and the citation source locations.
func (c *AnswerClient) Generate(ctx context.Context, question string, d dialect.Dialect) (domain.Answer, error) {
	cfg := &agenttypes.KnowledgeBaseRetrieveAndGenerateConfiguration{
		KnowledgeBaseId: aws.String(c.knowledgeBaseID),
		ModelArn:        aws.String(c.modelArn),
		GenerationConfiguration: &agenttypes.GenerationConfiguration{
			PromptTemplate: &agenttypes.PromptTemplate{
				TextPromptTemplate: aws.String(answerPromptTemplate(d)),
			},
		},
	}
	if c.guardrailID != "" {
		cfg.GenerationConfiguration.GuardrailConfiguration = &agenttypes.GuardrailConfiguration{
			GuardrailId:      aws.String(c.guardrailID),
			GuardrailVersion: aws.String(c.guardrailVersion),
		}
	}

	out, err := c.api.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &agenttypes.RetrieveAndGenerateInput{Text: aws.String(question)},
		RetrieveAndGenerateConfiguration: &agenttypes.RetrieveAndGenerateConfiguration{
			Type:                       agenttypes.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: cfg,
		},
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("bedrock: retrieve and generate: %w", err)
	}
	if out == nil || out.Output == nil || out.Output.Text == nil {
		return domain.Answer{}, errors.New("bedrock: empty generation output")
	}

	return domain.Answer{
		Text:      *out.Output.Text,
		Citations: citationURIs(out.Citations),
	}, nil
}

// citationURIs flattens retrieved-reference locations into plain strings.
// The core treats them as opaque beyond "non-empty = has grounding".
func citationURIs(citations []agenttypes.Citation) []string {
	var uris []string
	for _, c := range citations {
		for _, ref := range c.RetrievedReferences {
			if ref.Location == nil || ref.Location.S3Location == nil || ref.Location.S3Location.Uri == nil {
				continue
			}
			uris = append(uris, *ref.Location.S3Location.Uri)
		}
	}
	return uris
}
