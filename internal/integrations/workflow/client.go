// Package workflow starts the nudge fan-out state machine.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
)

// sfnAPI is the minimal Step Functions interface required by Client.
type sfnAPI interface {
	StartExecution(ctx context.Context, in *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
}

// Client starts executions of one state machine.
type Client struct {
	api        sfnAPI
	machineArn string
}

// New creates a Client for the given state machine.
func New(api sfnAPI, machineArn string) (*Client, error) {
	if api == nil {
		return nil, errors.New("workflow: api must not be nil")
	}
	if strings.TrimSpace(machineArn) == "" {
		return nil, errors.New("workflow: state machine ARN must not be empty")
	}
	return &Client{api: api, machineArn: machineArn}, nil
}

// Start launches one execution with input serialized as JSON.
func (c *Client) Start(ctx context.Context, input any) error {
	payload, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("workflow: marshal input: %w", err)
	}
	_, err = c.api.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(c.machineArn),
		Input:           aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("workflow: start execution: %w", err)
	}
	return nil
}
