// Package scheduler registers and cancels one-shot reminder callbacks with
// the external scheduler. Schedules are named deterministically from the
// nudge key and offset label, so they can be cancelled later without a lookup
// table. The scheduler is never relied on for exactly-once firing.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsscheduler "github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/scheduler/types"

	"agrinudge/internal/domain"
)

// schedulerAPI is the minimal EventBridge Scheduler interface required by
// Client.
type schedulerAPI interface {
	CreateSchedule(ctx context.Context, in *awsscheduler.CreateScheduleInput, optFns ...func(*awsscheduler.Options)) (*awsscheduler.CreateScheduleOutput, error)
	DeleteSchedule(ctx context.Context, in *awsscheduler.DeleteScheduleInput, optFns ...func(*awsscheduler.Options)) (*awsscheduler.DeleteScheduleOutput, error)
}

// Client wraps the scheduler for reminder registration.
type Client struct {
	api       schedulerAPI
	targetArn string
	roleArn   string
}

// New creates a Client that targets the reminder dispatcher.
func New(api schedulerAPI, targetArn, roleArn string) (*Client, error) {
	if api == nil {
		return nil, errors.New("scheduler: api must not be nil")
	}
	if strings.TrimSpace(targetArn) == "" || strings.TrimSpace(roleArn) == "" {
		return nil, errors.New("scheduler: target and role ARNs must not be empty")
	}
	return &Client{api: api, targetArn: targetArn, roleArn: roleArn}, nil
}

var nameSanitizer = strings.NewReplacer("#", "-", ":", "-", "+", "")

// ReminderName derives the deterministic schedule name for one nudge and
// offset label. Both the creator and the canceller compute it independently.
// The owning user is part of the name: two users nudged in the same second
// for the same activity share an encoded nudge id, and their schedules must
// not collide.
func ReminderName(key domain.NudgeKey, label string) string {
	return fmt.Sprintf("reminder-%s-%s-%s",
		nameSanitizer.Replace(key.UserID),
		nameSanitizer.Replace(key.ID.Encode()),
		nameSanitizer.Replace(label))
}

// CreateReminder registers a one-shot callback at the given time with the
// reminder invocation as payload.
func (c *Client) CreateReminder(ctx context.Context, name string, at time.Time, payload domain.ReminderInvocation) error {
	input, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("scheduler: marshal payload: %w", err)
	}
	_, err = c.api.CreateSchedule(ctx, &awsscheduler.CreateScheduleInput{
		Name:               aws.String(name),
		ScheduleExpression: aws.String(fmt.Sprintf("at(%s)", at.UTC().Format("2006-01-02T15:04:05"))),
		Target: &types.Target{
			Arn:     aws.String(c.targetArn),
			RoleArn: aws.String(c.roleArn),
			Input:   aws.String(string(input)),
		},
		FlexibleTimeWindow: &types.FlexibleTimeWindow{Mode: types.FlexibleTimeWindowModeOff},
	})
	if err != nil {
		return fmt.Errorf("scheduler: create %s: %w", name, err)
	}
	return nil
}

// DeleteReminder cancels a schedule by name. Absence (already fired, already
// cancelled, never created) is success: cancellation is best-effort and
// idempotent.
func (c *Client) DeleteReminder(ctx context.Context, name string) error {
	_, err := c.api.DeleteSchedule(ctx, &awsscheduler.DeleteScheduleInput{
		Name: aws.String(name),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("scheduler: delete %s: %w", name, err)
	}
	return nil
}
