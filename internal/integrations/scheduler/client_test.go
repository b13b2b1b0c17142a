package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsscheduler "github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/scheduler/types"
	"github.com/stretchr/testify/require"

	"agrinudge/internal/domain"
)

type mockSchedulerAPI struct {
	createInput *awsscheduler.CreateScheduleInput
	createErr   error
	deleteInput *awsscheduler.DeleteScheduleInput
	deleteErr   error
}

func (m *mockSchedulerAPI) CreateSchedule(_ context.Context, in *awsscheduler.CreateScheduleInput, _ ...func(*awsscheduler.Options)) (*awsscheduler.CreateScheduleOutput, error) {
	m.createInput = in
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &awsscheduler.CreateScheduleOutput{}, nil
}

func (m *mockSchedulerAPI) DeleteSchedule(_ context.Context, in *awsscheduler.DeleteScheduleInput, _ ...func(*awsscheduler.Options)) (*awsscheduler.DeleteScheduleOutput, error) {
	m.deleteInput = in
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	return &awsscheduler.DeleteScheduleOutput{}, nil
}

func testNudgeID() domain.NudgeID {
	return domain.NudgeID{CreatedAt: time.Date(2025, 6, 14, 6, 0, 0, 0, time.UTC), Activity: "spray"}
}

func testNudgeKey(user string) domain.NudgeKey {
	return domain.NudgeKey{UserID: user, ID: testNudgeID()}
}

func TestReminderName_DeterministicAndSchedulerSafe(t *testing.T) {
	name := ReminderName(testNudgeKey("+919876543210"), "T+24h")
	require.Equal(t, "reminder-919876543210-2025-06-14T06-00-00Z-spray-T24h", name)
	// Same inputs always give the same name, so creator and canceller
	// derive it independently.
	require.Equal(t, name, ReminderName(testNudgeKey("+919876543210"), "T+24h"))
	require.NotContains(t, name, "#")
	require.NotContains(t, name, ":")
	require.NotContains(t, name, "+")
}

func TestReminderName_DistinctAcrossUsers(t *testing.T) {
	// Two farmers nudged in the same second share an encoded nudge id;
	// their schedules must still be independent so one user's completion
	// never cancels the other's reminders.
	a := ReminderName(testNudgeKey("919876543210"), "T+24h")
	b := ReminderName(testNudgeKey("918765432109"), "T+24h")
	require.NotEqual(t, a, b)
}

func TestCreateReminder_OneShotAtExpression(t *testing.T) {
	api := &mockSchedulerAPI{}
	c, err := New(api, "arn:aws:lambda:ap-south-1:1:function:reminder", "arn:aws:iam::1:role/scheduler")
	require.NoError(t, err)

	payload := domain.ReminderInvocation{
		PhoneNumber:  "919876543210",
		NudgeID:      testNudgeID().Encode(),
		ReminderType: "T+24h",
		Dialect:      "hi",
	}
	at := time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC)
	require.NoError(t, c.CreateReminder(context.Background(), "reminder-x", at, payload))

	in := api.createInput
	require.Equal(t, "reminder-x", aws.ToString(in.Name))
	require.Equal(t, "at(2025-06-15T06:00:00)", aws.ToString(in.ScheduleExpression))
	require.Equal(t, types.FlexibleTimeWindowModeOff, in.FlexibleTimeWindow.Mode)
	require.Equal(t, "arn:aws:lambda:ap-south-1:1:function:reminder", aws.ToString(in.Target.Arn))

	var decoded domain.ReminderInvocation
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Target.Input)), &decoded))
	require.Equal(t, payload, decoded)
}

func TestDeleteReminder_AbsenceIsSuccess(t *testing.T) {
	api := &mockSchedulerAPI{deleteErr: &types.ResourceNotFoundException{}}
	c, err := New(api, "arn:target", "arn:role")
	require.NoError(t, err)

	require.NoError(t, c.DeleteReminder(context.Background(), "reminder-x"))
	require.Equal(t, "reminder-x", aws.ToString(api.deleteInput.Name))
}

func TestDeleteReminder_OtherErrorsPropagate(t *testing.T) {
	api := &mockSchedulerAPI{deleteErr: errors.New("access denied")}
	c, err := New(api, "arn:target", "arn:role")
	require.NoError(t, err)

	require.Error(t, c.DeleteReminder(context.Background(), "reminder-x"))
}
