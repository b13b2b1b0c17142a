package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"agrinudge/internal/domain"
)

type mockDynamo struct {
	putInputs    []*dynamodb.PutItemInput
	putErr       error
	getOutput    *dynamodb.GetItemOutput
	getErr       error
	updateInputs []*dynamodb.UpdateItemInput
	updateErr    error
	queryInput   *dynamodb.QueryInput
	queryOutput  *dynamodb.QueryOutput
	queryErr     error
	scanOutputs  []*dynamodb.ScanOutput
	scanCalls    int
}

func (m *mockDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInputs = append(m.putInputs, in)
	if m.putErr != nil {
		return nil, m.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getOutput == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return m.getOutput, nil
}

func (m *mockDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updateInputs = append(m.updateInputs, in)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.queryInput = in
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.queryOutput == nil {
		return &dynamodb.QueryOutput{}, nil
	}
	return m.queryOutput, nil
}

func (m *mockDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if m.scanCalls >= len(m.scanOutputs) {
		return &dynamodb.ScanOutput{}, nil
	}
	out := m.scanOutputs[m.scanCalls]
	m.scanCalls++
	return out, nil
}

func newTestStore(t *testing.T, api *mockDynamo) *Store {
	t.Helper()
	s, err := New(api, "agrinudge-test")
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "table")
	require.Error(t, err)

	_, err = New(&mockDynamo{}, "  ")
	require.Error(t, err)
}

func TestInsertDedupMarker_FirstInsertSucceeds(t *testing.T) {
	api := &mockDynamo{}
	s := newTestStore(t, api)

	inserted, err := s.InsertDedupMarker(context.Background(), domain.NewDedupMarker("wamid.1", "919876543210", time.Now()))
	require.NoError(t, err)
	require.True(t, inserted)

	require.Len(t, api.putInputs, 1)
	require.Equal(t, "attribute_not_exists(PK) AND attribute_not_exists(SK)", aws.ToString(api.putInputs[0].ConditionExpression))
}

func TestInsertDedupMarker_DuplicateReturnsFalse(t *testing.T) {
	api := &mockDynamo{putErr: &types.ConditionalCheckFailedException{}}
	s := newTestStore(t, api)

	inserted, err := s.InsertDedupMarker(context.Background(), domain.NewDedupMarker("wamid.1", "919876543210", time.Now()))
	require.NoError(t, err)
	require.False(t, inserted)
}

func TestInsertDedupMarker_StoreErrorPropagates(t *testing.T) {
	api := &mockDynamo{putErr: errors.New("throttled")}
	s := newTestStore(t, api)

	_, err := s.InsertDedupMarker(context.Background(), domain.NewDedupMarker("wamid.1", "919876543210", time.Now()))
	require.Error(t, err)
}

func TestGetProfile_AbsentIsNilNil(t *testing.T) {
	s := newTestStore(t, &mockDynamo{})

	p, err := s.GetProfile(context.Background(), "919876543210")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestGetProfile_Found(t *testing.T) {
	want := domain.NewProfile("919876543210")
	item, err := attributevalue.MarshalMap(want)
	require.NoError(t, err)

	s := newTestStore(t, &mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: item}})
	p, err := s.GetProfile(context.Background(), "919876543210")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, want, *p)
}

func TestPutMessage_AppendOnly(t *testing.T) {
	api := &mockDynamo{}
	s := newTestStore(t, api)

	m, err := domain.ParseInboundMessage([]byte(`{"id":"wamid.1","from":"919876543210","type":"text","text":{"body":"hi"}}`))
	require.NoError(t, err)

	require.NoError(t, s.PutMessage(context.Background(), domain.NewDetectorCopy(m, time.Now())))
	require.Len(t, api.putInputs, 1)
	require.Equal(t, "attribute_not_exists(PK) AND attribute_not_exists(SK)", aws.ToString(api.putInputs[0].ConditionExpression))

	require.Error(t, s.PutMessage(context.Background(), domain.MessageRecord{}))
}

func TestMarkNudgeDone_ConditionalOnNotDone(t *testing.T) {
	api := &mockDynamo{}
	s := newTestStore(t, api)

	key := domain.NudgeKey{UserID: "919876543210", ID: domain.NudgeID{CreatedAt: time.Now(), Activity: "spray"}}
	done, err := s.MarkNudgeDone(context.Background(), key, "2025-06-15T10:00:00Z")
	require.NoError(t, err)
	require.True(t, done)

	require.Len(t, api.updateInputs, 1)
	in := api.updateInputs[0]
	require.Equal(t, "attribute_exists(PK) AND #status <> :done", aws.ToString(in.ConditionExpression))
	require.Equal(t, "status", in.ExpressionAttributeNames["#status"])
}

func TestMarkNudgeDone_LostRaceReturnsFalse(t *testing.T) {
	api := &mockDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	s := newTestStore(t, api)

	key := domain.NudgeKey{UserID: "919876543210", ID: domain.NudgeID{CreatedAt: time.Now(), Activity: "spray"}}
	done, err := s.MarkNudgeDone(context.Background(), key, "2025-06-15T10:00:00Z")
	require.NoError(t, err)
	require.False(t, done)
}

func TestMarkNudgeReminded_GuardedByDoneStatus(t *testing.T) {
	api := &mockDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	s := newTestStore(t, api)

	key := domain.NudgeKey{UserID: "919876543210", ID: domain.NudgeID{CreatedAt: time.Now(), Activity: "spray"}}
	updated, err := s.MarkNudgeReminded(context.Background(), key, "T+24h")
	require.NoError(t, err)
	require.False(t, updated)

	in := api.updateInputs[0]
	require.Equal(t, "attribute_exists(PK) AND #status <> :done", aws.ToString(in.ConditionExpression))
}

func TestQueryOpenNudges_FiltersClosedAndOrdersNewestFirst(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	open := domain.NewNudgeRecord("919876543210", "spray", domain.WeatherSnapshot{}, "msg", now)
	closed := domain.NewNudgeRecord("919876543210", "spray", domain.WeatherSnapshot{}, "msg", now.Add(-24*time.Hour))
	closed.Status = domain.NudgeDone

	openItem, err := attributevalue.MarshalMap(open)
	require.NoError(t, err)
	closedItem, err := attributevalue.MarshalMap(closed)
	require.NoError(t, err)

	api := &mockDynamo{queryOutput: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{openItem, closedItem}}}
	s := newTestStore(t, api)

	nudges, err := s.QueryOpenNudges(context.Background(), "919876543210")
	require.NoError(t, err)
	require.Len(t, nudges, 1)
	require.Equal(t, open.SK, nudges[0].SK)

	require.False(t, aws.ToBool(api.queryInput.ScanIndexForward))
	require.Equal(t, "PK = :pk AND begins_with(SK, :prefix)", aws.ToString(api.queryInput.KeyConditionExpression))
}

func TestQueryUsersByLocation_UsesIndex(t *testing.T) {
	api := &mockDynamo{}
	s := newTestStore(t, api)

	_, err := s.QueryUsersByLocation(context.Background(), "Nagpur")
	require.NoError(t, err)
	require.Equal(t, "GSI1", aws.ToString(api.queryInput.IndexName))

	pk, ok := api.queryInput.ExpressionAttributeValues[":location"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	require.Equal(t, "LOCATION#Nagpur", pk.Value)
}

func TestListProfileLocations_PaginatesAndDeduplicates(t *testing.T) {
	mkProfile := func(phone, location string) map[string]types.AttributeValue {
		p := domain.NewProfile(phone)
		p.Location = location
		p.Finalize(true)
		item, err := attributevalue.MarshalMap(p)
		require.NoError(t, err)
		return item
	}

	api := &mockDynamo{scanOutputs: []*dynamodb.ScanOutput{
		{
			Items:            []map[string]types.AttributeValue{mkProfile("1", "Wardha"), mkProfile("2", "Nagpur")},
			LastEvaluatedKey: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "USER#2"}},
		},
		{
			Items: []map[string]types.AttributeValue{mkProfile("3", "Nagpur")},
		},
	}}
	s := newTestStore(t, api)

	locations, err := s.ListProfileLocations(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Nagpur", "Wardha"}, locations)
	require.Equal(t, 2, api.scanCalls)
}
