package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"agrinudge/internal/domain"
)

const (
	locationIndex = "GSI1"
)

// dynamodbAPI is the minimal DynamoDB interface required by Store.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store wraps the single DynamoDB table holding all entities.
type Store struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new Store.
func New(api dynamodbAPI, tableName string) (*Store, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Store{api: api, tableName: tableName}, nil
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// InsertDedupMarker conditionally inserts the marker for one external
// message id. It returns false when the marker already exists, which is the
// sole signal that the message is a duplicate delivery. The insert-if-absent
// condition is the system's only true mutual-exclusion point.
func (s *Store) InsertDedupMarker(ctx context.Context, marker domain.DedupMarker) (bool, error) {
	item, err := attributevalue.MarshalMap(marker)
	if err != nil {
		return false, fmt.Errorf("repository: InsertDedupMarker marshal: %w", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("repository: InsertDedupMarker: %w", err)
	}
	return true, nil
}

// GetProfile returns the user's profile, or nil when none exists.
func (s *Store) GetProfile(ctx context.Context, phoneNumber string) (*domain.Profile, error) {
	k := domain.ProfileKey{UserID: phoneNumber}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: k.PK()},
			"SK": &types.AttributeValueMemberS{Value: k.SK()},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: GetProfile: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}
	var p domain.Profile
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("repository: GetProfile unmarshal: %w", err)
	}
	return &p, nil
}

// PutProfile writes or replaces the profile record.
func (s *Store) PutProfile(ctx context.Context, p domain.Profile) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("repository: PutProfile marshal: %w", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: PutProfile: %w", err)
	}
	return nil
}

// PutMessage appends a message record. Records are never mutated after
// creation, so key collision is an error, not an upsert.
func (s *Store) PutMessage(ctx context.Context, rec domain.MessageRecord) error {
	if rec.PK == "" || rec.SK == "" {
		return errors.New("repository: PutMessage: PK and SK are required")
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("repository: PutMessage marshal: %w", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: PutMessage: %w", err)
	}
	return nil
}

// PutNudge writes a new nudge record.
func (s *Store) PutNudge(ctx context.Context, rec domain.NudgeRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("repository: PutNudge marshal: %w", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: PutNudge: %w", err)
	}
	return nil
}

// GetNudge returns one nudge record, or nil when absent (e.g. expired).
func (s *Store) GetNudge(ctx context.Context, key domain.NudgeKey) (*domain.NudgeRecord, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK()},
			"SK": &types.AttributeValueMemberS{Value: key.SK()},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: GetNudge: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}
	var n domain.NudgeRecord
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, fmt.Errorf("repository: GetNudge unmarshal: %w", err)
	}
	return &n, nil
}

// QueryOpenNudges returns the user's SENT/REMINDED nudges, newest first.
func (s *Store) QueryOpenNudges(ctx context.Context, phoneNumber string) ([]domain.NudgeRecord, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: domain.UserPK(phoneNumber)},
			":prefix": &types.AttributeValueMemberS{Value: domain.NudgeSKPrefix()},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: QueryOpenNudges: %w", err)
	}

	nudges := make([]domain.NudgeRecord, 0, len(out.Items))
	for _, item := range out.Items {
		var n domain.NudgeRecord
		if err := attributevalue.UnmarshalMap(item, &n); err != nil {
			return nil, fmt.Errorf("repository: QueryOpenNudges unmarshal: %w", err)
		}
		if n.Status.Open() {
			nudges = append(nudges, n)
		}
	}
	return nudges, nil
}

// MarkNudgeDone transitions a nudge to DONE, recording the closing message's
// timestamp. The update is conditional on the nudge not already being DONE;
// losing that race returns false, not an error. DONE is terminal.
func (s *Store) MarkNudgeDone(ctx context.Context, key domain.NudgeKey, completedAt string) (bool, error) {
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK()},
			"SK": &types.AttributeValueMemberS{Value: key.SK()},
		},
		UpdateExpression:    aws.String("SET #status = :done, completedAt = :completed"),
		ConditionExpression: aws.String("attribute_exists(PK) AND #status <> :done"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":done":      &types.AttributeValueMemberS{Value: string(domain.NudgeDone)},
			":completed": &types.AttributeValueMemberS{Value: completedAt},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("repository: MarkNudgeDone: %w", err)
	}
	return true, nil
}

// MarkNudgeReminded records a fired reminder. The same status guard keeps a
// stale dispatcher from clobbering a DONE written concurrently by the
// detector; losing the race returns false.
func (s *Store) MarkNudgeReminded(ctx context.Context, key domain.NudgeKey, reminderLabel string) (bool, error) {
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.PK()},
			"SK": &types.AttributeValueMemberS{Value: key.SK()},
		},
		UpdateExpression:    aws.String("SET #status = :reminded, lastReminder = :label"),
		ConditionExpression: aws.String("attribute_exists(PK) AND #status <> :done"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":reminded": &types.AttributeValueMemberS{Value: string(domain.NudgeReminded)},
			":done":     &types.AttributeValueMemberS{Value: string(domain.NudgeDone)},
			":label":    &types.AttributeValueMemberS{Value: reminderLabel},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("repository: MarkNudgeReminded: %w", err)
	}
	return true, nil
}

// QueryUsersByLocation returns completed-onboarding profiles for one
// location via the secondary index. Incomplete profiles never carry the
// index keys, so they cannot appear here.
func (s *Store) QueryUsersByLocation(ctx context.Context, location string) ([]domain.Profile, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(locationIndex),
		KeyConditionExpression: aws.String("GSI1PK = :location"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":location": &types.AttributeValueMemberS{Value: domain.LocationGSI1PK(location)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: QueryUsersByLocation: %w", err)
	}

	profiles := make([]domain.Profile, 0, len(out.Items))
	for _, item := range out.Items {
		var p domain.Profile
		if err := attributevalue.UnmarshalMap(item, &p); err != nil {
			return nil, fmt.Errorf("repository: QueryUsersByLocation unmarshal: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// ListProfileLocations returns the distinct locations across all completed
// profiles, sorted, for the weather poller.
func (s *Store) ListProfileLocations(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.tableName),
			FilterExpression: aws.String("SK = :sk AND onboarding_complete = :done"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":sk":   &types.AttributeValueMemberS{Value: domain.ProfileKey{}.SK()},
				":done": &types.AttributeValueMemberBOOL{Value: true},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: ListProfileLocations: %w", err)
		}
		for _, item := range out.Items {
			var p domain.Profile
			if err := attributevalue.UnmarshalMap(item, &p); err != nil {
				return nil, fmt.Errorf("repository: ListProfileLocations unmarshal: %w", err)
			}
			if p.Location != "" {
				seen[p.Location] = struct{}{}
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	locations := make([]string, 0, len(seen))
	for loc := range seen {
		locations = append(locations, loc)
	}
	sort.Strings(locations)
	return locations, nil
}
