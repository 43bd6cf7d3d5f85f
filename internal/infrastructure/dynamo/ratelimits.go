package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/intranet-auth-api/internal/domain"
)

// RateLimitRepo manages fixed-window counter rows. PK: limit_key
// ("email#ip#route").
type RateLimitRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRateLimitRepo(client *dynamodb.Client, tableName string) *RateLimitRepo {
	return &RateLimitRepo{client: client, tableName: tableName}
}

func (r *RateLimitRepo) Get(ctx context.Context, limitKey string) (*domain.RateLimitRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("limit_key", limitKey),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("rate limit record not found: %w", domain.ErrNotFound)
	}
	var rec domain.RateLimitRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// IncrementInWindow adds one to the counter, conditioned on the row existing
// with last_request still inside the current window. Returns (false, nil) on
// condition failure, meaning the caller should Reset instead.
func (r *RateLimitRepo) IncrementInWindow(ctx context.Context, limitKey string, windowStart, now int64) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("limit_key", limitKey),
		ConditionExpression: aws.String("attribute_exists(limit_key) AND last_request >= :ws"),
		UpdateExpression:    aws.String("ADD #c :one SET last_request = :now"),
		ExpressionAttributeNames: map[string]string{
			"#c": "count", // reserved word in DynamoDB expressions
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ws":  numVal(windowStart),
			":one": numVal(1),
			":now": numVal(now),
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Reset overwrites the row with count=1 and a fresh last_request, starting a
// new window.
func (r *RateLimitRepo) Reset(ctx context.Context, limitKey string, now int64) error {
	rec := domain.RateLimitRecord{LimitKey: limitKey, Count: 1, LastRequest: now}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal rate limit record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// DeleteOlderThan purges rows whose last_request predates the cutoff. This
// is retention hygiene only — correctness lives in the window comparison at
// check time.
func (r *RateLimitRepo) DeleteOlderThan(ctx context.Context, cutoff int64) (int, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		FilterExpression:     aws.String("last_request < :cut"),
		ProjectionExpression: aws.String("limit_key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cut": numVal(cutoff),
		},
	})
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, item := range out.Items {
		keyAttr, ok := item["limit_key"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("limit_key", keyAttr.Value),
		}); err == nil {
			deleted++
		}
	}
	return deleted, nil
}
