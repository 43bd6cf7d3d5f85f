package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/intranet-auth-api/internal/domain"
)

// SessionRepo provides typed DynamoDB operations for the sessions table.
// The partition key is the token hash — the plaintext token never reaches
// this layer.
type SessionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSessionRepo(client *dynamodb.Client, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName}
}

func (r *SessionRepo) Put(ctx context.Context, s *domain.Session) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token_hash", tokenHash),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ExtendExpiry moves expires_at forward for sliding renewal. The condition
// keeps a concurrent logout from resurrecting a deleted row: the update only
// lands if the session still exists.
func (r *SessionRepo) ExtendExpiry(ctx context.Context, tokenHash string, newExpiry int64) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("token_hash", tokenHash),
		ConditionExpression: aws.String("attribute_exists(token_hash)"),
		UpdateExpression:    aws.String("SET expires_at = :exp, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":exp": numVal(newExpiry),
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	return err
}

// Delete removes a session row. Deleting an absent row is a no-op, which
// makes logout idempotent.
func (r *SessionRepo) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token_hash", tokenHash),
	})
	return err
}

// DeleteByUser removes every session belonging to a user via the user_id GSI.
func (r *SessionRepo) DeleteByUser(ctx context.Context, userID string) error {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return err
	}
	var firstErr error
	for _, item := range out.Items {
		hashAttr, ok := item["token_hash"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if err := r.Delete(ctx, hashAttr.Value); err != nil {
			slog.Warn("failed to delete session during user logout-all", "user_id", userID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// DeleteExpired scans for rows past their expiry and removes them. This is
// hygiene behind the DynamoDB TTL (which is best-effort and can lag); the
// validation path never relies on it.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now int64) (int, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		FilterExpression:     aws.String("expires_at <= :now"),
		ProjectionExpression: aws.String("token_hash"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": numVal(now),
		},
	})
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, item := range out.Items {
		hashAttr, ok := item["token_hash"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if err := r.Delete(ctx, hashAttr.Value); err == nil {
			deleted++
		}
	}
	return deleted, nil
}
