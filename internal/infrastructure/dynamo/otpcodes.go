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

// OtpRepo manages login codes. PK: email — a Put overwrites any prior row,
// which is exactly the "at most one active code per email" rule.
type OtpRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOtpRepo(client *dynamodb.Client, tableName string) *OtpRepo {
	return &OtpRepo{client: client, tableName: tableName}
}

func (r *OtpRepo) Put(ctx context.Context, c *domain.OtpCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal otp code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ConsumeIfActive marks the code consumed in one conditional update: the
// write lands only if the stored hash matches, the code is unconsumed, and
// it has not expired. Returns (false, nil) when the condition fails, so a
// replayed or wrong code cannot race a concurrent success.
func (r *OtpRepo) ConsumeIfActive(ctx context.Context, email, codeHash string, now int64) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("email", email),
		ConditionExpression: aws.String("code_hash = :h AND consumed = :f AND expires_at > :now"),
		UpdateExpression:    aws.String("SET consumed = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":h":   &types.AttributeValueMemberS{Value: codeHash},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
			":t":   &types.AttributeValueMemberBOOL{Value: true},
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

func (r *OtpRepo) Get(ctx context.Context, email string) (*domain.OtpCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("email", email),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp code not found: %w", domain.ErrNotFound)
	}
	var c domain.OtpCode
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
