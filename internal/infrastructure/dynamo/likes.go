package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-blog-api/internal/domain"
)

// LikeRepo provides typed DynamoDB operations for the likes table.
// PK: post_id, SK: account_id. Liking is idempotent per account and post.
type LikeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewLikeRepo(client *dynamodb.Client, tableName string) *LikeRepo {
	return &LikeRepo{client: client, tableName: tableName}
}

// Put stores a like. Returns false when the like already existed.
func (r *LikeRepo) Put(ctx context.Context, l *domain.Like) (bool, error) {
	item, err := attributevalue.MarshalMap(l)
	if err != nil {
		return false, fmt.Errorf("marshal like: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(post_id)"),
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

// Delete removes a like. Returns false when no like existed.
func (r *LikeRepo) Delete(ctx context.Context, postID, accountID string) (bool, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          compositeKey("post_id", postID, "account_id", accountID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, err
	}
	return out.Attributes != nil, nil
}

func (r *LikeRepo) Exists(ctx context.Context, postID, accountID string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("post_id", postID, "account_id", accountID),
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}

// ListByAccountID returns the likes an account has placed, via the GSI.
func (r *LikeRepo) ListByAccountID(ctx context.Context, accountID string) ([]domain.Like, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("account_id-index"),
		KeyConditionExpression: aws.String("account_id = :a"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: accountID},
		},
	})
	if err != nil {
		return nil, err
	}
	var likes []domain.Like
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &likes); err != nil {
		return nil, err
	}
	return likes, nil
}

// CountByPostID returns how many accounts like a post.
func (r *LikeRepo) CountByPostID(ctx context.Context, postID string) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("post_id = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: postID},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}
