package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-blog-api/internal/domain"
)

// PostRepo provides typed DynamoDB operations for the posts table.
// PK: post_id. GSI: blog_id-post_url-index (blog_id HASH, post_url RANGE).
type PostRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPostRepo(client *dynamodb.Client, tableName string) *PostRepo {
	return &PostRepo{client: client, tableName: tableName}
}

func (r *PostRepo) Put(ctx context.Context, p *domain.Post) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *PostRepo) Get(ctx context.Context, postID string) (*domain.Post, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("post_id", postID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("post not found: %w", domain.ErrNotFound)
	}
	var p domain.Post
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	if p.Deleted {
		return nil, fmt.Errorf("post not found: %w", domain.ErrNotFound)
	}
	return &p, nil
}

// GetByURL looks up a post by its blog-scoped URL via the GSI. A deleted
// post's URL can be reused, so deleted rows sharing the key are paged past
// rather than capping the query.
func (r *PostRepo) GetByURL(ctx context.Context, blogID, postURL string) (*domain.Post, error) {
	item, err := queryFirstItem(ctx, r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("blog_id-post_url-index"),
		KeyConditionExpression: aws.String("blog_id = :b AND post_url = :u"),
		FilterExpression:       aws.String("deleted = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":b": &types.AttributeValueMemberS{Value: blogID},
			":u": &types.AttributeValueMemberS{Value: postURL},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("post not found: %w", domain.ErrNotFound)
	}
	var p domain.Post
	if err := attributevalue.UnmarshalMap(item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ScanPage returns a page of non-deleted posts ordered by the scan cursor.
// cursor is a base64-encoded post_id used as ExclusiveStartKey.
func (r *PostRepo) ScanPage(ctx context.Context, limit int32, cursor string, publicOnly bool) ([]domain.Post, string, error) {
	filter := "deleted = :f"
	values := map[string]types.AttributeValue{
		":f": &types.AttributeValueMemberBOOL{Value: false},
	}
	if publicOnly {
		filter += " AND open_type = :o"
		values[":o"] = &types.AttributeValueMemberS{Value: domain.OpenTypePublic}
	}
	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
		Limit:                     aws.Int32(limit),
	}
	if cursor != "" {
		postID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("post_id", postID)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var posts []domain.Post
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &posts); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["post_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return posts, nextCursor, nil
}

// QueryBlogPage returns a page of a blog's posts via the blog GSI.
func (r *PostRepo) QueryBlogPage(ctx context.Context, blogID string, limit int32, cursor string, publicOnly bool) ([]domain.Post, string, error) {
	filter := "deleted = :f"
	values := map[string]types.AttributeValue{
		":b": &types.AttributeValueMemberS{Value: blogID},
		":f": &types.AttributeValueMemberBOOL{Value: false},
	}
	if publicOnly {
		filter += " AND open_type = :o"
		values[":o"] = &types.AttributeValueMemberS{Value: domain.OpenTypePublic}
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("blog_id-post_url-index"),
		KeyConditionExpression:    aws.String("blog_id = :b"),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
		Limit:                     aws.Int32(limit),
	}
	if cursor != "" {
		postURL, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"blog_id":  &types.AttributeValueMemberS{Value: blogID},
			"post_url": &types.AttributeValueMemberS{Value: postURL},
		}
	}
	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var posts []domain.Post
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &posts); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["post_url"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return posts, nextCursor, nil
}

// CountByBlogID returns the number of non-deleted posts in a blog.
func (r *PostRepo) CountByBlogID(ctx context.Context, blogID string) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("blog_id-post_url-index"),
		KeyConditionExpression: aws.String("blog_id = :b"),
		FilterExpression:       aws.String("deleted = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":b": &types.AttributeValueMemberS{Value: blogID},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}

func (r *PostRepo) Update(ctx context.Context, postID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("post_id", postID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *PostRepo) SoftDelete(ctx context.Context, postID string) error {
	return r.Update(ctx, postID, map[string]interface{}{fieldDeleted: true})
}
