package credstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// credentialItem is a single ephemeral credential row.
// PK: pk (namespaced key). expires_at doubles as the DynamoDB TTL attribute.
type credentialItem struct {
	PK        string `dynamodbav:"pk"`
	Value     string `dynamodbav:"value"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// Dynamo is the DynamoDB-backed Store.
//
// DynamoDB's TTL reaping is lazy (rows can linger for minutes past expiry),
// so every operation also enforces expires_at itself: reads filter expired
// rows and SetIfAbsent's condition allows overwriting an expired row.
type Dynamo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamo(client *dynamodb.Client, tableName string) *Dynamo {
	return &Dynamo{client: client, tableName: tableName}
}

func (d *Dynamo) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	item, err := attributevalue.MarshalMap(credentialItem{
		PK:        key,
		Value:     value,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	})
	if err != nil {
		return false, fmt.Errorf("marshal credential: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(pk) OR expires_at < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: unixNow()},
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

func (d *Dynamo) Get(ctx context.Context, key string) (string, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            pkKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	return liveValue(out.Item)
}

func (d *Dynamo) GetAndDelete(ctx context.Context, key string) (string, error) {
	out, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(d.tableName),
		Key:          pkKey(key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return "", err
	}
	return liveValue(out.Attributes)
}

func (d *Dynamo) Exists(ctx context.Context, key string) (bool, error) {
	v, err := d.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return v != "", nil
}

// liveValue unmarshals a row and returns its value, or "" when the row is
// absent or already past its expiry.
func liveValue(attrs map[string]types.AttributeValue) (string, error) {
	if attrs == nil {
		return "", nil
	}
	var it credentialItem
	if err := attributevalue.UnmarshalMap(attrs, &it); err != nil {
		return "", err
	}
	if it.ExpiresAt < time.Now().Unix() {
		return "", nil
	}
	return it.Value, nil
}

func pkKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: key},
	}
}

func unixNow() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}
