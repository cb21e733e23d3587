package domain

import "time"

// Notification kinds.
const (
	NotificationComment = "comment"
	NotificationLike    = "like"
)

type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	AccountID      string    `json:"account_id" dynamodbav:"account_id"`
	Kind           string    `json:"kind" dynamodbav:"kind"`
	PostID         string    `json:"post_id" dynamodbav:"post_id"`
	Message        string    `json:"message" dynamodbav:"message"`
	Read           bool      `json:"read" dynamodbav:"read"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}
