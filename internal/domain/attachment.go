package domain

import "time"

// MaxAttachmentSize is the largest accepted upload (100MB).
const MaxAttachmentSize = 100 * 1024 * 1024

type Attachment struct {
	FileID      string    `json:"id" dynamodbav:"file_id"`
	Object      string    `json:"object" dynamodbav:"object"`
	Name        string    `json:"name" dynamodbav:"name"`
	Size        int64     `json:"size" dynamodbav:"size"`
	ContentType string    `json:"content_type" dynamodbav:"content_type"`
	AccountID   string    `json:"account_id" dynamodbav:"account_id"`
	Deleted     bool      `json:"-" dynamodbav:"deleted"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
}
