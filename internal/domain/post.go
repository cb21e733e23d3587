package domain

import "time"

// Post open types.
const (
	OpenTypePublic  = "public"
	OpenTypePrivate = "private"
)

type Post struct {
	PostID           string    `json:"id" dynamodbav:"post_id"`
	BlogID           string    `json:"blog_id" dynamodbav:"blog_id"`
	PostURL          string    `json:"post_url" dynamodbav:"post_url"`
	Title            string    `json:"title" dynamodbav:"title"`
	Summary          string    `json:"summary" dynamodbav:"summary"`
	Content          string    `json:"content" dynamodbav:"content"`
	Tags             []string  `json:"tags,omitempty" dynamodbav:"tags"`
	OpenType         string    `json:"open_type" dynamodbav:"open_type"`
	ThumbnailImageID *string   `json:"thumbnail_image_id,omitempty" dynamodbav:"thumbnail_image_id"`
	AccountID        string    `json:"account_id" dynamodbav:"account_id"`
	Deleted          bool      `json:"-" dynamodbav:"deleted"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
}

type PostRequest struct {
	Title            string   `json:"title" validate:"required,max=2000"`
	Summary          string   `json:"summary" validate:"omitempty,max=255"`
	Content          string   `json:"content"`
	Tags             []string `json:"tags"`
	OpenType         string   `json:"open_type" validate:"omitempty,oneof=public private"`
	PostURL          string   `json:"post_url" validate:"omitempty,max=320"`
	ThumbnailImageID *string  `json:"thumbnail_image_id"`
}

type Comment struct {
	CommentID       string    `json:"id" dynamodbav:"comment_id"`
	PostID          string    `json:"post_id" dynamodbav:"post_id"`
	ParentCommentID *string   `json:"parent_comment_id,omitempty" dynamodbav:"parent_comment_id"`
	AccountID       string    `json:"account_id" dynamodbav:"account_id"`
	Content         string    `json:"content" dynamodbav:"content"`
	Deleted         bool      `json:"-" dynamodbav:"deleted"`
	CreatedAt       time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// Like records that an account likes a post. Likes are hard-deleted on unlike.
type Like struct {
	PostID    string    `json:"post_id" dynamodbav:"post_id"`
	AccountID string    `json:"account_id" dynamodbav:"account_id"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// BlogDetails is the public projection of a blog and its owner.
type BlogDetails struct {
	BlogID    string  `json:"blog_id"`
	OwnerName string  `json:"owner_name"`
	Biography string  `json:"biography,omitempty"`
	PostCount int     `json:"post_count"`
	ProfileImageID *string `json:"profile_image_id,omitempty"`
}
