package blog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-blog-api/internal/domain"
	"github.com/go-blog-api/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldTitle            = "title"
	fieldSummary          = "summary"
	fieldContent          = "content"
	fieldTags             = "tags"
	fieldOpenType         = "open_type"
	fieldPostURL          = "post_url"
	fieldThumbnailImageID = "thumbnail_image_id"
)

const (
	defaultPageSize = 20
	maxSummaryLen   = 255
)

type Service interface {
	GetBlogDetails(ctx context.Context, blogID string) (*domain.BlogDetails, error)
	ListPosts(ctx context.Context, limit int, cursor string) ([]domain.Post, string, error)
	ListBlogPosts(ctx context.Context, blogID, callerAccountID string, limit int, cursor string) ([]domain.Post, string, error)
	GetPost(ctx context.Context, blogID, postURL, callerAccountID string) (*domain.Post, error)
	CreatePost(ctx context.Context, blogID, authorAccountID string, req domain.PostRequest) (*domain.Post, error)
	ModifyPost(ctx context.Context, postID, callerAccountID string, req domain.PostRequest) (*domain.Post, error)
	DeletePost(ctx context.Context, postID, callerAccountID string) error

	CreateComment(ctx context.Context, postID string, parentCommentID *string, authorAccountID string, req domain.CommentRequest) (*domain.Comment, error)
	ListComments(ctx context.Context, postID string) ([]domain.Comment, error)
	ModifyComment(ctx context.Context, commentID, callerAccountID string, req domain.CommentRequest) (*domain.Comment, error)
	DeleteComment(ctx context.Context, commentID, callerAccountID string) error

	Like(ctx context.Context, postID, accountID string) error
	Unlike(ctx context.Context, postID, accountID string) error
	IsLiked(ctx context.Context, postID, accountID string) (bool, error)
	ListLikedPosts(ctx context.Context, accountID string) ([]domain.Post, error)
}

type postStore interface {
	Put(ctx context.Context, p *domain.Post) error
	Get(ctx context.Context, postID string) (*domain.Post, error)
	GetByURL(ctx context.Context, blogID, postURL string) (*domain.Post, error)
	ScanPage(ctx context.Context, limit int32, cursor string, publicOnly bool) ([]domain.Post, string, error)
	QueryBlogPage(ctx context.Context, blogID string, limit int32, cursor string, publicOnly bool) ([]domain.Post, string, error)
	CountByBlogID(ctx context.Context, blogID string) (int, error)
	Update(ctx context.Context, postID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, postID string) error
}

type commentStore interface {
	Put(ctx context.Context, c *domain.Comment) error
	Get(ctx context.Context, commentID string) (*domain.Comment, error)
	ListByPostID(ctx context.Context, postID string) ([]domain.Comment, error)
	Update(ctx context.Context, commentID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, commentID string) error
}

type likeStore interface {
	Put(ctx context.Context, l *domain.Like) (bool, error)
	Delete(ctx context.Context, postID, accountID string) (bool, error)
	Exists(ctx context.Context, postID, accountID string) (bool, error)
	ListByAccountID(ctx context.Context, accountID string) ([]domain.Like, error)
}

type accountStore interface {
	FindByBlogID(ctx context.Context, blogID string) (*domain.Account, error)
}

// Notifier is called after a comment or like lands on someone else's post.
// Failures are logged, never surfaced to the caller.
type Notifier interface {
	Notify(ctx context.Context, recipientAccountID, kind, postID, message string) error
}

type service struct {
	posts    postStore
	comments commentStore
	likes    likeStore
	accounts accountStore
	notifier Notifier
}

type ServiceDeps struct {
	PostRepo    postStore
	CommentRepo commentStore
	LikeRepo    likeStore
	AccountRepo accountStore
	Notifier    Notifier
}

func NewService(deps ServiceDeps) Service {
	return &service{
		posts:    deps.PostRepo,
		comments: deps.CommentRepo,
		likes:    deps.LikeRepo,
		accounts: deps.AccountRepo,
		notifier: deps.Notifier,
	}
}

func (s *service) GetBlogDetails(ctx context.Context, blogID string) (*domain.BlogDetails, error) {
	owner, err := s.accounts.FindByBlogID(ctx, blogID)
	if err != nil {
		return nil, fmt.Errorf("blog not found: %w", domain.ErrNotFound)
	}
	count, err := s.posts.CountByBlogID(ctx, blogID)
	if err != nil {
		return nil, err
	}
	return &domain.BlogDetails{
		BlogID:         blogID,
		OwnerName:      owner.Name,
		Biography:      owner.Biography,
		PostCount:      count,
		ProfileImageID: owner.ProfileImageID,
	}, nil
}

func (s *service) ListPosts(ctx context.Context, limit int, cursor string) ([]domain.Post, string, error) {
	if limit < 1 {
		limit = defaultPageSize
	}
	return s.posts.ScanPage(ctx, int32(limit), cursor, true)
}

func (s *service) ListBlogPosts(ctx context.Context, blogID, callerAccountID string, limit int, cursor string) ([]domain.Post, string, error) {
	if limit < 1 {
		limit = defaultPageSize
	}
	owner, err := s.accounts.FindByBlogID(ctx, blogID)
	if err != nil {
		return nil, "", fmt.Errorf("blog not found: %w", domain.ErrNotFound)
	}
	publicOnly := callerAccountID == "" || callerAccountID != owner.AccountID
	return s.posts.QueryBlogPage(ctx, blogID, int32(limit), cursor, publicOnly)
}

func (s *service) GetPost(ctx context.Context, blogID, postURL, callerAccountID string) (*domain.Post, error) {
	p, err := s.posts.GetByURL(ctx, blogID, postURL)
	if err != nil {
		return nil, err
	}
	if p.OpenType == domain.OpenTypePrivate && p.AccountID != callerAccountID {
		return nil, fmt.Errorf("post not found: %w", domain.ErrNotFound)
	}
	return p, nil
}

func (s *service) CreatePost(ctx context.Context, blogID, authorAccountID string, req domain.PostRequest) (*domain.Post, error) {
	owner, err := s.accounts.FindByBlogID(ctx, blogID)
	if err != nil {
		return nil, fmt.Errorf("blog not found: %w", domain.ErrNotFound)
	}
	if owner.AccountID != authorAccountID {
		return nil, fmt.Errorf("not the blog owner: %w", domain.ErrForbidden)
	}

	postURL := req.PostURL
	if postURL == "" {
		postURL, err = randomPostURL()
		if err != nil {
			return nil, err
		}
	}
	if _, err := s.posts.GetByURL(ctx, blogID, postURL); err == nil {
		return nil, fmt.Errorf("post url already taken: %w", domain.ErrConflict)
	}

	openType := req.OpenType
	if openType == "" {
		openType = domain.OpenTypePublic
	}
	now := time.Now().UTC()
	p := &domain.Post{
		PostID:           id.New(),
		BlogID:           blogID,
		PostURL:          postURL,
		Title:            req.Title,
		Summary:          deriveSummary(req.Summary, req.Content),
		Content:          req.Content,
		Tags:             req.Tags,
		OpenType:         openType,
		ThumbnailImageID: req.ThumbnailImageID,
		AccountID:        authorAccountID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.posts.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) ModifyPost(ctx context.Context, postID, callerAccountID string, req domain.PostRequest) (*domain.Post, error) {
	p, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.AccountID != callerAccountID {
		return nil, fmt.Errorf("not the post author: %w", domain.ErrForbidden)
	}
	updates := map[string]interface{}{
		fieldTitle:   req.Title,
		fieldSummary: deriveSummary(req.Summary, req.Content),
		fieldContent: req.Content,
	}
	if req.Tags != nil {
		updates[fieldTags] = req.Tags
	}
	if req.OpenType != "" {
		updates[fieldOpenType] = req.OpenType
	}
	if req.PostURL != "" && req.PostURL != p.PostURL {
		if _, err := s.posts.GetByURL(ctx, p.BlogID, req.PostURL); err == nil {
			return nil, fmt.Errorf("post url already taken: %w", domain.ErrConflict)
		}
		updates[fieldPostURL] = req.PostURL
	}
	if req.ThumbnailImageID != nil {
		updates[fieldThumbnailImageID] = *req.ThumbnailImageID
	}
	if err := s.posts.Update(ctx, postID, updates); err != nil {
		return nil, err
	}
	return s.posts.Get(ctx, postID)
}

func (s *service) DeletePost(ctx context.Context, postID, callerAccountID string) error {
	p, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if p.AccountID != callerAccountID {
		return fmt.Errorf("not the post author: %w", domain.ErrForbidden)
	}
	return s.posts.SoftDelete(ctx, postID)
}

func (s *service) CreateComment(ctx context.Context, postID string, parentCommentID *string, authorAccountID string, req domain.CommentRequest) (*domain.Comment, error) {
	p, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if parentCommentID != nil {
		parent, err := s.comments.Get(ctx, *parentCommentID)
		if err != nil {
			return nil, fmt.Errorf("parent comment not found: %w", domain.ErrNotFound)
		}
		if parent.PostID != postID {
			return nil, fmt.Errorf("parent comment belongs to another post: %w", domain.ErrBadRequest)
		}
	}
	now := time.Now().UTC()
	c := &domain.Comment{
		CommentID:       id.New(),
		PostID:          postID,
		ParentCommentID: parentCommentID,
		AccountID:       authorAccountID,
		Content:         req.Content,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.comments.Put(ctx, c); err != nil {
		return nil, err
	}
	s.notify(ctx, p, authorAccountID, domain.NotificationComment, "new comment on your post")
	return c, nil
}

func (s *service) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPostID(ctx, postID)
}

func (s *service) ModifyComment(ctx context.Context, commentID, callerAccountID string, req domain.CommentRequest) (*domain.Comment, error) {
	c, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.AccountID != callerAccountID {
		return nil, fmt.Errorf("not the comment author: %w", domain.ErrForbidden)
	}
	if err := s.comments.Update(ctx, commentID, map[string]interface{}{fieldContent: req.Content}); err != nil {
		return nil, err
	}
	return s.comments.Get(ctx, commentID)
}

func (s *service) DeleteComment(ctx context.Context, commentID, callerAccountID string) error {
	c, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return err
	}
	if c.AccountID != callerAccountID {
		return fmt.Errorf("not the comment author: %w", domain.ErrForbidden)
	}
	return s.comments.SoftDelete(ctx, commentID)
}

func (s *service) Like(ctx context.Context, postID, accountID string) error {
	p, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	created, err := s.likes.Put(ctx, &domain.Like{
		PostID:    postID,
		AccountID: accountID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("already liked: %w", domain.ErrConflict)
	}
	s.notify(ctx, p, accountID, domain.NotificationLike, "someone liked your post")
	return nil
}

func (s *service) Unlike(ctx context.Context, postID, accountID string) error {
	removed, err := s.likes.Delete(ctx, postID, accountID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("like not found: %w", domain.ErrNotFound)
	}
	return nil
}

func (s *service) IsLiked(ctx context.Context, postID, accountID string) (bool, error) {
	return s.likes.Exists(ctx, postID, accountID)
}

func (s *service) ListLikedPosts(ctx context.Context, accountID string) ([]domain.Post, error) {
	likes, err := s.likes.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	posts := make([]domain.Post, 0, len(likes))
	for _, l := range likes {
		p, err := s.posts.Get(ctx, l.PostID)
		if err != nil {
			continue // deleted since the like was placed
		}
		posts = append(posts, *p)
	}
	return posts, nil
}

// notify delivers a notification to the post author unless the actor is the
// author themselves.
func (s *service) notify(ctx context.Context, p *domain.Post, actorAccountID, kind, message string) {
	if s.notifier == nil || p.AccountID == actorAccountID {
		return
	}
	if err := s.notifier.Notify(ctx, p.AccountID, kind, p.PostID, message); err != nil {
		slog.Warn("could not deliver notification", "post_id", p.PostID, "kind", kind, "err", err)
	}
}

// deriveSummary falls back to the first non-blank content line, clipped to
// maxSummaryLen, when no summary is given.
func deriveSummary(summary, content string) string {
	if summary != "" {
		return summary
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > maxSummaryLen {
			return line[:maxSummaryLen]
		}
		return line
	}
	return ""
}

// randomPostURL draws 4 random bytes and encodes them as 8 hex characters.
func randomPostURL() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
