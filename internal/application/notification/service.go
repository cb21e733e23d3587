package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-blog-api/internal/domain"
	"github.com/go-blog-api/internal/infrastructure/sns"
	"github.com/go-blog-api/internal/pkg/id"
)

type Service interface {
	// Notify persists a notification and publishes it to the topic.
	Notify(ctx context.Context, recipientAccountID, kind, postID, message string) error
	ListUnread(ctx context.Context, accountID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, callerAccountID string) error
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListUnreadByAccountID(ctx context.Context, accountID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
}

type service struct {
	repo      notificationStore
	publisher sns.Publisher
}

type ServiceDeps struct {
	NotificationRepo notificationStore
	Publisher        sns.Publisher
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.NotificationRepo, publisher: deps.Publisher}
}

func (s *service) Notify(ctx context.Context, recipientAccountID, kind, postID, message string) error {
	now := time.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		AccountID:      recipientAccountID,
		Kind:           kind,
		PostID:         postID,
		Message:        message,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishNotification(ctx, n); err != nil {
			slog.Warn("could not publish notification", "notification_id", n.NotificationID, "err", err)
		}
	}
	return nil
}

func (s *service) ListUnread(ctx context.Context, accountID string) ([]domain.Notification, error) {
	return s.repo.ListUnreadByAccountID(ctx, accountID)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, callerAccountID string) error {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.AccountID != callerAccountID {
		return fmt.Errorf("not the notification recipient: %w", domain.ErrForbidden)
	}
	return s.repo.MarkAsRead(ctx, notificationID)
}
