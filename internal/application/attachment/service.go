package attachment

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-blog-api/internal/domain"
	"github.com/go-blog-api/internal/pkg/id"
)

const presignTTL = 15 * time.Minute

type Service interface {
	Upload(ctx context.Context, accountID, filename, contentType string, size int64, r io.Reader) (*domain.Attachment, error)
	Download(ctx context.Context, fileID string) (*domain.Attachment, io.ReadCloser, error)
	PresignedURL(ctx context.Context, fileID string) (string, error)
	Delete(ctx context.Context, fileID, callerAccountID string) error
}

type attachmentStore interface {
	Put(ctx context.Context, a *domain.Attachment) error
	Get(ctx context.Context, fileID string) (*domain.Attachment, error)
	SoftDelete(ctx context.Context, fileID string) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	repo    attachmentStore
	objects objectStore
}

type ServiceDeps struct {
	AttachmentRepo attachmentStore
	ObjectStore    objectStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.AttachmentRepo, objects: deps.ObjectStore}
}

func (s *service) Upload(ctx context.Context, accountID, filename, contentType string, size int64, r io.Reader) (*domain.Attachment, error) {
	if size > domain.MaxAttachmentSize {
		return nil, fmt.Errorf("attachment exceeds the size limit: %w", domain.ErrBadRequest)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	a := &domain.Attachment{
		FileID:      id.New(),
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		AccountID:   accountID,
		CreatedAt:   time.Now().UTC(),
	}
	a.Object = a.FileID + "/" + filename
	if err := s.objects.Upload(ctx, a.Object, io.LimitReader(r, domain.MaxAttachmentSize), contentType); err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) Download(ctx context.Context, fileID string) (*domain.Attachment, io.ReadCloser, error) {
	a, err := s.repo.Get(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.objects.Download(ctx, a.Object)
	if err != nil {
		return nil, nil, err
	}
	return a, body, nil
}

// PresignedURL returns a short-lived direct download link, letting large
// payloads bypass the API process entirely.
func (s *service) PresignedURL(ctx context.Context, fileID string) (string, error) {
	a, err := s.repo.Get(ctx, fileID)
	if err != nil {
		return "", err
	}
	return s.objects.PresignedURL(ctx, a.Object, presignTTL)
}

func (s *service) Delete(ctx context.Context, fileID, callerAccountID string) error {
	a, err := s.repo.Get(ctx, fileID)
	if err != nil {
		return err
	}
	if a.AccountID != callerAccountID {
		return fmt.Errorf("not the attachment owner: %w", domain.ErrForbidden)
	}
	return s.repo.SoftDelete(ctx, fileID)
}
