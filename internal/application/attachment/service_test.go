package attachment

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-blog-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAttachmentStore struct{ mock.Mock }

func (m *mockAttachmentStore) Put(ctx context.Context, a *domain.Attachment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAttachmentStore) Get(ctx context.Context, fileID string) (*domain.Attachment, error) {
	args := m.Called(ctx, fileID)
	if a := args.Get(0); a != nil {
		return a.(*domain.Attachment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAttachmentStore) SoftDelete(ctx context.Context, fileID string) error {
	return m.Called(ctx, fileID).Error(0)
}

type mockObjectStore struct{ mock.Mock }

func (m *mockObjectStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	return m.Called(ctx, key, r, contentType).Error(0)
}

func (m *mockObjectStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if rc := args.Get(0); rc != nil {
		return rc.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjectStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func newTestService() (Service, *mockAttachmentStore, *mockObjectStore) {
	repo := new(mockAttachmentStore)
	objects := new(mockObjectStore)
	svc := NewService(ServiceDeps{AttachmentRepo: repo, ObjectStore: objects})
	return svc, repo, objects
}

func TestUpload_TooLarge(t *testing.T) {
	svc, repo, objects := newTestService()

	_, err := svc.Upload(context.Background(), "a1", "huge.bin", "application/octet-stream",
		domain.MaxAttachmentSize+1, strings.NewReader(""))

	require.ErrorIs(t, err, domain.ErrBadRequest)
	objects.AssertNotCalled(t, "Upload")
	repo.AssertNotCalled(t, "Put")
}

func TestUpload_StoresObjectThenRecord(t *testing.T) {
	svc, repo, objects := newTestService()

	objects.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasSuffix(key, "/photo.png")
	}), mock.Anything, "image/png").Return(nil)
	repo.On("Put", mock.Anything, mock.MatchedBy(func(a *domain.Attachment) bool {
		return a.Name == "photo.png" && a.AccountID == "a1" && a.Size == 42 &&
			a.Object == a.FileID+"/photo.png"
	})).Return(nil)

	a, err := svc.Upload(context.Background(), "a1", "photo.png", "image/png", 42,
		strings.NewReader("pretend this is a png"))

	require.NoError(t, err)
	assert.NotEmpty(t, a.FileID)
	repo.AssertExpectations(t)
	objects.AssertExpectations(t)
}

func TestUpload_DefaultsContentType(t *testing.T) {
	svc, repo, objects := newTestService()

	objects.On("Upload", mock.Anything, mock.Anything, mock.Anything, "application/octet-stream").Return(nil)
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	a, err := svc.Upload(context.Background(), "a1", "blob", "", 3, strings.NewReader("abc"))

	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", a.ContentType)
}

func TestDownload(t *testing.T) {
	svc, repo, objects := newTestService()

	stored := &domain.Attachment{FileID: "f1", Object: "f1/photo.png", Name: "photo.png", Size: 5}
	repo.On("Get", mock.Anything, "f1").Return(stored, nil)
	objects.On("Download", mock.Anything, "f1/photo.png").
		Return(io.NopCloser(strings.NewReader("bytes")), nil)

	a, body, err := svc.Download(context.Background(), "f1")

	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, "photo.png", a.Name)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
}

func TestPresignedURL(t *testing.T) {
	svc, repo, objects := newTestService()

	repo.On("Get", mock.Anything, "f1").
		Return(&domain.Attachment{FileID: "f1", Object: "f1/photo.png"}, nil)
	objects.On("PresignedURL", mock.Anything, "f1/photo.png", presignTTL).
		Return("https://bucket.s3.example.com/f1/photo.png?sig=abc", nil)

	url, err := svc.PresignedURL(context.Background(), "f1")

	require.NoError(t, err)
	assert.Contains(t, url, "f1/photo.png")
}

func TestDelete_NotOwner(t *testing.T) {
	svc, repo, _ := newTestService()

	repo.On("Get", mock.Anything, "f1").
		Return(&domain.Attachment{FileID: "f1", AccountID: "a1"}, nil)

	err := svc.Delete(context.Background(), "f1", "a2")

	require.ErrorIs(t, err, domain.ErrForbidden)
	repo.AssertNotCalled(t, "SoftDelete")
}

func TestDelete_Owner(t *testing.T) {
	svc, repo, _ := newTestService()

	repo.On("Get", mock.Anything, "f1").
		Return(&domain.Attachment{FileID: "f1", AccountID: "a1"}, nil)
	repo.On("SoftDelete", mock.Anything, "f1").Return(nil)

	err := svc.Delete(context.Background(), "f1", "a1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
