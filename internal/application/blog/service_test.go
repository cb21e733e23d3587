package blog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-blog-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockPostStore struct{ mock.Mock }

func (m *mockPostStore) Put(ctx context.Context, p *domain.Post) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockPostStore) Get(ctx context.Context, postID string) (*domain.Post, error) {
	args := m.Called(ctx, postID)
	if p, _ := args.Get(0).(*domain.Post); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPostStore) GetByURL(ctx context.Context, blogID, postURL string) (*domain.Post, error) {
	args := m.Called(ctx, blogID, postURL)
	if p, _ := args.Get(0).(*domain.Post); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockPostStore) ScanPage(ctx context.Context, limit int32, cursor string, publicOnly bool) ([]domain.Post, string, error) {
	args := m.Called(ctx, limit, cursor, publicOnly)
	return args.Get(0).([]domain.Post), args.String(1), args.Error(2)
}
func (m *mockPostStore) QueryBlogPage(ctx context.Context, blogID string, limit int32, cursor string, publicOnly bool) ([]domain.Post, string, error) {
	args := m.Called(ctx, blogID, limit, cursor, publicOnly)
	return args.Get(0).([]domain.Post), args.String(1), args.Error(2)
}
func (m *mockPostStore) CountByBlogID(ctx context.Context, blogID string) (int, error) {
	args := m.Called(ctx, blogID)
	return args.Int(0), args.Error(1)
}
func (m *mockPostStore) Update(ctx context.Context, postID string, updates map[string]interface{}) error {
	return m.Called(ctx, postID, updates).Error(0)
}
func (m *mockPostStore) SoftDelete(ctx context.Context, postID string) error {
	return m.Called(ctx, postID).Error(0)
}

type mockCommentStore struct{ mock.Mock }

func (m *mockCommentStore) Put(ctx context.Context, c *domain.Comment) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockCommentStore) Get(ctx context.Context, commentID string) (*domain.Comment, error) {
	args := m.Called(ctx, commentID)
	if c, _ := args.Get(0).(*domain.Comment); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCommentStore) ListByPostID(ctx context.Context, postID string) ([]domain.Comment, error) {
	args := m.Called(ctx, postID)
	return args.Get(0).([]domain.Comment), args.Error(1)
}
func (m *mockCommentStore) Update(ctx context.Context, commentID string, updates map[string]interface{}) error {
	return m.Called(ctx, commentID, updates).Error(0)
}
func (m *mockCommentStore) SoftDelete(ctx context.Context, commentID string) error {
	return m.Called(ctx, commentID).Error(0)
}

type mockLikeStore struct{ mock.Mock }

func (m *mockLikeStore) Put(ctx context.Context, l *domain.Like) (bool, error) {
	args := m.Called(ctx, l)
	return args.Bool(0), args.Error(1)
}
func (m *mockLikeStore) Delete(ctx context.Context, postID, accountID string) (bool, error) {
	args := m.Called(ctx, postID, accountID)
	return args.Bool(0), args.Error(1)
}
func (m *mockLikeStore) Exists(ctx context.Context, postID, accountID string) (bool, error) {
	args := m.Called(ctx, postID, accountID)
	return args.Bool(0), args.Error(1)
}
func (m *mockLikeStore) ListByAccountID(ctx context.Context, accountID string) ([]domain.Like, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]domain.Like), args.Error(1)
}

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) FindByBlogID(ctx context.Context, blogID string) (*domain.Account, error) {
	args := m.Called(ctx, blogID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, recipientAccountID, kind, postID, message string) error {
	return m.Called(ctx, recipientAccountID, kind, postID, message).Error(0)
}

// --- helpers ---

func newService(ps *mockPostStore, cs *mockCommentStore, ls *mockLikeStore, as *mockAccountStore, n Notifier) Service {
	return NewService(ServiceDeps{
		PostRepo:    ps,
		CommentRepo: cs,
		LikeRepo:    ls,
		AccountRepo: as,
		Notifier:    n,
	})
}

func owner() *domain.Account {
	return &domain.Account{AccountID: "a1", BlogID: "alice-blog", Name: "Alice"}
}

// --- derivation tests ---

func TestDeriveSummary_ExplicitWins(t *testing.T) {
	assert.Equal(t, "given", deriveSummary("given", "content line"))
}

func TestDeriveSummary_FirstNonBlankLine(t *testing.T) {
	assert.Equal(t, "second", deriveSummary("", "\n  \nsecond\nthird"))
}

func TestDeriveSummary_ClipsLongLine(t *testing.T) {
	long := strings.Repeat("x", 400)
	got := deriveSummary("", long)
	assert.Len(t, got, 255)
}

func TestRandomPostURL_EightHexChars(t *testing.T) {
	u, err := randomPostURL()
	require.NoError(t, err)
	assert.Len(t, u, 8)
	assert.Regexp(t, "^[0-9a-f]{8}$", u)
}

// --- post tests ---

func TestCreatePost_NotBlogOwner(t *testing.T) {
	as := &mockAccountStore{}
	as.On("FindByBlogID", mock.Anything, "alice-blog").Return(owner(), nil)

	svc := newService(&mockPostStore{}, nil, nil, as, nil)
	_, err := svc.CreatePost(context.Background(), "alice-blog", "intruder", domain.PostRequest{Title: "t"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestCreatePost_URLTaken(t *testing.T) {
	ps := &mockPostStore{}
	as := &mockAccountStore{}
	as.On("FindByBlogID", mock.Anything, "alice-blog").Return(owner(), nil)
	ps.On("GetByURL", mock.Anything, "alice-blog", "my-post").Return(&domain.Post{}, nil)

	svc := newService(ps, nil, nil, as, nil)
	_, err := svc.CreatePost(context.Background(), "alice-blog", "a1", domain.PostRequest{
		Title: "t", PostURL: "my-post",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestCreatePost_HappyPath_DerivesURLAndSummary(t *testing.T) {
	ps := &mockPostStore{}
	as := &mockAccountStore{}
	as.On("FindByBlogID", mock.Anything, "alice-blog").Return(owner(), nil)
	ps.On("GetByURL", mock.Anything, "alice-blog", mock.Anything).Return(nil, domain.ErrNotFound)
	ps.On("Put", mock.Anything, mock.AnythingOfType("*domain.Post")).Return(nil)

	svc := newService(ps, nil, nil, as, nil)
	p, err := svc.CreatePost(context.Background(), "alice-blog", "a1", domain.PostRequest{
		Title: "t", Content: "first line\nrest",
	})

	require.NoError(t, err)
	assert.Regexp(t, "^[0-9a-f]{8}$", p.PostURL)
	assert.Equal(t, "first line", p.Summary)
	assert.Equal(t, domain.OpenTypePublic, p.OpenType)
	ps.AssertExpectations(t)
}

func TestGetPost_PrivateHiddenFromOthers(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("GetByURL", mock.Anything, "alice-blog", "secret").Return(&domain.Post{
		PostID: "p1", AccountID: "a1", OpenType: domain.OpenTypePrivate,
	}, nil)

	svc := newService(ps, nil, nil, nil, nil)

	_, err := svc.GetPost(context.Background(), "alice-blog", "secret", "someone-else")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	p, err := svc.GetPost(context.Background(), "alice-blog", "secret", "a1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.PostID)
}

func TestListBlogPosts_PublicOnlyForNonOwner(t *testing.T) {
	ps := &mockPostStore{}
	as := &mockAccountStore{}
	as.On("FindByBlogID", mock.Anything, "alice-blog").Return(owner(), nil)
	ps.On("QueryBlogPage", mock.Anything, "alice-blog", int32(20), "", true).
		Return([]domain.Post{}, "", nil)

	svc := newService(ps, nil, nil, as, nil)
	_, _, err := svc.ListBlogPosts(context.Background(), "alice-blog", "stranger", 0, "")

	require.NoError(t, err)
	ps.AssertExpectations(t)
}

func TestListBlogPosts_OwnerSeesPrivate(t *testing.T) {
	ps := &mockPostStore{}
	as := &mockAccountStore{}
	as.On("FindByBlogID", mock.Anything, "alice-blog").Return(owner(), nil)
	ps.On("QueryBlogPage", mock.Anything, "alice-blog", int32(20), "", false).
		Return([]domain.Post{}, "", nil)

	svc := newService(ps, nil, nil, as, nil)
	_, _, err := svc.ListBlogPosts(context.Background(), "alice-blog", "a1", 0, "")

	require.NoError(t, err)
	ps.AssertExpectations(t)
}

func TestDeletePost_AuthorOnly(t *testing.T) {
	ps := &mockPostStore{}
	ps.On("Get", mock.Anything, "p1").Return(&domain.Post{PostID: "p1", AccountID: "a1"}, nil)

	svc := newService(ps, nil, nil, nil, nil)
	err := svc.DeletePost(context.Background(), "p1", "intruder")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	ps.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

// --- comment tests ---

func TestCreateComment_NotifiesPostAuthor(t *testing.T) {
	ps := &mockPostStore{}
	cs := &mockCommentStore{}
	n := &mockNotifier{}
	ps.On("Get", mock.Anything, "p1").Return(&domain.Post{PostID: "p1", AccountID: "a1"}, nil)
	cs.On("Put", mock.Anything, mock.AnythingOfType("*domain.Comment")).Return(nil)
	n.On("Notify", mock.Anything, "a1", domain.NotificationComment, "p1", mock.Anything).Return(nil)

	svc := newService(ps, cs, nil, nil, n)
	c, err := svc.CreateComment(context.Background(), "p1", nil, "commenter", domain.CommentRequest{Content: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "p1", c.PostID)
	n.AssertExpectations(t)
}

func TestCreateComment_SelfCommentDoesNotNotify(t *testing.T) {
	ps := &mockPostStore{}
	cs := &mockCommentStore{}
	n := &mockNotifier{}
	ps.On("Get", mock.Anything, "p1").Return(&domain.Post{PostID: "p1", AccountID: "a1"}, nil)
	cs.On("Put", mock.Anything, mock.AnythingOfType("*domain.Comment")).Return(nil)

	svc := newService(ps, cs, nil, nil, n)
	_, err := svc.CreateComment(context.Background(), "p1", nil, "a1", domain.CommentRequest{Content: "note to self"})

	require.NoError(t, err)
	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateComment_ParentOnAnotherPost(t *testing.T) {
	ps := &mockPostStore{}
	cs := &mockCommentStore{}
	ps.On("Get", mock.Anything, "p1").Return(&domain.Post{PostID: "p1", AccountID: "a1"}, nil)
	cs.On("Get", mock.Anything, "c9").Return(&domain.Comment{CommentID: "c9", PostID: "other"}, nil)

	parent := "c9"
	svc := newService(ps, cs, nil, nil, nil)
	_, err := svc.CreateComment(context.Background(), "p1", &parent, "a2", domain.CommentRequest{Content: "hi"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestModifyComment_AuthorOnly(t *testing.T) {
	cs := &mockCommentStore{}
	cs.On("Get", mock.Anything, "c1").Return(&domain.Comment{CommentID: "c1", AccountID: "a1"}, nil)

	svc := newService(nil, cs, nil, nil, nil)
	_, err := svc.ModifyComment(context.Background(), "c1", "intruder", domain.CommentRequest{Content: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

// --- like tests ---

func TestLike_DuplicateConflict(t *testing.T) {
	ps := &mockPostStore{}
	ls := &mockLikeStore{}
	ps.On("Get", mock.Anything, "p1").Return(&domain.Post{PostID: "p1", AccountID: "a1"}, nil)
	ls.On("Put", mock.Anything, mock.AnythingOfType("*domain.Like")).Return(false, nil)

	svc := newService(ps, nil, ls, nil, nil)
	err := svc.Like(context.Background(), "p1", "a2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestLike_HappyPath_Notifies(t *testing.T) {
	ps := &mockPostStore{}
	ls := &mockLikeStore{}
	n := &mockNotifier{}
	ps.On("Get", mock.Anything, "p1").Return(&domain.Post{PostID: "p1", AccountID: "a1"}, nil)
	ls.On("Put", mock.Anything, mock.AnythingOfType("*domain.Like")).Return(true, nil)
	n.On("Notify", mock.Anything, "a1", domain.NotificationLike, "p1", mock.Anything).Return(nil)

	svc := newService(ps, nil, ls, nil, n)
	err := svc.Like(context.Background(), "p1", "a2")

	require.NoError(t, err)
	n.AssertExpectations(t)
}

func TestUnlike_MissingLike(t *testing.T) {
	ls := &mockLikeStore{}
	ls.On("Delete", mock.Anything, "p1", "a2").Return(false, nil)

	svc := newService(nil, nil, ls, nil, nil)
	err := svc.Unlike(context.Background(), "p1", "a2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestListLikedPosts_SkipsDeletedPosts(t *testing.T) {
	ps := &mockPostStore{}
	ls := &mockLikeStore{}
	ls.On("ListByAccountID", mock.Anything, "a2").Return([]domain.Like{
		{PostID: "p1", AccountID: "a2"},
		{PostID: "gone", AccountID: "a2"},
	}, nil)
	ps.On("Get", mock.Anything, "p1").Return(&domain.Post{PostID: "p1"}, nil)
	ps.On("Get", mock.Anything, "gone").Return(nil, domain.ErrNotFound)

	svc := newService(ps, nil, ls, nil, nil)
	posts, err := svc.ListLikedPosts(context.Background(), "a2")

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].PostID)
}
