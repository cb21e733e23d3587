package http

import (
	"net/http"

	"github.com/go-blog-api/internal/application/account"
	"github.com/go-blog-api/internal/application/attachment"
	"github.com/go-blog-api/internal/application/blog"
	"github.com/go-blog-api/internal/application/notification"
	"github.com/go-blog-api/internal/application/session"
	"github.com/go-blog-api/internal/config"
	"github.com/go-blog-api/internal/domain"
	"github.com/go-blog-api/internal/infrastructure/credstore"
	"github.com/go-blog-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-blog-api/internal/infrastructure/jwt"
	s3infra "github.com/go-blog-api/internal/infrastructure/s3"
	"github.com/go-blog-api/internal/infrastructure/smtp"
	"github.com/go-blog-api/internal/infrastructure/sns"
	"github.com/go-blog-api/internal/transport/http/handler"
	appmiddleware "github.com/go-blog-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo      *dynamo.AccountRepo
	RoleRepo         *dynamo.RoleRepo
	PostRepo         *dynamo.PostRepo
	CommentRepo      *dynamo.CommentRepo
	LikeRepo         *dynamo.LikeRepo
	AttachmentRepo   *dynamo.AttachmentRepo
	NotificationRepo *dynamo.NotificationRepo
	SessionRepo      *dynamo.SessionRepo
	CredStore        credstore.Store
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	Publisher        sns.Publisher
	JWTProvider      *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Refresh-Token"},
		ExposedHeaders:   []string{"X-Auth-Refresh-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	optAuthMw := appmiddleware.OptionalAuth(deps.JWTProvider)

	// 5 requests/second, burst of 10, on sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	accountSvc := account.NewService(account.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		RoleRepo:    deps.RoleRepo,
		CredStore:   deps.CredStore,
		TokenSigner: deps.JWTProvider,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo: deps.SessionRepo,
		AccountRepo: deps.AccountRepo,
		TokenSigner: deps.JWTProvider,
		RefreshDur:  cfg.RefreshTokenExpiry,
	})
	notifSvc := notification.NewService(notification.ServiceDeps{
		NotificationRepo: deps.NotificationRepo,
		Publisher:        deps.Publisher,
	})
	blogSvc := blog.NewService(blog.ServiceDeps{
		PostRepo:    deps.PostRepo,
		CommentRepo: deps.CommentRepo,
		LikeRepo:    deps.LikeRepo,
		AccountRepo: deps.AccountRepo,
		Notifier:    notifSvc,
	})
	attachmentSvc := attachment.NewService(attachment.ServiceDeps{
		AttachmentRepo: deps.AttachmentRepo,
		ObjectStore:    deps.S3Store,
	})

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc, deps.Mailer, cfg.PublicBaseURL)
	sessionH := handler.NewSessionHandler(sessionSvc)
	blogH := handler.NewBlogHandler(blogSvc)
	attachmentH := handler.NewAttachmentHandler(attachmentSvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	roleH := handler.NewRoleHandler(deps.RoleRepo)

	r.Route("/v1", func(r chi.Router) {
		// Public routes.
		r.Get("/health-check", healthH.Check)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Create)
		r.With(sensitiveRL.Limit).Post("/accounts/verify-code", accountH.IssueVerificationCode)
		r.With(sensitiveRL.Limit).Post("/accounts/register-token", accountH.IssueRegisterToken)
		r.With(sensitiveRL.Limit).Post("/accounts/reset-password-token", accountH.IssueResetToken)
		r.With(sensitiveRL.Limit).Post("/accounts/reset-password", accountH.ResetPassword)

		// Public reads. Visibility of private posts depends on who is asking.
		r.Group(func(r chi.Router) {
			r.Use(optAuthMw)

			r.Get("/posts", blogH.ListPosts)
			r.Get("/blog/{blogId}", blogH.GetBlogDetails)
			r.Get("/blog/{blogId}/posts", blogH.ListBlogPosts)
			r.Get("/blog/{blogId}/posts/{postUrl}", blogH.GetPost)
			r.Get("/posts/{postId}/comments", blogH.ListComments)
			r.Get("/attachments/{id}", attachmentH.Download)
			r.Get("/attachments/{id}/url", attachmentH.PresignedURL)
		})

		// Authenticated routes.
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/accounts/me", accountH.GetCurrent)
			r.Put("/accounts/{id}", accountH.Modify)
			r.Delete("/accounts/{id}", accountH.Delete)
			r.Post("/accounts/{id}/profile-image", accountH.SetProfileImage)

			r.Post("/sessions/logout", sessionH.Logout)

			r.Post("/blog/{blogId}/posts", blogH.CreatePost)
			r.Put("/posts/{postId}", blogH.ModifyPost)
			r.Delete("/posts/{postId}", blogH.DeletePost)
			r.Post("/posts/{postId}/comments", blogH.CreateComment)
			r.Put("/comments/{commentId}", blogH.ModifyComment)
			r.Delete("/comments/{commentId}", blogH.DeleteComment)
			r.Post("/posts/{postId}/likes", blogH.Like)
			r.Delete("/posts/{postId}/likes", blogH.Unlike)
			r.Get("/posts/{postId}/likes/me", blogH.IsLiked)
			r.Get("/liked-posts", blogH.ListLikedPosts)

			r.Post("/attachments", attachmentH.Upload)
			r.Delete("/attachments/{id}", attachmentH.Delete)

			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{id}", notifH.MarkAsRead)

			// Admin-only routes.
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/roles", roleH.List)
			})
		})
	})

	return r
}
