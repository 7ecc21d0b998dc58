package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/qr-codes-api/internal/application/account"
	qrapp "github.com/qr-codes-api/internal/application/qrcode"
	"github.com/qr-codes-api/internal/application/storage"
	"github.com/qr-codes-api/internal/config"
	"github.com/qr-codes-api/internal/encoder"
	"github.com/qr-codes-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/qr-codes-api/internal/infrastructure/jwt"
	s3infra "github.com/qr-codes-api/internal/infrastructure/s3"
	"github.com/qr-codes-api/internal/transport/http/handler"
	appmiddleware "github.com/qr-codes-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo     *dynamo.UserRepo
	SessionRepo  *dynamo.SessionRepo
	QRCodeRepo   *dynamo.QRCodeRepo
	AvatarStore  *s3infra.Store
	ContentStore *s3infra.Store
	JWTProvider  *jwtinfra.Provider
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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10, applied to the public auth endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	storageSvc := storage.NewService(deps.ContentStore, deps.AvatarStore)
	accountSvc := account.NewService(account.ServiceDeps{
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		Uploads:         storageSvc,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	qrSvc := qrapp.NewService(qrapp.ServiceDeps{
		RecordRepo: deps.QRCodeRepo,
		Uploads:    storageSvc,
		Encode:     encoder.Encode,
	})

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc)
	sessionH := handler.NewSessionHandler(accountSvc)
	qrH := handler.NewQRCodeHandler(qrSvc)

	r.Route("/v1", func(r chi.Router) {
		// Public routes (no auth)
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/users", accountH.SignUp)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.SignIn)
		r.With(sensitiveRL.Limit).Post("/sessions/refresh", sessionH.Refresh)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.SignOut)

			r.Get("/users/me", accountH.GetProfile)
			r.Put("/users/me", accountH.UpdateProfile)
			r.Put("/users/me/avatar", accountH.UpdateAvatar)
			r.Get("/users/me/settings", accountH.GetSettings)
			r.Put("/users/me/settings", accountH.UpdateSettings)

			r.Post("/qr-codes", qrH.Generate)
			r.Get("/qr-codes", qrH.List)
			r.Put("/qr-codes/{id}/notes", qrH.UpdateNotes)
			r.Get("/qr-codes/{id}/share", qrH.Share)
			r.Delete("/qr-codes/{id}", qrH.Delete)
		})
	})

	return r
}
