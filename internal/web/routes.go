package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/PauloHFS/goth-blog/docs"
	"github.com/PauloHFS/goth-blog/internal/middleware"
	"github.com/PauloHFS/goth-blog/internal/routes"
)

func RegisterRoutes(mux *http.ServeMux, deps HandlerDeps) {
	identity := middleware.Identity(deps.Resolver)
	public := func(h AppHandler) http.Handler {
		return identity(Handle(deps, h))
	}
	protected := func(h AppHandler) http.Handler {
		return identity(middleware.RequireAuth(Handle(deps, h)))
	}

	// Auth
	var login http.Handler = Handle(deps, handleLogin)
	if deps.LoginLimiter != nil {
		login = deps.LoginLimiter.Middleware(login)
	}
	mux.Handle("POST "+routes.Signup, Handle(deps, handleSignup))
	mux.Handle("POST "+routes.Login, login)
	mux.Handle("GET "+routes.Me, protected(handleMe))
	mux.Handle("GET "+routes.Logout, Handle(deps, handleLogout))

	// Posts
	mux.Handle("GET "+routes.Posts, public(handleListPosts))
	mux.Handle("POST "+routes.Posts, protected(handleCreatePost))
	mux.Handle("GET "+routes.MyPosts, protected(handleMyPosts))
	mux.Handle("GET "+routes.Post, public(handleGetPost))
	mux.Handle("PUT "+routes.Post, protected(handleUpdatePost))
	mux.Handle("PATCH "+routes.Post, protected(handleUpdatePost))
	mux.Handle("DELETE "+routes.Post, protected(handleDeletePost))

	// Uploads
	mux.Handle("POST "+routes.Upload, protected(handleUpload))
	mux.Handle("GET "+routes.Uploads, uploadsHandler(deps.Config.UploadDir))

	// Ops
	mux.Handle("GET "+routes.Health, Handle(deps, handleHealth))
	mux.Handle("GET "+routes.Metrics, promhttp.Handler())
	mux.Handle("GET "+routes.Swagger, httpSwagger.WrapHandler)
}
