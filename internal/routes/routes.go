package routes

const (
	Signup  = "/api/auth/signup"
	Login   = "/api/auth/login"
	Me      = "/api/auth/me"
	Logout  = "/api/auth/logout"
	Posts   = "/api/posts"
	MyPosts = "/api/posts/my-posts"
	Post    = "/api/posts/{id}"
	Upload  = "/api/upload"
	Uploads = "/uploads/"
	Health  = "/health"
	Metrics = "/metrics"
	Swagger = "/swagger/"
)
