// Package routes defines HTTP route constants for the application.
package routes

const (
	RootPath = "/"

	// SSE
	SSEPath   = "/sse"
	SSETopic  = "posts"
	SSECreate = "created"

	// API, absolute
	APIPrefix     = "/api"
	APIPosts      = "/api/posts/"
	APIPost       = "/api/posts/{id}"
	APICreatePost = "/api/posts/create-posts/"

	// API, relative to the API base url
	APIPostsRel      = "posts/"
	APICreatePostRel = "posts/create-posts/"
	APIUploadImage   = "posts/upload-image/"
	APIFetchURL      = "posts/fetch-url/"

	// Rendered posts
	PostView  = "/posts/{id}"
	PostsPath = "/posts/"
	SyntaxCSS = "/syntax.css"

	// Auth
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"
)
