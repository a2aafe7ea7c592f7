// Package server is the blog backend: it accepts published drafts, stores
// them and serves the listing, the stored posts and their rendered HTML.
package server

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/blockpress/internal/auth"
	"github.com/debemdeboas/blockpress/internal/config"
	"github.com/debemdeboas/blockpress/internal/repository"
	"github.com/debemdeboas/blockpress/internal/routes"
	"github.com/debemdeboas/blockpress/internal/sse"
)

//go:embed templates/*
var templates embed.FS

const maxBodyBytes = 4 << 20

type Server struct {
	repo     repository.PostRepository
	archiver repository.Archiver
	provider auth.AuthProvider
	ed25519  *auth.Ed25519AuthProvider
	clients  *sse.SSEClients

	siteName    string
	syntaxTheme string

	index *template.Template
	post  *template.Template
}

type Option func(*Server)

// WithArchiver copies every created post to a.
func WithArchiver(a repository.Archiver) Option {
	return func(s *Server) { s.archiver = a }
}

// WithChallenge mounts the challenge and verify endpoints of p.
func WithChallenge(p *auth.Ed25519AuthProvider) Option {
	return func(s *Server) { s.ed25519 = p }
}

func WithSite(name, syntaxTheme string) Option {
	return func(s *Server) {
		s.siteName = name
		s.syntaxTheme = syntaxTheme
	}
}

func New(repo repository.PostRepository, provider auth.AuthProvider, clients *sse.SSEClients, opts ...Option) *Server {
	s := &Server{
		repo:        repo,
		provider:    provider,
		clients:     clients,
		siteName:    "Blockpress",
		syntaxTheme: "gruvbox",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.index = template.Must(template.ParseFS(templates, "templates/layout.html", "templates/index.html"))
	s.post = template.Must(template.ParseFS(templates, "templates/layout.html", "templates/post.html"))

	serverLogger.Debug().
		Bool("archive", s.archiver != nil).
		Bool("challenge", s.ed25519 != nil).
		Str("syntax_theme", s.syntaxTheme).
		Msg("Server configured")
	return s
}

// Handler builds the router. base is attached to every request context and
// picked up by handlers through zerolog.Ctx.
func (s *Server) Handler(base zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withLogger(base))
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)
	r.Use(cacheIt)
	r.Use(s.provider.WithHeaderAuthorization())

	r.Get(routes.RootPath, s.serveIndex)
	r.Get(routes.PostView, s.servePost)
	r.Get(routes.SyntaxCSS, serveSyntaxCSS(s.syntaxTheme))
	r.Get(routes.SSEPath, s.clients.Handler())

	r.Route(routes.APIPrefix+"/posts", func(r chi.Router) {
		r.Get("/", s.listPosts)
		r.Post("/create-posts/", s.createPost)
		r.Get("/{id}", s.getPost)
	})

	if s.ed25519 != nil {
		r.HandleFunc(routes.AuthChallenge, auth.Ed25519ChallengeHandler(s.ed25519))
		r.HandleFunc(routes.AuthVerify, auth.Ed25519VerifyHandler(s.ed25519))
	}

	return r
}

func withLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))

			l.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("Request served")
		})
	}
}

func cacheIt(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		w.Header().Set("Vary", "Cookie")
		next.ServeHTTP(w, r)
	})
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		next.ServeHTTP(w, r)
	})
}
