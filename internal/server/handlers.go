package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/blockpress/internal/config"
	"github.com/debemdeboas/blockpress/internal/draft"
	"github.com/debemdeboas/blockpress/internal/model"
	"github.com/debemdeboas/blockpress/internal/render"
	"github.com/debemdeboas/blockpress/internal/repository"
	"github.com/debemdeboas/blockpress/internal/routes"
	"github.com/debemdeboas/blockpress/internal/theme"
	"github.com/debemdeboas/blockpress/internal/validate"
)

type createdResponse struct {
	ID    model.PostID `json:"id"`
	Title string       `json:"title"`
}

type createdEvent struct {
	Event string       `json:"event"`
	ID    model.PostID `json:"id"`
	Title string       `json:"title"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	userID, err := s.provider.EnforceUserAndGetID(w, r)
	if err != nil {
		return
	}

	var payload model.SubmissionPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		l.Debug().Err(err).Msg("Invalid create-post body")
		http.Error(w, config.HTTPErrBadRequest, http.StatusBadRequest)
		return
	}

	if !validate.Evaluate(payload.Content) {
		http.Error(w, config.HTTPErrNotPublishable, http.StatusUnprocessableEntity)
		return
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = draft.Title(payload.Content)
	}

	post := repository.NewPost(title, payload.Content, userID)
	if err := s.repo.SavePost(r.Context(), post); err != nil {
		l.Error().Err(err).Str("post_id", string(post.ID)).Msg("Failed to save post")
		http.Error(w, config.ErrSavePost, http.StatusInternalServerError)
		return
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(r.Context(), post); err != nil {
			// The post is stored; the archive copy can be redone later.
			l.Warn().Err(err).Str("post_id", string(post.ID)).Msg("Failed to archive post")
		}
	}

	if event, err := json.Marshal(createdEvent{Event: routes.SSECreate, ID: post.ID, Title: post.Title}); err == nil {
		go s.clients.Broadcast(routes.SSETopic, string(event))
	}
	render.WarmCache(post, s.syntaxTheme)

	l.Info().Str("post_id", string(post.ID)).Str("title", post.Title).Msg("Post created")
	writeJSON(w, http.StatusCreated, createdResponse{ID: post.ID, Title: post.Title})
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.repo.ListPosts(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to list posts")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) loadPost(w http.ResponseWriter, r *http.Request) (*model.Post, bool) {
	post, err := s.repo.GetPost(r.Context(), model.PostID(chi.URLParam(r, "id")))
	if errors.Is(err, repository.ErrPostNotFound) {
		http.Error(w, config.HTTPErrNotFound, http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to read post")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return nil, false
	}
	return post, true
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	if post, ok := s.loadPost(w, r); ok {
		writeJSON(w, http.StatusOK, post)
	}
}

type pageData struct {
	SiteName  string
	Title     string
	SyntaxCSS string
}

func (s *Server) page(title, syntaxTheme string) pageData {
	return pageData{
		SiteName:  s.siteName,
		Title:     title,
		SyntaxCSS: routes.SyntaxCSS + "?syntax=" + syntaxTheme,
	}
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	posts, err := s.repo.ListPosts(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to list posts")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	data := struct {
		pageData
		Posts []model.PostSummary
	}{
		pageData: s.page(s.siteName, theme.SyntaxThemeFromRequest(r, s.syntaxTheme)),
		Posts:    posts,
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	if err := s.index.ExecuteTemplate(w, "index.html", data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render index")
	}
}

func (s *Server) servePost(w http.ResponseWriter, r *http.Request) {
	post, ok := s.loadPost(w, r)
	if !ok {
		return
	}

	syntaxTheme := theme.SyntaxThemeFromRequest(r, s.syntaxTheme)
	data := struct {
		pageData
		Post    *model.Post
		Content template.HTML
	}{
		pageData: s.page(post.Title, syntaxTheme),
		Post:     post,
		// Output is sanitized by the renderer.
		Content: template.HTML(render.PostHTML(post, syntaxTheme)),
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	if err := s.post.ExecuteTemplate(w, "post.html", data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render post")
	}
}

func serveSyntaxCSS(fallback string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, config.CTypeCSS)
		w.Header().Set(config.HCacheControl, "public, max-age=3600")
		w.Write(theme.SyntaxCSS(theme.SyntaxThemeFromRequest(r, fallback)))
	}
}
