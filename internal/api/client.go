// Package api is the HTTP client for the posts backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/debemdeboas/blockpress/internal/model"
	"github.com/debemdeboas/blockpress/internal/routes"
)

const (
	HCType          = "Content-Type"
	CTypeJSON       = "application/json"
	DefaultAuthHdr  = "Authorization"
	defaultTimeout  = 15 * time.Second
	maxErrorBodyLen = 512
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSigner makes the client fetch and sign a challenge from challengeURL
// before each authenticated call.
func WithSigner(s *Signer, challengeURL string) Option {
	return func(c *Client) {
		c.signer = s
		c.challengeURL = challengeURL
	}
}

func WithAuthHeader(name string) Option {
	return func(c *Client) { c.authHeader = name }
}

type Client struct {
	base         *url.URL
	http         *http.Client
	signer       *Signer
	challengeURL string
	authHeader   string
}

// NewClient returns a client for the API rooted at baseURL, for instance
// "http://localhost:8080/api/".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api base url: %w", err)
	}

	c := &Client{
		base:       base,
		http:       &http.Client{Timeout: defaultTimeout},
		authHeader: DefaultAuthHdr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.ResolveReference(&url.URL{Path: path}).String()
}

// CreatePost sends the payload and reports the response status. The error is
// only set when no usable response came back.
func (c *Client) CreatePost(ctx context.Context, p model.SubmissionPayload) (int, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(routes.APICreatePostRel), bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set(HCType, CTypeJSON)
	if err := c.authorize(ctx, req); err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("posting draft: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		apiLogger.Warn().
			Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(msg))).
			Msg("Create post rejected")
		return resp.StatusCode, nil
	}

	var created CreatedPost
	if err := json.NewDecoder(resp.Body).Decode(&created); err == nil {
		apiLogger.Info().Str("post_id", string(created.ID)).Msg("Post created")
	}
	return resp.StatusCode, nil
}

// CreatedPost is the body of a 201 reply.
type CreatedPost struct {
	ID    model.PostID `json:"id"`
	Title string       `json:"title"`
}

// ListPosts fetches the post listing, newest first.
func (c *Client) ListPosts(ctx context.Context) ([]model.PostSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(routes.APIPostsRel), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing posts: unexpected status %d", resp.StatusCode)
	}

	var posts []model.PostSummary
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("decoding post listing: %w", err)
	}
	return posts, nil
}

// Challenge fetches the server's current challenge, base64 encoded.
func (c *Client) Challenge(ctx context.Context) (string, error) {
	if c.challengeURL == "" {
		return "", fmt.Errorf("no challenge url configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.challengeURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching challenge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching challenge: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Challenge string `json:"challenge"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding challenge: %w", err)
	}
	return body.Challenge, nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.signer == nil {
		return nil
	}
	challenge, err := c.Challenge(ctx)
	if err != nil {
		return err
	}
	sig, err := c.signer.Sign(challenge)
	if err != nil {
		return err
	}
	req.Header.Set(c.authHeader, sig)
	return nil
}
