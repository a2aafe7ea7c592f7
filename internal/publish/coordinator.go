// Package publish submits a finished draft and reacts to the backend's
// answer.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/debemdeboas/blockpress/internal/model"
)

const (
	SuccessMessage = "You have published a new post."
	ListingPath    = "/"
)

var ErrPublishInFlight = errors.New("a publish is already in flight")

// SubmitError is returned for any outcome other than 201 Created. StatusCode
// is zero when the request never got a response.
type SubmitError struct {
	StatusCode int
	Err        error
}

func (e *SubmitError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("submitting post: status %d: %v", e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("submitting post: %v", e.Err)
	default:
		return fmt.Sprintf("submitting post: unexpected status %d", e.StatusCode)
	}
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// PostCreator performs the create-post call and reports the HTTP status.
type PostCreator interface {
	CreatePost(ctx context.Context, p model.SubmissionPayload) (int, error)
}

type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type Navigator interface {
	Navigate(path string)
}

// Liveness tells the coordinator whether the composing session still exists
// once the call resolves.
type Liveness interface {
	Active() bool
}

// LivenessFunc adapts a plain check to Liveness.
type LivenessFunc func() bool

func (f LivenessFunc) Active() bool { return f() }

type Option func(*Coordinator)

func WithLiveness(l Liveness) Option {
	return func(c *Coordinator) { c.live = l }
}

type Coordinator struct {
	client    PostCreator
	notifier  Notifier
	navigator Navigator
	live      Liveness
	inFlight  atomic.Bool
}

func NewCoordinator(client PostCreator, notifier Notifier, navigator Navigator, opts ...Option) *Coordinator {
	c := &Coordinator{
		client:    client,
		notifier:  notifier,
		navigator: navigator,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InFlight reports whether a publish is currently waiting on the backend.
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

// Publish submits p. Nothing is shown or navigated until the call resolves,
// and nothing at all if the session went away in the meantime. A call made
// while another is in flight returns ErrPublishInFlight without touching the
// network.
func (c *Coordinator) Publish(ctx context.Context, p model.SubmissionPayload) error {
	return c.PublishWhile(ctx, p, c.live)
}

// PublishWhile is Publish with the liveness check for this one submit. live
// is consulted once the call resolves; nil means the result always applies.
func (c *Coordinator) PublishWhile(ctx context.Context, p model.SubmissionPayload, live Liveness) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		publishLogger.Debug().Msg("Ignoring publish while another is in flight")
		return ErrPublishInFlight
	}
	defer c.inFlight.Store(false)

	log := publishLogger.With().Str("title", p.Title).Int("blocks", p.Content.Len()).Logger()
	log.Info().Msg("Submitting post")

	status, err := c.client.CreatePost(ctx, p)

	var result error
	switch {
	case err != nil:
		result = &SubmitError{StatusCode: status, Err: err}
	case status != http.StatusCreated:
		result = &SubmitError{StatusCode: status}
	}

	if live != nil && !live.Active() {
		log.Warn().Err(result).Msg("Session closed before the submit resolved, discarding result")
		return result
	}

	if result != nil {
		log.Error().Err(result).Int("status", status).Msg("Error publishing post")
		c.notifier.Error(failureMessage(status))
		return result
	}

	log.Info().Msg("Post published")
	c.notifier.Success(SuccessMessage)
	c.navigator.Navigate(ListingPath)
	return nil
}

func failureMessage(status int) string {
	if status == 0 {
		return "Could not reach the server. Your draft was kept."
	}
	return fmt.Sprintf("Publishing failed (%d %s). Your draft was kept.", status, http.StatusText(status))
}
