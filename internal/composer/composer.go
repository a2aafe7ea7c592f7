// Package composer ties one editor session to the serializer and the
// submission coordinator for a single composing user.
package composer

import (
	"context"
	"errors"
	"time"

	"github.com/debemdeboas/blockpress/internal/draft"
	"github.com/debemdeboas/blockpress/internal/editor"
	"github.com/debemdeboas/blockpress/internal/publish"
	"github.com/debemdeboas/blockpress/internal/validate"
)

var ErrNotPublishable = errors.New("draft is not publishable yet")

// Settings are the per-composer knobs, normally filled from config.Editor.
type Settings struct {
	Debounce  time.Duration
	Autofocus bool
	Tools     map[string]editor.ToolConfig
	Clock     editor.Clock
}

type Composer struct {
	session     *editor.Session
	coordinator *publish.Coordinator
}

func New(holder string, s Settings, factory editor.Factory, client publish.PostCreator, notifier publish.Notifier, navigator publish.Navigator) *Composer {
	opts := []editor.Option{editor.WithAutofocus(s.Autofocus)}
	if s.Debounce > 0 {
		opts = append(opts, editor.WithDebounce(s.Debounce))
	}
	if s.Tools != nil {
		opts = append(opts, editor.WithTools(s.Tools))
	}
	if s.Clock != nil {
		opts = append(opts, editor.WithClock(s.Clock))
	}

	session := editor.NewSession(holder, factory, opts...)
	return &Composer{
		session:     session,
		coordinator: publish.NewCoordinator(client, notifier, navigator),
	}
}

func (c *Composer) Session() *editor.Session {
	return c.session
}

func (c *Composer) SetUserPresent(present bool) {
	c.session.SetUserPresent(present)
}

func (c *Composer) CanPublish() bool {
	return c.session.CanPublish()
}

// Report explains the current gate value. It saves the editor content and
// returns an empty report when nothing can be saved.
func (c *Composer) Report(ctx context.Context) validate.Report {
	d, err := c.session.Save(ctx)
	if err != nil {
		return validate.Report{}
	}
	return validate.Inspect(d)
}

// Publish serializes the current draft and submits it. It refuses to do
// anything while the publish gate is closed. The result is dropped if the
// instance that was ready at the call is gone by the time the backend answers.
func (c *Composer) Publish(ctx context.Context) error {
	if !c.session.CanPublish() {
		return ErrNotPublishable
	}
	live := c.session.Liveness()

	p, err := draft.Serialize(ctx, c.session)
	if err != nil {
		composerLogger.Warn().Err(err).Str("session_id", c.session.ID()).Msg("Nothing to publish")
		return err
	}
	return c.coordinator.PublishWhile(ctx, p, publish.LivenessFunc(live))
}

func (c *Composer) Close() error {
	return c.session.Close()
}
