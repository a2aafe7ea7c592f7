// Package draft turns the live editor content into the payload sent to the
// create-post endpoint.
package draft

import (
	"context"
	"errors"
	"strings"

	"github.com/debemdeboas/blockpress/internal/editor"
	"github.com/debemdeboas/blockpress/internal/model"
)

// DefaultTitle is used when the first block is not a heading with text.
const DefaultTitle = "Untitled Post"

var (
	ErrNoInstance   = errors.New("no editor instance to serialize")
	ErrEmptyContent = errors.New("draft has no blocks")
)

// SerializationError is returned when there is nothing to submit. It matches
// ErrNoInstance or ErrEmptyContent through errors.Is.
type SerializationError struct {
	Reason error
	Err    error
}

func (e *SerializationError) Error() string {
	if e.Err != nil && e.Err != e.Reason {
		return "serializing draft: " + e.Reason.Error() + ": " + e.Err.Error()
	}
	return "serializing draft: " + e.Reason.Error()
}

func (e *SerializationError) Is(target error) bool {
	return target == e.Reason
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// Saver is anything that can produce the current draft, normally an
// *editor.Session.
type Saver interface {
	Save(ctx context.Context) (model.Draft, error)
}

// Serialize saves the editor once and builds the submission payload from the
// result. The draft is passed through unmodified.
func Serialize(ctx context.Context, s Saver) (model.SubmissionPayload, error) {
	if s == nil {
		return model.SubmissionPayload{}, &SerializationError{Reason: ErrNoInstance}
	}

	d, err := s.Save(ctx)
	if err != nil {
		if errors.Is(err, editor.ErrNoInstance) || errors.Is(err, editor.ErrSessionDestroyed) {
			return model.SubmissionPayload{}, &SerializationError{Reason: ErrNoInstance, Err: err}
		}
		return model.SubmissionPayload{}, err
	}

	if d.Len() == 0 {
		return model.SubmissionPayload{}, &SerializationError{Reason: ErrEmptyContent}
	}

	draftLogger.Debug().Int("blocks", d.Len()).Msg("Serialized draft")
	return model.SubmissionPayload{Title: Title(d), Content: d}, nil
}

// Title derives the post title from the first block only.
func Title(d model.Draft) string {
	if d.Len() == 0 {
		return DefaultTitle
	}
	h, ok := d.Blocks[0].Data.(model.HeaderData)
	if !ok || d.Blocks[0].Type != model.BlockHeader {
		return DefaultTitle
	}
	if t := strings.TrimSpace(h.Text); t != "" {
		return t
	}
	return DefaultTitle
}
