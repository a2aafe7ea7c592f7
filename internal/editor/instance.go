// Package editor manages the lifecycle of an embedded block editor instance
// and keeps the publish gate in sync with its content.
package editor

import (
	"context"
	"time"

	"github.com/debemdeboas/blockpress/internal/model"
)

// Instance is a live editing surface. Implementations own their rendering
// and formatting; the session only saves and disposes them.
type Instance interface {
	// Save returns the current content of the surface.
	Save(ctx context.Context) (model.Draft, error)
	Destroy() error
}

// Callbacks are handed to the factory and must be wired to the instance's
// readiness and content-mutation events. Both may be called from any
// goroutine, and OnReady may fire before the factory returns.
type Callbacks struct {
	OnReady  func()
	OnChange func()
}

// ToolConfig binds a block type name to its renderer and per-type settings.
// It is passed to the factory untouched.
type ToolConfig struct {
	Class         string         `yaml:"class" json:"class"`
	InlineToolbar bool           `yaml:"inline_toolbar" json:"inlineToolbar,omitempty"`
	Config        map[string]any `yaml:"config" json:"config,omitempty"`
}

// Options describe the instance the factory should build.
type Options struct {
	Holder    string
	Tools     map[string]ToolConfig
	Autofocus bool
	Data      model.Draft
}

// Factory constructs an instance. ctx is cancelled when the attempt that
// requested the instance is torn down.
type Factory func(ctx context.Context, opts Options, cb Callbacks) (Instance, error)

// DefaultDebounce is how long the session waits after a user appears before
// constructing an instance.
const DefaultDebounce = 100 * time.Millisecond

// DefaultTools returns the stock tool bindings. uploadURL and fetchURL are
// the image endpoints for file uploads and fetch-by-URL.
func DefaultTools(uploadURL, fetchURL string) map[string]ToolConfig {
	return map[string]ToolConfig{
		string(model.BlockHeader): {
			Class:         "Header",
			InlineToolbar: true,
			Config: map[string]any{
				"placeholder":  "Enter Title...",
				"levels":       []int{1, 2, 3, 4, 5, 6},
				"defaultLevel": 1,
			},
		},
		string(model.BlockImage): {
			Class: "ImageTool",
			Config: map[string]any{
				"endpoints": map[string]string{
					"byFile": uploadURL,
					"byUrl":  fetchURL,
				},
				"field": "image",
				"types": "image/*",
			},
		},
		string(model.BlockCode):  {Class: "CodeTool"},
		string(model.BlockQuote): {Class: "Quote"},
		string(model.BlockEmbed): {Class: "Embed"},
	}
}
