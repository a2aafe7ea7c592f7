// Package terminal renders composer feedback on a terminal.
package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/debemdeboas/blockpress/internal/model"
	"github.com/debemdeboas/blockpress/internal/validate"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

// NotEnoughContent is shown while the publish gate is closed.
const NotEnoughContent = "Content is not enough."

// Lister fetches the post listing shown after navigating to "/".
type Lister interface {
	ListPosts(ctx context.Context) ([]model.PostSummary, error)
}

// UI is a Notifier and Navigator writing to an io.Writer.
type UI struct {
	mu     sync.Mutex
	out    io.Writer
	lister Lister

	// Navigated receives every path passed to Navigate.
	Navigated chan string
}

func New(out io.Writer, lister Lister) *UI {
	return &UI{out: out, lister: lister, Navigated: make(chan string, 1)}
}

func (u *UI) println(s string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintln(u.out, s)
}

func (u *UI) Success(msg string) {
	u.println(successStyle.Render("✔ " + msg))
}

func (u *UI) Error(msg string) {
	u.println(errorStyle.Render("✘ " + msg))
}

func (u *UI) Navigate(path string) {
	u.println(mutedStyle.Render("→ " + path))

	if path == "/" && u.lister != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if posts, err := u.lister.ListPosts(ctx); err != nil {
			u.Error("Could not load posts: " + err.Error())
		} else {
			u.println(Listing(posts))
		}
	}

	select {
	case u.Navigated <- path:
	default:
	}
}

// Validity prints the publish indicator for the current gate value.
func (u *UI) Validity(can bool, r validate.Report) {
	u.println(Indicator(can, r))
}

// Indicator renders the publish button state. When disabled it names the
// rules that are not satisfied yet.
func Indicator(can bool, r validate.Report) string {
	if can {
		return readyStyle.Render("[ Publish ] ready")
	}
	var missing []string
	if !r.HasHeading {
		missing = append(missing, "a heading")
	}
	if !r.HasParagraph {
		missing = append(missing, fmt.Sprintf("a paragraph of %d characters", validate.MinParagraphLength))
	}
	hint := NotEnoughContent
	if len(missing) > 0 {
		hint += " Needs " + strings.Join(missing, " and ") + "."
	}
	return mutedStyle.Render("[ Publish ] " + hint)
}

func Listing(posts []model.PostSummary) string {
	if len(posts) == 0 {
		return mutedStyle.Render("No posts yet.")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Posts"))
	for _, p := range posts {
		b.WriteString("\n  ")
		b.WriteString(p.Title)
		if !p.CreatedDate.IsZero() {
			b.WriteString(mutedStyle.Render("  " + p.CreatedDate.Format(time.DateOnly)))
		}
	}
	return b.String()
}
