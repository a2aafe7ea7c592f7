// Package validate decides whether a draft is complete enough to publish.
package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/debemdeboas/blockpress/internal/model"
)

// MinParagraphLength is the trimmed length, in characters, a paragraph needs
// before the draft counts as having body text.
const MinParagraphLength = 50

// Report breaks the publish decision into its individual rules.
type Report struct {
	HasHeading   bool
	HasParagraph bool
}

// CanPublish reports whether every rule passed.
func (r Report) CanPublish() bool {
	return r.HasHeading && r.HasParagraph
}

// Evaluate reports whether the draft has at least one non-empty heading and
// at least one paragraph of MinParagraphLength characters.
func Evaluate(d model.Draft) bool {
	return Inspect(d).CanPublish()
}

// HasNonEmptyHeading reports whether some Header block has non-blank text.
func HasNonEmptyHeading(d model.Draft) bool {
	return Inspect(d).HasHeading
}

// HasLongParagraph reports whether some Paragraph block reaches MinParagraphLength.
func HasLongParagraph(d model.Draft) bool {
	return Inspect(d).HasParagraph
}

// Inspect evaluates every rule in one pass over the blocks. A block that
// cannot be inspected is skipped.
func Inspect(d model.Draft) Report {
	var r Report
	for _, b := range d.Blocks {
		inspectBlock(b, &r)
		if r.CanPublish() {
			break
		}
	}
	return r
}

func inspectBlock(b model.Block, r *Report) {
	defer func() {
		if p := recover(); p != nil {
			validateLogger.Warn().
				Str("block_id", b.ID).
				Str("block_type", string(b.Type)).
				Interface("panic", p).
				Msg("Skipping block that could not be inspected")
		}
	}()

	switch data := b.Data.(type) {
	case model.HeaderData:
		if b.Type == model.BlockHeader && trimmedLen(data.Text) > 0 {
			r.HasHeading = true
		}
	case model.ParagraphData:
		if b.Type == model.BlockParagraph && trimmedLen(data.Text) >= MinParagraphLength {
			r.HasParagraph = true
		}
	case model.ImageData, model.CodeData, model.QuoteData, model.EmbedData,
		model.ListData, model.DelimiterData, model.UnknownData, nil:
		// Contribute nothing.
	default:
	}
}

func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
