package model

import "encoding/json"

// Draft is the ordered block content of an in-progress post. Block order is
// the visual order of the document.
type Draft struct {
	// Time and Version are stamped by the editor on save; both are optional.
	Time    int64   `json:"time,omitempty"`
	Blocks  []Block `json:"blocks"`
	Version string  `json:"version,omitempty"`
}

// InitialDraft is the content a fresh editor instance starts with: a single
// empty top-level heading.
func InitialDraft() Draft {
	return Draft{Blocks: []Block{NewHeader("", 1)}}
}

func (d Draft) Len() int {
	return len(d.Blocks)
}

func (d Draft) MarshalJSON() ([]byte, error) {
	type alias Draft
	a := alias(d)
	if a.Blocks == nil {
		a.Blocks = []Block{}
	}
	return json.Marshal(a)
}

// SubmissionPayload is the body of a create-post request.
type SubmissionPayload struct {
	Title   string `json:"title"`
	Content Draft  `json:"content"`
}
