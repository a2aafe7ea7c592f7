// Package model defines the block document, submission and post types shared
// by the composer and the backend.
package model

import (
	"bytes"
	"encoding/json"
)

type BlockType string

const (
	BlockHeader    BlockType = "header"
	BlockParagraph BlockType = "paragraph"
	BlockImage     BlockType = "image"
	BlockCode      BlockType = "code"
	BlockQuote     BlockType = "quote"
	BlockEmbed     BlockType = "embed"
	BlockList      BlockType = "list"
	BlockDelimiter BlockType = "delimiter"
)

// BlockData is the type-specific payload of a Block. The set of
// implementations is closed; anything the decoder does not recognize, or
// cannot decode into the expected shape, becomes UnknownData.
type BlockData interface {
	blockType() BlockType
}

type HeaderData struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

type ParagraphData struct {
	Text string `json:"text"`
}

type ImageFile struct {
	URL string `json:"url"`
}

type ImageData struct {
	File           ImageFile `json:"file"`
	Caption        string    `json:"caption"`
	WithBorder     bool      `json:"withBorder"`
	WithBackground bool      `json:"withBackground"`
	Stretched      bool      `json:"stretched"`
}

type CodeData struct {
	Code string `json:"code"`
}

type QuoteData struct {
	Text      string `json:"text"`
	Caption   string `json:"caption"`
	Alignment string `json:"alignment"`
}

type EmbedData struct {
	Service string `json:"service"`
	Source  string `json:"source"`
	Embed   string `json:"embed"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Caption string `json:"caption"`
}

type ListData struct {
	Style string   `json:"style"`
	Items []string `json:"items"`
}

type DelimiterData struct{}

// UnknownData keeps the raw payload of blocks we cannot interpret so they
// survive a save/submit round trip untouched.
type UnknownData struct {
	Raw json.RawMessage
}

func (HeaderData) blockType() BlockType    { return BlockHeader }
func (ParagraphData) blockType() BlockType { return BlockParagraph }
func (ImageData) blockType() BlockType     { return BlockImage }
func (CodeData) blockType() BlockType      { return BlockCode }
func (QuoteData) blockType() BlockType     { return BlockQuote }
func (EmbedData) blockType() BlockType     { return BlockEmbed }
func (ListData) blockType() BlockType      { return BlockList }
func (DelimiterData) blockType() BlockType { return BlockDelimiter }
func (UnknownData) blockType() BlockType   { return "" }

// Block is one structural unit of a draft, in the editor's save format:
// {"id": "...", "type": "header", "data": {...}}.
type Block struct {
	ID   string
	Type BlockType
	Data BlockData
}

func NewHeader(text string, level int) Block {
	return Block{Type: BlockHeader, Data: HeaderData{Text: text, Level: level}}
}

func NewParagraph(text string) Block {
	return Block{Type: BlockParagraph, Data: ParagraphData{Text: text}}
}

type wireBlock struct {
	ID   string          `json:"id,omitempty"`
	Type BlockType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	w := wireBlock{ID: b.ID, Type: b.Type}

	switch d := b.Data.(type) {
	case nil:
		w.Data = json.RawMessage("{}")
	case UnknownData:
		if len(d.Raw) == 0 {
			w.Data = json.RawMessage("{}")
		} else {
			w.Data = d.Raw
		}
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		w.Data = raw
	}

	return json.Marshal(w)
}

// UnmarshalJSON only fails when the block envelope itself is not an object.
// A data payload that does not match its type degrades to UnknownData.
func (b *Block) UnmarshalJSON(raw []byte) error {
	var w wireBlock
	if err := json.Unmarshal(raw, &w); err != nil {
		return err
	}

	b.ID = w.ID
	b.Type = w.Type
	b.Data = decodeData(w.Type, w.Data)
	return nil
}

func decodeData(t BlockType, raw json.RawMessage) BlockData {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = json.RawMessage("{}")
	}

	var (
		data BlockData
		err  error
	)

	switch t {
	case BlockHeader:
		var d HeaderData
		err = json.Unmarshal(raw, &d)
		data = d
	case BlockParagraph:
		var d ParagraphData
		err = json.Unmarshal(raw, &d)
		data = d
	case BlockImage:
		var d ImageData
		err = json.Unmarshal(raw, &d)
		data = d
	case BlockCode:
		var d CodeData
		err = json.Unmarshal(raw, &d)
		data = d
	case BlockQuote:
		var d QuoteData
		err = json.Unmarshal(raw, &d)
		data = d
	case BlockEmbed:
		var d EmbedData
		err = json.Unmarshal(raw, &d)
		data = d
	case BlockList:
		var d ListData
		err = json.Unmarshal(raw, &d)
		data = d
	case BlockDelimiter:
		data = DelimiterData{}
	default:
		return UnknownData{Raw: append(json.RawMessage(nil), raw...)}
	}

	if err != nil {
		return UnknownData{Raw: append(json.RawMessage(nil), raw...)}
	}
	return data
}
