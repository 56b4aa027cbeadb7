package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Labels is a traversal sequence. It decodes plain integers as well as wire
// keys, whose numeric prefix is taken as the label.
type Labels []int

// UnmarshalJSON accepts a JSON array of integers or wire key strings.
func (l *Labels) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("traversal must be an array: %w", err)
	}
	out := make(Labels, 0, len(raw))
	for _, item := range raw {
		var label int
		if err := json.Unmarshal(item, &label); err == nil {
			out = append(out, label)
			continue
		}
		var key string
		if err := json.Unmarshal(item, &key); err != nil {
			return fmt.Errorf("traversal entry %s is neither a label nor a key", item)
		}
		label, err := ParseKeyLabel(key)
		if err != nil {
			return err
		}
		out = append(out, label)
	}
	*l = out
	return nil
}

// AnalysisResponse is the body returned by the analysis service.
type AnalysisResponse struct {
	PreOrder  Labels `json:"pre_order"`
	PostOrder Labels `json:"post_order"`
	InOrder   Labels `json:"in_order,omitempty"`
	Height    string `json:"height"`
	Type      string `json:"type"`
	TreeType  string `json:"tree_type"`
	Image     string `json:"image,omitempty"`
}

// DisplayModel is what the editor shows after "view result".
// Tree is the snapshot that was submitted.
type DisplayModel struct {
	PreOrder       []int  `json:"pre_order"`
	InOrder        []int  `json:"in_order,omitempty"`
	PostOrder      []int  `json:"post_order"`
	Height         string `json:"height"`
	Classification string `json:"classification"`
	Structure      string `json:"structure"`
	ImageURL       string `json:"image_url,omitempty"`
	Tree           *Tree  `json:"tree"`
}
