package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// KeyScheme selects how WireTree keys identify nodes.
// The two schemes are not wire-compatible; a deployment picks one.
type KeyScheme string

const (
	// KeyLabel keys nodes by their label. Only safe when labels are unique tree-wide.
	KeyLabel KeyScheme = "label"
	// KeyComposite keys nodes by label followed by node id.
	KeyComposite KeyScheme = "composite"
)

// ParseKeyScheme converts configuration input into a KeyScheme.
func ParseKeyScheme(s string) (KeyScheme, error) {
	switch KeyScheme(s) {
	case KeyLabel, KeyComposite:
		return KeyScheme(s), nil
	}
	return "", fmt.Errorf("invalid key scheme %q: expected %q or %q", s, KeyLabel, KeyComposite)
}

// Key returns the wire key of n under the scheme.
func (s KeyScheme) Key(n *Node) string {
	if s == KeyComposite {
		return strconv.Itoa(n.Label) + n.ID
	}
	return strconv.Itoa(n.Label)
}

// Ref returns the child reference to n under the scheme.
func (s KeyScheme) Ref(n *Node) Ref {
	if s == KeyComposite {
		return KeyRef(s.Key(n))
	}
	return LabelRef(n.Label)
}

// ParseKeyLabel extracts the leading signed decimal label of a wire key.
func ParseKeyLabel(key string) (int, error) {
	end := 0
	if end < len(key) && (key[end] == '-' || key[end] == '+') {
		end++
	}
	digits := end
	for end < len(key) && key[end] >= '0' && key[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("key %q has no numeric label prefix", key)
	}
	label, err := strconv.Atoi(key[:end])
	if err != nil {
		return 0, fmt.Errorf("key %q: %w", key, err)
	}
	return label, nil
}

// absentMarker is the legacy spelling of an absent child in older clients.
const absentMarker = "None"

// Ref is one entry of a WireTree child list: a child label, a child key, or
// the absent marker standing for a missing left child.
type Ref struct {
	Absent bool
	Label  int
	Key    string
}

// LabelRef references a child by label.
func LabelRef(label int) Ref { return Ref{Label: label} }

// KeyRef references a child by composite key.
func KeyRef(key string) Ref { return Ref{Key: key} }

// AbsentRef marks a missing left child.
func AbsentRef() Ref { return Ref{Absent: true} }

func (r Ref) String() string {
	switch {
	case r.Absent:
		return absentMarker
	case r.Key != "":
		return r.Key
	}
	return strconv.Itoa(r.Label)
}

// MarshalJSON writes null, a key string or a label number.
func (r Ref) MarshalJSON() ([]byte, error) {
	switch {
	case r.Absent:
		return []byte("null"), nil
	case r.Key != "":
		return json.Marshal(r.Key)
	}
	return []byte(strconv.Itoa(r.Label)), nil
}

// UnmarshalJSON accepts null, "None", a string key or an integer label.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = Ref{}
	if bytes.Equal(data, []byte("null")) {
		r.Absent = true
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == absentMarker {
			r.Absent = true
			return nil
		}
		if s == "" {
			return fmt.Errorf("empty child reference")
		}
		r.Key = s
		return nil
	}
	var label int
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("child reference %s is not an integer label: %w", data, err)
	}
	r.Label = label
	return nil
}

// WireTree is the ordered adjacency mapping submitted to the analysis service.
// Keys keep their insertion order, which encoders use to put the root first.
type WireTree struct {
	m *orderedmap.OrderedMap[string, []Ref]
}

// NewWireTree returns an empty mapping.
func NewWireTree() *WireTree {
	return &WireTree{m: orderedmap.New[string, []Ref]()}
}

// Set stores the child list of key, keeping the position of an existing key.
func (w *WireTree) Set(key string, refs []Ref) {
	if w.m == nil {
		w.m = orderedmap.New[string, []Ref]()
	}
	if refs == nil {
		refs = []Ref{}
	}
	w.m.Set(key, refs)
}

// Get returns the child list of key.
func (w *WireTree) Get(key string) ([]Ref, bool) {
	if w.m == nil {
		return nil, false
	}
	return w.m.Get(key)
}

// Len returns the number of keys.
func (w *WireTree) Len() int {
	if w.m == nil {
		return 0
	}
	return w.m.Len()
}

// Keys returns the keys in insertion order.
func (w *WireTree) Keys() []string {
	if w.m == nil {
		return nil
	}
	keys := make([]string, 0, w.m.Len())
	for pair := w.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// MarshalJSON writes the mapping as a JSON object in key order.
func (w *WireTree) MarshalJSON() ([]byte, error) {
	if w.m == nil || w.m.Len() == 0 {
		return []byte("{}"), nil
	}
	return w.m.MarshalJSON()
}

// UnmarshalJSON reads a JSON object, keeping the order of its keys.
func (w *WireTree) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("wire tree must be a JSON object")
	}
	m := orderedmap.New[string, []Ref]()
	if err := m.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	w.m = m
	return nil
}
