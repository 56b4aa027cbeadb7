package wire

import (
	"net/url"
	"strings"

	"github.com/crabritto/arbor/pkg/domain"
)

// DefaultDelimiter separates the caption from the value in the service's
// height and tree_type strings ("A altura é 2").
const DefaultDelimiter = "é"

// DisplayOptions controls how a response is projected.
type DisplayOptions struct {
	// Delimiter precedes the value in height and tree_type. Empty means DefaultDelimiter.
	Delimiter string
	// StaticBaseURL is where the service publishes generated images.
	StaticBaseURL string
}

// Project turns a service response into a DisplayModel merged with the
// snapshot that was submitted. It does no validation of its own.
func Project(resp *domain.AnalysisResponse, tree *domain.Tree, opts DisplayOptions) *domain.DisplayModel {
	delim := opts.Delimiter
	if delim == "" {
		delim = DefaultDelimiter
	}

	dm := &domain.DisplayModel{
		PreOrder:       []int(resp.PreOrder),
		PostOrder:      []int(resp.PostOrder),
		Height:         afterDelimiter(resp.Height, delim),
		Classification: strings.TrimSpace(resp.Type),
		Structure:      afterDelimiter(resp.TreeType, delim),
		ImageURL:       ImageURL(resp.Image, opts.StaticBaseURL),
		Tree:           tree,
	}
	if resp.InOrder != nil {
		dm.InOrder = []int(resp.InOrder)
	}
	if dm.PreOrder == nil {
		dm.PreOrder = []int{}
	}
	if dm.PostOrder == nil {
		dm.PostOrder = []int{}
	}
	return dm
}

func afterDelimiter(s, delim string) string {
	if i := strings.Index(s, delim); i >= 0 {
		return strings.TrimSpace(s[i+len(delim):])
	}
	return strings.TrimSpace(s)
}

// ImageURL builds the public URL of a generated image from the file-system
// path reported by the service. Only the final path segment is kept, with
// either slash or backslash as separator.
func ImageURL(imagePath, baseURL string) string {
	if imagePath == "" {
		return ""
	}
	name := imagePath
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return ""
	}
	if baseURL == "" {
		return name
	}
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(name)
}
