package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// Sentinel errors matched by RejectionError through errors.Is.
var (
	ErrRootCollision    = errors.New("label collides with the root label")
	ErrParentCollision  = errors.New("label collides with the parent label")
	ErrSiblingCollision = errors.New("label collides with a sibling label")
	ErrChildCollision   = errors.New("label collides with a child label")
	ErrNodeNotFound     = errors.New("node not found")
)

// Rule names the tree invariant an edit would have broken.
type Rule string

const (
	RuleRoot     Rule = "root-collision"
	RuleParent   Rule = "parent-collision"
	RuleSibling  Rule = "sibling-collision"
	RuleChild    Rule = "child-collision"
	RuleNotFound Rule = "not-found"
)

var ruleErrors = map[Rule]error{
	RuleRoot:     ErrRootCollision,
	RuleParent:   ErrParentCollision,
	RuleSibling:  ErrSiblingCollision,
	RuleChild:    ErrChildCollision,
	RuleNotFound: ErrNodeNotFound,
}

// RejectionError reports an edit refused by the tree model.
// The tree the edit was applied to is left unchanged.
type RejectionError struct {
	Rule   Rule
	NodeID string // Node the edit targeted (the parent for add-child)
	Label  int    // Offending label, zero for RuleNotFound
}

func (e *RejectionError) Error() string {
	if e.Rule == RuleNotFound {
		return fmt.Sprintf("node %q not found", e.NodeID)
	}
	return fmt.Sprintf("label %d rejected at node %q: %s", e.Label, e.NodeID, e.Rule)
}

// Unwrap maps the rule onto its sentinel error.
func (e *RejectionError) Unwrap() error {
	return ruleErrors[e.Rule]
}

// IsRejection reports whether err is (or wraps) a RejectionError.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

// RuleOf returns the rule behind a rejection, or "" if err is not one.
func RuleOf(err error) Rule {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Rule
	}
	return ""
}
