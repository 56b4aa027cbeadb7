package ports

import (
	"context"

	"github.com/crabritto/arbor/pkg/domain"
)

// Analyzer submits an encoded tree to the external analysis service.
// Failures are transport errors; they never affect the edited tree.
type Analyzer interface {
	Analyze(ctx context.Context, wire *domain.WireTree, rootLabel int) (*domain.AnalysisResponse, error)
}
