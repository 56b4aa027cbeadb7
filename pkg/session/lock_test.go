package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/crabritto/arbor/pkg/adapters/memory"
	"github.com/crabritto/arbor/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 5000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_, _ = mgr.LoadOrStart(ctx, sid)
		_, _ = mgr.Apply(ctx, sid, func(t *domain.Tree) (*domain.Tree, error) { return t, nil })
		_ = mgr.Delete(ctx, sid)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
