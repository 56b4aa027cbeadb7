package arbor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crabritto/arbor/internal/logging"
	"github.com/crabritto/arbor/internal/metrics"
	"github.com/crabritto/arbor/internal/wire"
	"github.com/crabritto/arbor/pkg/adapters/memory"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/crabritto/arbor/pkg/model"
	"github.com/crabritto/arbor/pkg/ports"
	"github.com/crabritto/arbor/pkg/session"
	"github.com/google/uuid"
)

// ErrNoAnalyzer is returned by ViewResult and Submit when no analysis service is configured.
var ErrNoAnalyzer = errors.New("no analysis service configured")

// Service is the high-level entry point shared by every editor surface.
// It owns nothing but the session store; each call loads the session's
// current snapshot, applies the operation and stores the result.
type Service struct {
	sessions *session.Manager
	editor   *model.Editor
	analyzer ports.Analyzer
	scheme   domain.KeyScheme
	display  wire.DisplayOptions
	metrics  *metrics.Metrics
	logger   *slog.Logger

	store    ports.TreeStore
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	newID    model.IDGenerator
	newToken func() string
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithStore replaces the default in-memory store.
func WithStore(store ports.TreeStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLocker enables distributed locking of sessions.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

// WithAnalyzer sets the client of the analysis service.
func WithAnalyzer(a ports.Analyzer) Option {
	return func(s *Service) {
		s.analyzer = a
	}
}

// WithKeyScheme selects the wire key scheme used for submissions.
func WithKeyScheme(scheme domain.KeyScheme) Option {
	return func(s *Service) {
		s.scheme = scheme
	}
}

// WithDisplay configures how analysis responses are projected.
func WithDisplay(delimiter, staticBaseURL string) Option {
	return func(s *Service) {
		s.display = wire.DisplayOptions{Delimiter: delimiter, StaticBaseURL: staticBaseURL}
	}
}

// WithMetrics records edits and submissions on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets a custom structured logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithIDGenerator replaces the node id generator.
func WithIDGenerator(gen model.IDGenerator) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

// New initializes a Service. Without options it keeps sessions in memory,
// encodes with label keys and cannot submit.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		scheme:   domain.KeyLabel,
		display:  wire.DisplayOptions{Delimiter: wire.DefaultDelimiter},
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := domain.ParseKeyScheme(string(s.scheme)); err != nil {
		return nil, err
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}
	if s.newID == nil {
		s.newID = model.NewID
	}

	s.editor = model.NewEditor(model.WithIDGenerator(s.newID))

	managerOpts := []session.Option{session.WithLogger(s.logger)}
	if s.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(s.locker), session.WithLockTTL(s.lockTTL))
	}
	s.sessions = session.NewManager(s.store, managerOpts...)

	return s, nil
}

// KeyScheme returns the configured wire key scheme.
func (s *Service) KeyScheme() domain.KeyScheme {
	return s.scheme
}

// Start opens a session and returns its id and current tree.
// An empty id picks a fresh one; an existing id resumes that session.
func (s *Service) Start(ctx context.Context, sessionID string) (string, *domain.Tree, error) {
	if sessionID == "" {
		sessionID = s.newToken()
	}
	tree, err := s.sessions.LoadOrStart(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	s.metrics.SessionStarted()
	s.logger.Info("session started", "session_id", sessionID)
	return sessionID, tree, nil
}

// Tree returns the current snapshot of a session.
func (s *Service) Tree(ctx context.Context, sessionID string) (*domain.Tree, error) {
	return s.sessions.Load(ctx, sessionID)
}

// AddChild adds a labeled child under parentID. On rejection the returned
// tree is the unchanged current snapshot.
func (s *Service) AddChild(ctx context.Context, sessionID, parentID string, label int, side domain.Side, arrangement domain.Arrangement) (*domain.Tree, error) {
	tree, err := s.sessions.Apply(ctx, sessionID, func(t *domain.Tree) (*domain.Tree, error) {
		return s.editor.AddChild(t, parentID, label, side, arrangement)
	})
	s.record(sessionID, "add_child", err, "parent_id", parentID, "label", label, "side", side)
	return tree, err
}

// Relabel changes the label of nodeID.
func (s *Service) Relabel(ctx context.Context, sessionID, nodeID string, label int) (*domain.Tree, error) {
	tree, err := s.sessions.Apply(ctx, sessionID, func(t *domain.Tree) (*domain.Tree, error) {
		return s.editor.Relabel(t, nodeID, label)
	})
	s.record(sessionID, "relabel", err, "node_id", nodeID, "label", label)
	return tree, err
}

// Find locates a node and its parent (nil for the root) in the session's tree.
func (s *Service) Find(ctx context.Context, sessionID, nodeID string) (node, parent *domain.Node, err error) {
	tree, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return tree.FindNodeAndParent(nodeID)
}

// Encode returns the WireTree of the current snapshot. An empty scheme uses the configured one.
func (s *Service) Encode(ctx context.Context, sessionID string, scheme domain.KeyScheme) (*domain.WireTree, error) {
	if scheme == "" {
		scheme = s.scheme
	}
	tree, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return wire.Encode(tree, scheme), nil
}

// Import replaces the session's tree with one parsed from a WireTree
// document. The session keeps its tree if the document is rejected.
func (s *Service) Import(ctx context.Context, sessionID string, data []byte) (*domain.Tree, error) {
	imported, err := wire.Import(data, s.newID)
	if err != nil {
		s.metrics.Edit("import", metrics.OutcomeError, "")
		s.logger.Warn("import rejected", "session_id", sessionID, "err", err)
		return nil, err
	}
	tree, err := s.sessions.Apply(ctx, sessionID, func(*domain.Tree) (*domain.Tree, error) {
		return imported, nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Edit("import", metrics.OutcomeOK, "")
	s.logger.Info("tree imported", "session_id", sessionID, "nodes", tree.Len())
	return tree, nil
}

// ViewResult submits the current snapshot to the analysis service and waits for the projection.
func (s *Service) ViewResult(ctx context.Context, sessionID string) (*domain.DisplayModel, error) {
	tree, err := s.snapshotForSubmit(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, sessionID, tree)
}

// Outcome is the result of an asynchronous submission.
type Outcome struct {
	Result *domain.DisplayModel
	Err    error
}

// Submit captures the current snapshot and analyzes it in the background.
// The channel delivers exactly one Outcome. Edits made meanwhile do not
// affect the submission, and concurrent submissions are independent.
func (s *Service) Submit(ctx context.Context, sessionID string) (<-chan Outcome, error) {
	tree, err := s.snapshotForSubmit(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		dm, err := s.submit(ctx, sessionID, tree)
		out <- Outcome{Result: dm, Err: err}
	}()
	return out, nil
}

// End deletes the session.
func (s *Service) End(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.metrics.SessionEnded()
	s.logger.Info("session ended", "session_id", sessionID)
	return nil
}

// Sessions lists the live session ids.
func (s *Service) Sessions(ctx context.Context) ([]string, error) {
	return s.sessions.List(ctx)
}

func (s *Service) snapshotForSubmit(ctx context.Context, sessionID string) (*domain.Tree, error) {
	if s.analyzer == nil {
		return nil, ErrNoAnalyzer
	}
	return s.sessions.Load(ctx, sessionID)
}

func (s *Service) submit(ctx context.Context, sessionID string, tree *domain.Tree) (*domain.DisplayModel, error) {
	if s.scheme == domain.KeyLabel && wire.Ambiguous(tree) {
		s.logger.Warn("label appears more than once; label-keyed encoding merges those nodes",
			"session_id", sessionID)
	}
	payload := wire.Encode(tree, s.scheme)

	start := time.Now()
	resp, err := s.analyzer.Analyze(ctx, payload, tree.Root().Label)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.Submission(metrics.OutcomeError, elapsed)
		s.logger.Error("analysis failed", "session_id", sessionID, "err", err, "duration", elapsed)
		return nil, fmt.Errorf("view result: %w", err)
	}
	s.metrics.Submission(metrics.OutcomeOK, elapsed)
	s.logger.Info("analysis received", "session_id", sessionID, "type", resp.Type, "duration", elapsed)
	return wire.Project(resp, tree, s.display), nil
}

// record logs and counts an edit outcome.
func (s *Service) record(sessionID, op string, err error, attrs ...any) {
	attrs = append([]any{"session_id", sessionID, "op", op}, attrs...)
	switch {
	case err == nil:
		s.metrics.Edit(op, metrics.OutcomeOK, "")
		s.logger.Debug("edit applied", attrs...)
	case domain.IsRejection(err):
		rule := domain.RuleOf(err)
		s.metrics.Edit(op, metrics.OutcomeRejected, string(rule))
		s.logger.Info("edit rejected", append(attrs, "rule", rule)...)
	default:
		s.metrics.Edit(op, metrics.OutcomeError, "")
		s.logger.Warn("edit failed", append(attrs, "err", err)...)
	}
}
