package board

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingSurface = errors.New("board: surface is required")
	errMissingStore   = errors.New("board: record store is required")
	errMissingBoardID = errors.New("board: board id is required")
	errMissingUserID  = errors.New("board: user id is required")
)

// RecordStore is the full backing-store contract a session needs: the
// writer slice for upstream sync and the source slice for downstream
// sync.
type RecordStore interface {
	RecordWriter
	RecordSource
}

// SessionConfig carries the dependencies for one board session.
type SessionConfig struct {
	BoardID string
	UserID  string
	Surface Surface
	Records RecordStore
	Logger  *zap.Logger
	IDs     IDProvider
	Style   Style
	// UpdateInterval sets both the upstream throttle window and the
	// downstream animation duration; zero means DefaultUpdateInterval.
	UpdateInterval time.Duration
}

// Session owns the sync and history components for one open board:
// resolver, history engine, gesture recorder, and the two sync clients.
// Construct one per board; nothing is shared across sessions, so undo
// history can never leak between boards.
//
// Apply, Undo, Redo, Resolve and the recorder belong to one goroutine
// (the interaction loop). The downstream client mutates the surface
// from its own goroutines; the surface implementation carries the
// locking.
type Session struct {
	boardID    string
	userID     string
	resolver   *ActionResolver
	history    *ActionHistory
	recorder   *Recorder
	upstream   *UpstreamSyncClient
	downstream *DownstreamSyncClient
	logger     *zap.Logger
}

// NewSession validates the configuration and wires a session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.BoardID == "" {
		return nil, errMissingBoardID
	}
	if cfg.UserID == "" {
		return nil, errMissingUserID
	}
	if cfg.Surface == nil {
		return nil, errMissingSurface
	}
	if cfg.Records == nil {
		return nil, errMissingStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	resolver := NewActionResolver(cfg.Surface)
	upstream := NewUpstreamSyncClient(UpstreamSyncClientConfig{
		BoardID:        cfg.BoardID,
		UserID:         cfg.UserID,
		Records:        cfg.Records,
		Logger:         logger,
		UpdateInterval: cfg.UpdateInterval,
	})
	history := NewActionHistory(resolver, upstream)
	recorder := NewRecorder(RecorderConfig{
		Surface:  cfg.Surface,
		History:  history,
		Upstream: upstream,
		IDs:      cfg.IDs,
		Style:    cfg.Style,
	})
	downstream := NewDownstreamSyncClient(DownstreamSyncClientConfig{
		BoardID:        cfg.BoardID,
		UserID:         cfg.UserID,
		Records:        cfg.Records,
		Surface:        cfg.Surface,
		Logger:         logger,
		UpdateInterval: cfg.UpdateInterval,
	})

	return &Session{
		boardID:    cfg.BoardID,
		userID:     cfg.UserID,
		resolver:   resolver,
		history:    history,
		recorder:   recorder,
		upstream:   upstream,
		downstream: downstream,
		logger:     logger,
	}, nil
}

// Recorder returns the gesture recorder driving this session's surface.
func (session *Session) Recorder() *Recorder {
	return session.recorder
}

// History returns the session's history engine.
func (session *Session) History() *ActionHistory {
	return session.history
}

// Apply feeds a locally observed action into history and upstream sync.
func (session *Session) Apply(action Action) error {
	if err := session.history.AddEvent(action); err != nil {
		return err
	}
	session.upstream.HandleBoardAction(action)
	return nil
}

// Resolve applies an action to the surface without recording it, with
// capture suppressed so the replay cannot feed back into history.
func (session *Session) Resolve(action Action) error {
	session.recorder.Suppress()
	defer session.recorder.Resume()
	return session.resolver.Resolve(action)
}

// Undo reverses the most recent locally recorded action.
func (session *Session) Undo() error {
	session.recorder.Suppress()
	defer session.recorder.Resume()
	return session.history.Undo()
}

// Redo re-applies the most recently undone action.
func (session *Session) Redo() error {
	session.recorder.Suppress()
	defer session.recorder.Resume()
	return session.history.Redo()
}

// Start begins downstream sync: live subscriptions plus the initial
// full reconciliation.
func (session *Session) Start(ctx context.Context) error {
	return session.downstream.Start(ctx)
}

// Stop tears the session down: downstream subscriptions are cancelled
// and pending throttled writes are flushed upstream.
func (session *Session) Stop() {
	session.downstream.Stop()
	session.upstream.Close()
}
