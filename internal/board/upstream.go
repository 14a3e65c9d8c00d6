package board

import (
	"context"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/slate/internal/store"
	"go.uber.org/zap"
)

// DefaultUpdateInterval is the upstream throttle window and, mirrored
// on the receiving side, the remote animation duration.
const DefaultUpdateInterval = 500 * time.Millisecond

// RecordWriter is the slice of the backing store the upstream client
// writes through.
type RecordWriter interface {
	CreateObject(ctx context.Context, record store.Object) error
	UpdateObject(ctx context.Context, change store.ObjectChange) (store.Object, error)
}

// UpstreamSyncClientConfig carries the dependencies for an upstream
// sync client.
type UpstreamSyncClientConfig struct {
	BoardID string
	UserID  string
	Records RecordWriter
	Logger  *zap.Logger
	// UpdateInterval overrides the throttle window; zero means
	// DefaultUpdateInterval.
	UpdateInterval time.Duration
}

// UpstreamSyncClient turns local board actions into writes against the
// backing store. Every write is tagged with the acting user so other
// clients' downstream subscriptions can apply it while this client's
// own subscription filters it out. Updates are throttled per object:
// a drag on one object and a text edit on another coalesce
// independently.
//
// Write failures are logged and dropped; the local scene stays
// authoritative for the session and later actions are never blocked.
type UpstreamSyncClient struct {
	boardID  string
	userID   string
	records  RecordWriter
	logger   *zap.Logger
	interval time.Duration

	mu        sync.Mutex
	throttles map[string]*updateThrottle
}

// NewUpstreamSyncClient constructs an upstream sync client.
func NewUpstreamSyncClient(cfg UpstreamSyncClientConfig) *UpstreamSyncClient {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.UpdateInterval
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	return &UpstreamSyncClient{
		boardID:   cfg.BoardID,
		userID:    cfg.UserID,
		records:   cfg.Records,
		logger:    logger,
		interval:  interval,
		throttles: make(map[string]*updateThrottle),
	}
}

// HandleBoardAction dispatches one local action to the store. CREATE,
// DELETE and UN_DELETE write immediately; UPDATE goes through the
// per-object throttle.
func (client *UpstreamSyncClient) HandleBoardAction(action Action) {
	switch action.Type {
	case ActionCreate:
		client.writeCreate(action)
	case ActionUpdate:
		client.throttleFor(action.Name).Call(action)
	case ActionDelete:
		client.discardPending(action.Name)
		client.writeDeletedFlag(action, true)
	case ActionUnDelete:
		client.writeDeletedFlag(action, false)
	default:
		client.logger.Error("unknown board action type", zap.String("action_type", string(action.Type)))
	}
}

// Close flushes every pending throttled update so the final state of
// any in-flight gesture reaches the store before the session ends.
func (client *UpstreamSyncClient) Close() {
	client.mu.Lock()
	throttles := make([]*updateThrottle, 0, len(client.throttles))
	for _, throttle := range client.throttles {
		throttles = append(throttles, throttle)
	}
	client.throttles = make(map[string]*updateThrottle)
	client.mu.Unlock()
	for _, throttle := range throttles {
		throttle.Flush()
	}
}

func (client *UpstreamSyncClient) throttleFor(name string) *updateThrottle {
	client.mu.Lock()
	defer client.mu.Unlock()
	throttle, ok := client.throttles[name]
	if !ok {
		throttle = newUpdateThrottle(client.interval, client.writeUpdate)
		client.throttles[name] = throttle
	}
	return throttle
}

func (client *UpstreamSyncClient) discardPending(name string) {
	client.mu.Lock()
	throttle, ok := client.throttles[name]
	client.mu.Unlock()
	if ok {
		throttle.Discard()
	}
}

func (client *UpstreamSyncClient) writeCreate(action Action) {
	blob, err := EncodeAttributes(FilterKnown(action.Attributes))
	if err != nil {
		client.logWriteFailure(action, err)
		return
	}
	record := store.Object{
		ObjectID:       action.Name,
		BoardID:        client.boardID,
		Kind:           action.Kind.String(),
		UpdatedBy:      client.userID,
		Deleted:        false,
		AttributesJSON: blob,
	}
	if err := client.records.CreateObject(context.Background(), record); err != nil {
		client.logWriteFailure(action, err)
	}
}

func (client *UpstreamSyncClient) writeUpdate(action Action) {
	blob, err := EncodeAttributes(FilterKnown(action.Attributes))
	if err != nil {
		client.logWriteFailure(action, err)
		return
	}
	change := store.ObjectChange{
		ObjectID:       action.Name,
		UpdatedBy:      client.userID,
		AttributesJSON: blob,
	}
	if _, err := client.records.UpdateObject(context.Background(), change); err != nil {
		client.logWriteFailure(action, err)
	}
}

func (client *UpstreamSyncClient) writeDeletedFlag(action Action, deleted bool) {
	change := store.ObjectChange{
		ObjectID:  action.Name,
		UpdatedBy: client.userID,
		Deleted:   &deleted,
	}
	if !deleted && !action.Attributes.IsEmpty() {
		blob, err := EncodeAttributes(FilterKnown(action.Attributes))
		if err != nil {
			client.logWriteFailure(action, err)
			return
		}
		change.AttributesJSON = blob
	}
	if _, err := client.records.UpdateObject(context.Background(), change); err != nil {
		client.logWriteFailure(action, err)
	}
}

func (client *UpstreamSyncClient) logWriteFailure(action Action, err error) {
	client.logger.Warn("upstream write dropped",
		zap.String("board_id", client.boardID),
		zap.String("object_id", action.Name),
		zap.String("action_type", string(action.Type)),
		zap.Error(err))
}
