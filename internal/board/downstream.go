package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/slate/internal/store"
	"go.uber.org/zap"
)

// RecordSource is the slice of the backing store the downstream client
// reads from. It is read-only with respect to the sync protocol.
type RecordSource interface {
	ListObjects(ctx context.Context, boardID string, includeDeleted bool) ([]store.Object, error)
	SubscribeCreated(ctx context.Context, boardID, excludeUser string) (<-chan store.ObjectEvent, func())
	SubscribeUpdated(ctx context.Context, boardID, excludeUser string) (<-chan store.ObjectEvent, func())
}

// DownstreamSyncClientConfig carries the dependencies for a downstream
// sync client.
type DownstreamSyncClientConfig struct {
	BoardID string
	UserID  string
	Records RecordSource
	Surface Surface
	Logger  *zap.Logger
	// UpdateInterval is the remote animation duration; zero means
	// DefaultUpdateInterval, matching the upstream throttle window so
	// continuous remote drags render as smooth motion.
	UpdateInterval time.Duration
}

// DownstreamSyncClient subscribes to remote object events for one board
// and reconciles them into the surface. Events originated by the local
// user are filtered out at the store (echo suppression). Remote edits
// never feed the history engine: they are not locally undoable.
type DownstreamSyncClient struct {
	boardID  string
	userID   string
	records  RecordSource
	surface  Surface
	logger   *zap.Logger
	interval time.Duration

	mu      sync.Mutex
	cancels []func()
	stop    context.CancelFunc
}

// NewDownstreamSyncClient constructs a downstream sync client.
func NewDownstreamSyncClient(cfg DownstreamSyncClientConfig) *DownstreamSyncClient {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.UpdateInterval
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	return &DownstreamSyncClient{
		boardID:  cfg.BoardID,
		userID:   cfg.UserID,
		records:  cfg.Records,
		surface:  cfg.Surface,
		logger:   logger,
		interval: interval,
	}
}

// Start subscribes to created and updated events, then performs the
// initial full reconciliation from a listing of the board's non-deleted
// records. The listing runs after the subscriptions are live so nothing
// falls between; the duplicate deliveries that can result are absorbed
// by the idempotent apply path.
func (client *DownstreamSyncClient) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	createdStream, cancelCreated := client.records.SubscribeCreated(runCtx, client.boardID, client.userID)
	updatedStream, cancelUpdated := client.records.SubscribeUpdated(runCtx, client.boardID, client.userID)

	client.mu.Lock()
	client.stop = cancel
	client.cancels = []func(){cancelCreated, cancelUpdated}
	client.mu.Unlock()

	go client.consume(runCtx, createdStream)
	go client.consume(runCtx, updatedStream)

	records, err := client.records.ListObjects(runCtx, client.boardID, false)
	if err != nil {
		return fmt.Errorf("initial board listing: %w", err)
	}
	for _, record := range records {
		if err := client.applyCreated(record); err != nil {
			return err
		}
	}
	return nil
}

// Stop cancels all active subscriptions. Idempotent and safe to call
// while a delivery is in flight; events after Stop are ignored.
func (client *DownstreamSyncClient) Stop() {
	client.mu.Lock()
	cancels := client.cancels
	stop := client.stop
	client.cancels = nil
	client.stop = nil
	client.mu.Unlock()
	if stop != nil {
		stop()
	}
	for _, cancel := range cancels {
		cancel()
	}
}

func (client *DownstreamSyncClient) consume(ctx context.Context, stream <-chan store.ObjectEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			client.applyEvent(event)
		}
	}
}

func (client *DownstreamSyncClient) applyEvent(event store.ObjectEvent) {
	var err error
	switch event.Type {
	case store.EventObjectCreated:
		err = client.applyCreated(event.Object)
	case store.EventObjectUpdated:
		err = client.applyUpdated(event.Object)
	}
	if err != nil {
		client.logger.Error("remote event reconciliation failed",
			zap.String("board_id", client.boardID),
			zap.String("object_id", event.Object.ObjectID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

// applyCreated instantiates a remote object unless one with the same
// identifier already exists: the initial listing and a live
// subscription can race to deliver the same creation.
func (client *DownstreamSyncClient) applyCreated(record store.Object) error {
	if record.Deleted {
		return nil
	}
	if client.surface.Has(record.ObjectID) {
		return nil
	}
	kind, err := ParseObjectKind(record.Kind)
	if err != nil {
		return err
	}
	attributes, err := DecodeAttributes(record.AttributesJSON)
	if err != nil {
		return err
	}
	return client.surface.Insert(record.ObjectID, kind, FilterKnown(attributes))
}

// applyUpdated reconciles a remote update: a set deleted flag removes
// the object, a missing object self-heals as a create, and otherwise
// animatable attributes interpolate over the throttle window while
// discrete attributes apply atomically.
func (client *DownstreamSyncClient) applyUpdated(record store.Object) error {
	if record.Deleted {
		client.surface.Remove(record.ObjectID)
		return nil
	}
	if !client.surface.Has(record.ObjectID) {
		return client.applyCreated(record)
	}
	attributes, err := DecodeAttributes(record.AttributesJSON)
	if err != nil {
		return err
	}
	animatable, discrete := SplitAnimatable(attributes)
	if !animatable.IsEmpty() {
		client.surface.Animate(record.ObjectID, animatable, client.interval)
	}
	if !discrete.IsEmpty() {
		client.surface.Set(record.ObjectID, discrete)
	}
	return nil
}
