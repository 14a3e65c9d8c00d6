package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError wraps a store failure with a stable operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable error code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew   = "store.service.new"
	opCreateObject = "store.create_object"
	opUpdateObject = "store.update_object"
	opListObjects  = "store.list_objects"
	opCreateBoard  = "store.create_board"
	opListBoards   = "store.list_boards"
	opDeleteBoard  = "store.delete_board"

	fieldBoardID  = "board_id"
	fieldObjectID = "object_id"
	fieldUserID   = "user_id"

	reasonMissingDatabase    = "missing_database"
	reasonInvalidIdentifier  = "invalid_identifier"
	reasonInvalidAttributes  = "invalid_attributes"
	reasonInsertFailed       = "insert_failed"
	reasonSelectFailed       = "select_failed"
	reasonSaveFailed         = "save_failed"
	reasonQueryFailed        = "query_failed"
	reasonObjectNotFound     = "object_not_found"
	reasonBoardNotFound      = "board_not_found"
	reasonObjectDeleteFailed = "object_delete_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig carries the dependencies for a record store service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	Logger     *zap.Logger
	Dispatcher *Dispatcher
}

// Service persists board and object records and publishes realtime
// events for every accepted write. It is the authoritative shared store
// the sync clients converge on; conflict resolution is last-write-wins
// per record.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	logger     *zap.Logger
	dispatcher *Dispatcher
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = NewDispatcher()
	}
	return &Service{
		db:         cfg.Database,
		clock:      clock,
		logger:     logger,
		dispatcher: dispatcher,
	}, nil
}

// CreateObject inserts a new object record and publishes a created
// event. Creating an identifier that already exists is an idempotent
// no-op: the race between an initial listing and a live subscription
// can legitimately deliver the same creation twice.
func (service *Service) CreateObject(ctx context.Context, record Object) error {
	if _, err := NewObjectID(record.ObjectID); err != nil {
		service.logError(opCreateObject, reasonInvalidIdentifier, err, zap.String(fieldObjectID, record.ObjectID))
		return newServiceError(opCreateObject, reasonInvalidIdentifier, err)
	}
	if _, err := NewBoardID(record.BoardID); err != nil {
		service.logError(opCreateObject, reasonInvalidIdentifier, err, zap.String(fieldBoardID, record.BoardID))
		return newServiceError(opCreateObject, reasonInvalidIdentifier, err)
	}
	if _, err := NewUserID(record.UpdatedBy); err != nil {
		service.logError(opCreateObject, reasonInvalidIdentifier, err, zap.String(fieldUserID, record.UpdatedBy))
		return newServiceError(opCreateObject, reasonInvalidIdentifier, err)
	}

	nowSeconds := service.clock().UTC().Unix()
	if record.CreatedAtSeconds == 0 {
		record.CreatedAtSeconds = nowSeconds
	}
	record.UpdatedAtSeconds = nowSeconds
	if record.Version == 0 {
		record.Version = 1
	}
	if record.AttributesJSON == "" {
		record.AttributesJSON = "{}"
	}

	result := service.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if result.Error != nil {
		service.logError(opCreateObject, reasonInsertFailed, result.Error,
			zap.String(fieldBoardID, record.BoardID),
			zap.String(fieldObjectID, record.ObjectID))
		return newServiceError(opCreateObject, reasonInsertFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}

	service.dispatcher.Publish(record.BoardID, ObjectEvent{Type: EventObjectCreated, Object: record})
	return nil
}

// UpdateObject merges a partial change into the stored record, bumps
// its version, and publishes an updated event carrying the full merged
// record. Last write wins; there is no compare-and-swap.
func (service *Service) UpdateObject(ctx context.Context, change ObjectChange) (Object, error) {
	if _, err := NewObjectID(change.ObjectID); err != nil {
		service.logError(opUpdateObject, reasonInvalidIdentifier, err, zap.String(fieldObjectID, change.ObjectID))
		return Object{}, newServiceError(opUpdateObject, reasonInvalidIdentifier, err)
	}
	if _, err := NewUserID(change.UpdatedBy); err != nil {
		service.logError(opUpdateObject, reasonInvalidIdentifier, err, zap.String(fieldUserID, change.UpdatedBy))
		return Object{}, newServiceError(opUpdateObject, reasonInvalidIdentifier, err)
	}

	var updated Object
	txErr := service.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Object
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("object_id = ?", change.ObjectID).
			Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opUpdateObject, reasonObjectNotFound, ErrObjectNotFound)
		}
		if err != nil {
			service.logError(opUpdateObject, reasonSelectFailed, err, zap.String(fieldObjectID, change.ObjectID))
			return newServiceError(opUpdateObject, reasonSelectFailed, err)
		}

		if change.AttributesJSON != "" {
			merged, mergeErr := mergeAttributeBlobs(existing.AttributesJSON, change.AttributesJSON)
			if mergeErr != nil {
				service.logError(opUpdateObject, reasonInvalidAttributes, mergeErr, zap.String(fieldObjectID, change.ObjectID))
				return newServiceError(opUpdateObject, reasonInvalidAttributes, mergeErr)
			}
			existing.AttributesJSON = merged
		}
		if change.Deleted != nil {
			existing.Deleted = *change.Deleted
		}
		existing.UpdatedBy = change.UpdatedBy
		existing.UpdatedAtSeconds = service.clock().UTC().Unix()
		existing.Version++

		if err := tx.Save(&existing).Error; err != nil {
			service.logError(opUpdateObject, reasonSaveFailed, err, zap.String(fieldObjectID, change.ObjectID))
			return newServiceError(opUpdateObject, reasonSaveFailed, err)
		}
		updated = existing
		return nil
	})
	if txErr != nil {
		return Object{}, txErr
	}

	service.dispatcher.Publish(updated.BoardID, ObjectEvent{Type: EventObjectUpdated, Object: updated})
	return updated, nil
}

// ListObjects returns the board's object records, skipping soft-deleted
// rows unless includeDeleted is set.
func (service *Service) ListObjects(ctx context.Context, boardID string, includeDeleted bool) ([]Object, error) {
	if _, err := NewBoardID(boardID); err != nil {
		service.logError(opListObjects, reasonInvalidIdentifier, err, zap.String(fieldBoardID, boardID))
		return nil, newServiceError(opListObjects, reasonInvalidIdentifier, err)
	}

	query := service.db.WithContext(ctx).Where("board_id = ?", boardID)
	if !includeDeleted {
		query = query.Where("deleted = ?", false)
	}

	var objects []Object
	if err := query.Order("created_at_s ASC").Find(&objects).Error; err != nil {
		service.logError(opListObjects, reasonQueryFailed, err, zap.String(fieldBoardID, boardID))
		return nil, newServiceError(opListObjects, reasonQueryFailed, err)
	}
	return objects, nil
}

// SubscribeCreated delivers created events for one board, excluding
// those originated by excludeUser.
func (service *Service) SubscribeCreated(ctx context.Context, boardID, excludeUser string) (<-chan ObjectEvent, func()) {
	return service.dispatcher.Subscribe(ctx, boardID, EventObjectCreated, excludeUser)
}

// SubscribeUpdated delivers updated events for one board, excluding
// those originated by excludeUser.
func (service *Service) SubscribeUpdated(ctx context.Context, boardID, excludeUser string) (<-chan ObjectEvent, func()) {
	return service.dispatcher.Subscribe(ctx, boardID, EventObjectUpdated, excludeUser)
}

// SubscribeEvents delivers every object event for one board.
func (service *Service) SubscribeEvents(ctx context.Context, boardID, excludeUser string) (<-chan ObjectEvent, func()) {
	return service.dispatcher.Subscribe(ctx, boardID, "", excludeUser)
}

func mergeAttributeBlobs(storedJSON, changeJSON string) (string, error) {
	merged := make(map[string]any)
	if storedJSON != "" {
		if err := json.Unmarshal([]byte(storedJSON), &merged); err != nil {
			return "", fmt.Errorf("stored attributes: %w", err)
		}
	}
	incoming := make(map[string]any)
	if err := json.Unmarshal([]byte(changeJSON), &incoming); err != nil {
		return "", fmt.Errorf("change attributes: %w", err)
	}
	for name, value := range incoming {
		merged[name] = value
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (service *Service) loggerOrDefault() *zap.Logger {
	if service == nil || service.logger == nil {
		return noOpLogger
	}
	return service.logger
}

func (service *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	service.loggerOrDefault().Error("store service error", attrs...)
}
