package store

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidObjectID indicates an object identifier that is empty or exceeds storage bounds.
	ErrInvalidObjectID = errors.New("store: invalid object id")
	// ErrInvalidBoardID indicates a board identifier that is empty or exceeds storage bounds.
	ErrInvalidBoardID = errors.New("store: invalid board id")
	// ErrInvalidUserID indicates a user identifier that is empty or exceeds storage bounds.
	ErrInvalidUserID = errors.New("store: invalid user id")
	// ErrObjectNotFound indicates an update against an object the store has never seen.
	ErrObjectNotFound = errors.New("store: object not found")
	// ErrBoardNotFound indicates an operation against an unknown board.
	ErrBoardNotFound = errors.New("store: board not found")
)

// ObjectID represents a validated board object identifier.
type ObjectID string

// NewObjectID validates raw input and returns an ObjectID.
func NewObjectID(rawInput string) (ObjectID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidObjectID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidObjectID, maxIdentifierLength)
	}
	return ObjectID(trimmed), nil
}

// String returns the underlying string identifier.
func (id ObjectID) String() string {
	return string(id)
}

// BoardID represents a validated board identifier.
type BoardID string

// NewBoardID validates raw input and returns a BoardID.
func NewBoardID(rawInput string) (BoardID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBoardID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidBoardID, maxIdentifierLength)
	}
	return BoardID(trimmed), nil
}

// String returns the underlying string identifier.
func (id BoardID) String() string {
	return string(id)
}

// UserID represents a validated user identifier.
type UserID string

// NewUserID validates raw input and returns a UserID.
func NewUserID(rawInput string) (UserID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUserID, maxIdentifierLength)
	}
	return UserID(trimmed), nil
}

// String returns the underlying string identifier.
func (id UserID) String() string {
	return string(id)
}

// Object models one persisted board object. Deletion is a flag, never a
// row removal, so a deleted object can be restored with its identifier
// intact.
type Object struct {
	ObjectID         string `gorm:"column:object_id;primaryKey;size:190;not null"`
	BoardID          string `gorm:"column:board_id;size:190;not null;index:idx_objects_board_updated,priority:1"`
	Kind             string `gorm:"column:kind;size:32;not null"`
	UpdatedBy        string `gorm:"column:updated_by;size:190;not null"`
	Deleted          bool   `gorm:"column:deleted;not null;default:false;index:idx_objects_board_updated,priority:3"`
	AttributesJSON   string `gorm:"column:attributes_json;type:text;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null;index:idx_objects_board_updated,priority:2"`
	Version          int64  `gorm:"column:version;not null;default:1"`
}

// TableName provides the explicit table binding for GORM.
func (Object) TableName() string {
	return "board_objects"
}

// ObjectChange describes a partial update to a stored object. A nil
// Deleted leaves the flag untouched; an empty AttributesJSON leaves the
// stored attributes untouched, otherwise the blobs are merged
// field-by-field with the change winning.
type ObjectChange struct {
	ObjectID       string
	UpdatedBy      string
	AttributesJSON string
	Deleted        *bool
}

// Board models one shared whiteboard.
type Board struct {
	BoardID          string `gorm:"column:board_id;primaryKey;size:190;not null"`
	OwnerID          string `gorm:"column:owner_id;size:190;not null;index"`
	Title            string `gorm:"column:title;size:320;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Board) TableName() string {
	return "boards"
}

// EventType enumerates the realtime object events the store emits.
type EventType string

const (
	// EventObjectCreated fires once when an object row is first inserted.
	EventObjectCreated EventType = "object-created"
	// EventObjectUpdated fires on every accepted change to an existing row.
	EventObjectUpdated EventType = "object-updated"
)

// ObjectEvent carries the full post-change record to subscribers.
type ObjectEvent struct {
	Type   EventType
	Object Object
}
