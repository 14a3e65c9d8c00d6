package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ActionType enumerates the object-level changes that flow through sync and history.
type ActionType string

const (
	// ActionCreate records that a new object entered the scene.
	ActionCreate ActionType = "CREATE"
	// ActionUpdate records a partial or full attribute change.
	ActionUpdate ActionType = "UPDATE"
	// ActionDelete soft-deletes an object; its identifier stays reserved.
	ActionDelete ActionType = "DELETE"
	// ActionUnDelete reintroduces a previously deleted object from a snapshot.
	ActionUnDelete ActionType = "UN_DELETE"
)

// ObjectKind enumerates the content types a board object can carry.
// The kind is fixed at creation and never changes.
type ObjectKind string

const (
	KindRectangle ObjectKind = "RECTANGLE"
	KindEllipse   ObjectKind = "ELLIPSE"
	KindText      ObjectKind = "TEXT"
	KindPath      ObjectKind = "PATH"
	KindLine      ObjectKind = "LINE"
)

var (
	// ErrUnknownObjectKind indicates a content type this engine cannot instantiate.
	ErrUnknownObjectKind = errors.New("board: unknown object kind")
	// ErrUnknownActionType indicates an action variant outside the tagged union.
	ErrUnknownActionType = errors.New("board: unknown action type")
	// ErrInvalidAttributeValue indicates an attribute value that is neither numeric nor a string.
	ErrInvalidAttributeValue = errors.New("board: invalid attribute value")
)

// ParseObjectKind validates raw input and returns an ObjectKind.
func ParseObjectKind(rawInput string) (ObjectKind, error) {
	switch ObjectKind(strings.ToUpper(strings.TrimSpace(rawInput))) {
	case KindRectangle:
		return KindRectangle, nil
	case KindEllipse:
		return KindEllipse, nil
	case KindText:
		return KindText, nil
	case KindPath:
		return KindPath, nil
	case KindLine:
		return KindLine, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownObjectKind, rawInput)
	}
}

// String returns the kind as its wire tag.
func (kind ObjectKind) String() string {
	return string(kind)
}

// AttributeSet is an immutable snapshot of named scalar attributes.
// Values are float64 or string. The backing map is copied on the way in
// and on the way out, so a stored snapshot cannot be mutated through
// aliasing.
type AttributeSet struct {
	values map[string]any
}

// NewAttributeSet copies the provided values into an AttributeSet.
// Numeric values of any integer or float type are normalized to float64.
func NewAttributeSet(values map[string]any) AttributeSet {
	if len(values) == 0 {
		return AttributeSet{}
	}
	copied := make(map[string]any, len(values))
	for name, value := range values {
		copied[name] = normalizeValue(value)
	}
	return AttributeSet{values: copied}
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case int:
		return float64(typed)
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case float32:
		return float64(typed)
	default:
		return value
	}
}

// Value returns the named attribute and whether it is present.
func (set AttributeSet) Value(name string) (any, bool) {
	value, ok := set.values[name]
	return value, ok
}

// Names returns the attribute names in sorted order.
func (set AttributeSet) Names() []string {
	names := make([]string, 0, len(set.values))
	for name := range set.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of attributes in the set.
func (set AttributeSet) Len() int {
	return len(set.values)
}

// IsEmpty reports whether the set carries no attributes.
func (set AttributeSet) IsEmpty() bool {
	return len(set.values) == 0
}

// ToMap returns a fresh map copy of the attributes.
func (set AttributeSet) ToMap() map[string]any {
	copied := make(map[string]any, len(set.values))
	for name, value := range set.values {
		copied[name] = value
	}
	return copied
}

// Equal reports whether two sets carry the same attributes and values.
func (set AttributeSet) Equal(other AttributeSet) bool {
	if len(set.values) != len(other.values) {
		return false
	}
	for name, value := range set.values {
		otherValue, ok := other.values[name]
		if !ok || otherValue != value {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the attribute set as a flat JSON object.
func (set AttributeSet) MarshalJSON() ([]byte, error) {
	if set.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(set.values)
}

// UnmarshalJSON decodes a flat JSON object into the attribute set.
func (set *AttributeSet) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for name, value := range raw {
		switch value.(type) {
		case float64, string:
		default:
			return fmt.Errorf("%w: attribute %q", ErrInvalidAttributeValue, name)
		}
	}
	*set = AttributeSet{values: raw}
	return nil
}

// EncodeAttributes serializes an attribute set to its JSON blob form.
func EncodeAttributes(set AttributeSet) (string, error) {
	data, err := json.Marshal(set)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeAttributes parses a JSON blob into an attribute set.
// An empty blob decodes to an empty set.
func DecodeAttributes(blob string) (AttributeSet, error) {
	if strings.TrimSpace(blob) == "" {
		return AttributeSet{}, nil
	}
	var set AttributeSet
	if err := json.Unmarshal([]byte(blob), &set); err != nil {
		return AttributeSet{}, err
	}
	return set, nil
}

// Action is one object-level change: the unit of sync and history.
// Attributes is empty for DELETE.
type Action struct {
	Type       ActionType
	Name       string
	Kind       ObjectKind
	Attributes AttributeSet
}
