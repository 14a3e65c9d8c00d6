package board

import "fmt"

// ActionHandler consumes locally originated actions; the upstream sync
// client implements it to turn them into store writes.
type ActionHandler interface {
	HandleBoardAction(action Action)
}

// HistoryEvent pairs an action with the action that exactly reverses it.
type HistoryEvent struct {
	Original     Action
	Compensating Action
}

// ActionHistory keeps the per-session undo/redo stacks. Undo and redo
// replay compensating actions through the resolver and forward them
// upstream so the inversion becomes a durable, synced write. History is
// local to one session and never persisted.
//
// ActionHistory is not safe for concurrent use; it belongs to the
// session's event loop, like everything else that mutates the surface.
type ActionHistory struct {
	resolver *ActionResolver
	upstream ActionHandler

	undoHistory []HistoryEvent
	redoHistory []HistoryEvent

	knownStates map[string]AttributeSet
}

// NewActionHistory constructs a history engine. The upstream handler
// may be nil for a session that never syncs.
func NewActionHistory(resolver *ActionResolver, upstream ActionHandler) *ActionHistory {
	return &ActionHistory{
		resolver:    resolver,
		upstream:    upstream,
		knownStates: make(map[string]AttributeSet),
	}
}

// AddEvent records a locally observed action: computes its compensating
// pair, refreshes the known-state cache, pushes onto the undo stack and
// clears the redo stack. Any new recorded action invalidates redo
// history.
func (history *ActionHistory) AddEvent(action Action) error {
	event, err := history.buildEvent(action)
	if err != nil {
		return err
	}
	if action.Type == ActionCreate || action.Type == ActionUpdate {
		history.knownStates[action.Name] = NewAttributeSet(action.Attributes.ToMap())
	}
	history.undoHistory = append(history.undoHistory, event)
	history.redoHistory = nil
	return nil
}

// RegisterState warms the known-state cache for an object the history
// engine has not yet observed, so the first UPDATE compensates to the
// real prior state instead of an empty one.
func (history *ActionHistory) RegisterState(name string, attributes AttributeSet) {
	history.knownStates[name] = NewAttributeSet(attributes.ToMap())
}

// Undo pops the most recent event, applies its compensating action and
// pushes the reverse onto the redo stack. No-op on an empty stack.
func (history *ActionHistory) Undo() error {
	return history.moveHistory(&history.undoHistory, &history.redoHistory)
}

// Redo is the symmetric inverse of Undo.
func (history *ActionHistory) Redo() error {
	return history.moveHistory(&history.redoHistory, &history.undoHistory)
}

// UndoDepth returns the number of undoable events.
func (history *ActionHistory) UndoDepth() int {
	return len(history.undoHistory)
}

// RedoDepth returns the number of redoable events.
func (history *ActionHistory) RedoDepth() int {
	return len(history.redoHistory)
}

func (history *ActionHistory) moveHistory(from, to *[]HistoryEvent) error {
	if len(*from) == 0 {
		return nil
	}
	event := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]

	if history.upstream != nil {
		history.upstream.HandleBoardAction(event.Compensating)
	}
	if err := history.resolver.Resolve(event.Compensating); err != nil {
		return err
	}

	if event.Compensating.Type != ActionDelete {
		history.knownStates[event.Original.Name] = NewAttributeSet(event.Compensating.Attributes.ToMap())
	}

	*to = append(*to, reverseEvent(event))
	return nil
}

func (history *ActionHistory) buildEvent(action Action) (HistoryEvent, error) {
	switch action.Type {
	case ActionCreate:
		return HistoryEvent{
			Original: action,
			Compensating: Action{
				Type: ActionDelete,
				Name: action.Name,
				Kind: action.Kind,
			},
		}, nil
	case ActionUpdate:
		return HistoryEvent{
			Original: action,
			Compensating: Action{
				Type:       ActionUpdate,
				Name:       action.Name,
				Kind:       action.Kind,
				Attributes: history.priorState(action.Name),
			},
		}, nil
	case ActionDelete:
		return HistoryEvent{
			Original: action,
			Compensating: Action{
				Type:       ActionUnDelete,
				Name:       action.Name,
				Kind:       action.Kind,
				Attributes: history.priorState(action.Name),
			},
		}, nil
	case ActionUnDelete:
		return HistoryEvent{
			Original: action,
			Compensating: Action{
				Type: ActionDelete,
				Name: action.Name,
				Kind: action.Kind,
			},
		}, nil
	default:
		return HistoryEvent{}, fmt.Errorf("%w: %q", ErrUnknownActionType, action.Type)
	}
}

func (history *ActionHistory) priorState(name string) AttributeSet {
	state, ok := history.knownStates[name]
	if !ok {
		return AttributeSet{}
	}
	return NewAttributeSet(state.ToMap())
}

// reverseEvent swaps a popped event so that redo of an undo toggles
// between exactly two states. Undone creations redo as UN_DELETE
// carrying the original attributes rather than a second CREATE, which
// keeps the identifier stable across repeated undo/redo cycles.
func reverseEvent(event HistoryEvent) HistoryEvent {
	if event.Compensating.Type == ActionDelete && event.Original.Type == ActionCreate {
		return HistoryEvent{
			Original: event.Compensating,
			Compensating: Action{
				Type:       ActionUnDelete,
				Name:       event.Original.Name,
				Kind:       event.Original.Kind,
				Attributes: event.Original.Attributes,
			},
		}
	}
	return HistoryEvent{
		Original:     event.Compensating,
		Compensating: event.Original,
	}
}
