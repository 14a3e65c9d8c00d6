package board

// ActionResolver applies actions to the live surface. It is the inbound
// half of the scene adapter: history replay and compensating actions
// flow through Resolve.
type ActionResolver struct {
	surface Surface
}

// NewActionResolver constructs a resolver bound to one surface.
func NewActionResolver(surface Surface) *ActionResolver {
	return &ActionResolver{surface: surface}
}

// Resolve applies one action to the surface. UPDATE and DELETE against
// a missing identifier are silent no-ops (the object may have been
// concurrently removed), as is UN_DELETE for an identifier already
// present. CREATE is never replayed through this path: its compensating
// action is always DELETE, and its redo arrives as UN_DELETE.
func (resolver *ActionResolver) Resolve(action Action) error {
	switch action.Type {
	case ActionUpdate:
		if !resolver.surface.Has(action.Name) {
			return nil
		}
		resolver.surface.Set(action.Name, FilterKnown(action.Attributes))
		return nil
	case ActionDelete:
		resolver.surface.Remove(action.Name)
		return nil
	case ActionUnDelete:
		if resolver.surface.Has(action.Name) {
			return nil
		}
		return resolver.surface.Insert(action.Name, action.Kind, FilterKnown(action.Attributes))
	case ActionCreate:
		return nil
	default:
		return ErrUnknownActionType
	}
}
