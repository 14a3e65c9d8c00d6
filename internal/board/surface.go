package board

import "time"

// Surface is the rendering surface contract the engine drives. A live
// canvas implements it with real drawing; the headless scene package
// implements it in memory for tests and server-side use.
type Surface interface {
	// Has reports whether an object with the identifier exists.
	Has(name string) bool
	// Insert instantiates an object of the given kind from the
	// attribute set. Unknown kinds return ErrUnknownObjectKind.
	Insert(name string, kind ObjectKind, attributes AttributeSet) error
	// Remove drops the object and reports whether it existed.
	Remove(name string) bool
	// Set assigns the attributes immediately, without interpolation.
	Set(name string, attributes AttributeSet)
	// Animate moves the named attributes toward the target values
	// over the duration, repainting per frame.
	Animate(name string, attributes AttributeSet, duration time.Duration)
	// Snapshot returns the object's kind and a copy of its current
	// attributes.
	Snapshot(name string) (ObjectKind, AttributeSet, bool)
}
