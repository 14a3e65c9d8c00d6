// Package scene provides a headless in-memory implementation of the
// board rendering surface. It keeps the live object graph without
// drawing anything, which is what tests and server-side tooling need;
// a real canvas binding implements the same interface with pixels.
package scene

import (
	"fmt"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/slate/internal/board"
)

type sceneObject struct {
	kind       board.ObjectKind
	attributes map[string]any
}

// Scene is a mutex-guarded object graph keyed by identifier. Safe for
// concurrent use: the interaction loop and downstream subscription
// goroutines both mutate it.
type Scene struct {
	mu      sync.RWMutex
	objects map[string]*sceneObject
}

// New constructs an empty scene.
func New() *Scene {
	return &Scene{objects: make(map[string]*sceneObject)}
}

// Has reports whether an object with the identifier exists.
func (scene *Scene) Has(name string) bool {
	scene.mu.RLock()
	defer scene.mu.RUnlock()
	_, ok := scene.objects[name]
	return ok
}

// Insert instantiates an object of the given kind from the attribute
// set. Inserting an existing identifier replaces nothing and returns
// nil; unknown kinds fail, since they indicate a schema mismatch rather
// than a runtime race.
func (scene *Scene) Insert(name string, kind board.ObjectKind, attributes board.AttributeSet) error {
	if _, err := board.ParseObjectKind(kind.String()); err != nil {
		return fmt.Errorf("scene: instantiate %q: %w", name, err)
	}
	scene.mu.Lock()
	defer scene.mu.Unlock()
	if _, ok := scene.objects[name]; ok {
		return nil
	}
	scene.objects[name] = &sceneObject{
		kind:       kind,
		attributes: attributes.ToMap(),
	}
	return nil
}

// Remove drops the object and reports whether it existed.
func (scene *Scene) Remove(name string) bool {
	scene.mu.Lock()
	defer scene.mu.Unlock()
	if _, ok := scene.objects[name]; !ok {
		return false
	}
	delete(scene.objects, name)
	return true
}

// Set assigns the attributes immediately.
func (scene *Scene) Set(name string, attributes board.AttributeSet) {
	scene.mu.Lock()
	defer scene.mu.Unlock()
	object, ok := scene.objects[name]
	if !ok {
		return
	}
	for attrName, value := range attributes.ToMap() {
		object.attributes[attrName] = value
	}
}

// Animate applies the target values. A headless scene has no frames to
// interpolate over, so the animation completes immediately at the
// target state.
func (scene *Scene) Animate(name string, attributes board.AttributeSet, _ time.Duration) {
	scene.Set(name, attributes)
}

// Snapshot returns the object's kind and a copy of its attributes.
func (scene *Scene) Snapshot(name string) (board.ObjectKind, board.AttributeSet, bool) {
	scene.mu.RLock()
	defer scene.mu.RUnlock()
	object, ok := scene.objects[name]
	if !ok {
		return "", board.AttributeSet{}, false
	}
	return object.kind, board.NewAttributeSet(object.attributes), true
}

// Names returns the identifiers of every object in the scene.
func (scene *Scene) Names() []string {
	scene.mu.RLock()
	defer scene.mu.RUnlock()
	names := make([]string, 0, len(scene.objects))
	for name := range scene.objects {
		names = append(names, name)
	}
	return names
}

// Len returns the number of objects in the scene.
func (scene *Scene) Len() int {
	scene.mu.RLock()
	defer scene.mu.RUnlock()
	return len(scene.objects)
}
