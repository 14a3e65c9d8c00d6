package board

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/slate/internal/store"
)

type surfaceCall struct {
	name       string
	attributes AttributeSet
	duration   time.Duration
}

type fakeSurfaceObject struct {
	kind       ObjectKind
	attributes map[string]any
}

// fakeSurface records every Set/Animate call so tests can assert which
// apply path an attribute travelled.
type fakeSurface struct {
	mu           sync.Mutex
	objects      map[string]*fakeSurfaceObject
	setCalls     []surfaceCall
	animateCalls []surfaceCall
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{objects: make(map[string]*fakeSurfaceObject)}
}

func (s *fakeSurface) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[name]
	return ok
}

func (s *fakeSurface) Insert(name string, kind ObjectKind, attributes AttributeSet) error {
	if _, err := ParseObjectKind(kind.String()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[name]; ok {
		return nil
	}
	s.objects[name] = &fakeSurfaceObject{kind: kind, attributes: attributes.ToMap()}
	return nil
}

func (s *fakeSurface) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[name]; !ok {
		return false
	}
	delete(s.objects, name)
	return true
}

func (s *fakeSurface) Set(name string, attributes AttributeSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	object, ok := s.objects[name]
	if !ok {
		return
	}
	for attrName, value := range attributes.ToMap() {
		object.attributes[attrName] = value
	}
	s.setCalls = append(s.setCalls, surfaceCall{name: name, attributes: attributes})
}

func (s *fakeSurface) Animate(name string, attributes AttributeSet, duration time.Duration) {
	s.mu.Lock()
	object, ok := s.objects[name]
	if ok {
		for attrName, value := range attributes.ToMap() {
			object.attributes[attrName] = value
		}
		s.animateCalls = append(s.animateCalls, surfaceCall{name: name, attributes: attributes, duration: duration})
	}
	s.mu.Unlock()
}

func (s *fakeSurface) Snapshot(name string) (ObjectKind, AttributeSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	object, ok := s.objects[name]
	if !ok {
		return "", AttributeSet{}, false
	}
	return object.kind, NewAttributeSet(object.attributes), true
}

func (s *fakeSurface) objectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *fakeSurface) lastAnimate() (surfaceCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.animateCalls) == 0 {
		return surfaceCall{}, false
	}
	return s.animateCalls[len(s.animateCalls)-1], true
}

func (s *fakeSurface) lastSet() (surfaceCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.setCalls) == 0 {
		return surfaceCall{}, false
	}
	return s.setCalls[len(s.setCalls)-1], true
}

// fakeActionSink collects actions forwarded by the history engine or
// the gesture recorder.
type fakeActionSink struct {
	mu      sync.Mutex
	actions []Action
}

func (sink *fakeActionSink) HandleBoardAction(action Action) {
	sink.mu.Lock()
	sink.actions = append(sink.actions, action)
	sink.mu.Unlock()
}

func (sink *fakeActionSink) recorded() []Action {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	copied := make([]Action, len(sink.actions))
	copy(copied, sink.actions)
	return copied
}

// fakeRecordStore implements RecordStore in memory, with channels the
// test pushes remote events through.
type fakeRecordStore struct {
	mu         sync.Mutex
	objects    map[string]store.Object
	creates    []store.Object
	updates    []store.ObjectChange
	createFail error
	updateFail error

	createdCh chan store.ObjectEvent
	updatedCh chan store.ObjectEvent
	cancels   int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		objects:   make(map[string]store.Object),
		createdCh: make(chan store.ObjectEvent, 32),
		updatedCh: make(chan store.ObjectEvent, 32),
	}
}

func (f *fakeRecordStore) CreateObject(_ context.Context, record store.Object) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFail != nil {
		return f.createFail
	}
	f.creates = append(f.creates, record)
	if _, ok := f.objects[record.ObjectID]; ok {
		return nil
	}
	if record.AttributesJSON == "" {
		record.AttributesJSON = "{}"
	}
	record.Version = 1
	f.objects[record.ObjectID] = record
	return nil
}

func (f *fakeRecordStore) UpdateObject(_ context.Context, change store.ObjectChange) (store.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateFail != nil {
		return store.Object{}, f.updateFail
	}
	f.updates = append(f.updates, change)
	existing, ok := f.objects[change.ObjectID]
	if !ok {
		return store.Object{}, store.ErrObjectNotFound
	}
	if change.AttributesJSON != "" {
		merged := make(map[string]any)
		if existing.AttributesJSON != "" {
			if err := json.Unmarshal([]byte(existing.AttributesJSON), &merged); err != nil {
				return store.Object{}, err
			}
		}
		incoming := make(map[string]any)
		if err := json.Unmarshal([]byte(change.AttributesJSON), &incoming); err != nil {
			return store.Object{}, err
		}
		for name, value := range incoming {
			merged[name] = value
		}
		data, err := json.Marshal(merged)
		if err != nil {
			return store.Object{}, err
		}
		existing.AttributesJSON = string(data)
	}
	if change.Deleted != nil {
		existing.Deleted = *change.Deleted
	}
	existing.UpdatedBy = change.UpdatedBy
	existing.Version++
	f.objects[change.ObjectID] = existing
	return existing, nil
}

func (f *fakeRecordStore) ListObjects(_ context.Context, boardID string, includeDeleted bool) ([]store.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var records []store.Object
	for _, record := range f.objects {
		if record.BoardID != boardID {
			continue
		}
		if record.Deleted && !includeDeleted {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (f *fakeRecordStore) SubscribeCreated(_ context.Context, _, _ string) (<-chan store.ObjectEvent, func()) {
	return f.createdCh, func() {
		f.mu.Lock()
		f.cancels++
		f.mu.Unlock()
	}
}

func (f *fakeRecordStore) SubscribeUpdated(_ context.Context, _, _ string) (<-chan store.ObjectEvent, func()) {
	return f.updatedCh, func() {
		f.mu.Lock()
		f.cancels++
		f.mu.Unlock()
	}
}

func (f *fakeRecordStore) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

func (f *fakeRecordStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeRecordStore) lastUpdate(t *testing.T) store.ObjectChange {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		t.Fatal("expected at least one update write")
	}
	return f.updates[len(f.updates)-1]
}

type staticIDGenerator struct {
	mu    sync.Mutex
	ids   []string
	index int
}

func (g *staticIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.index >= len(g.ids) {
		return "", errExhaustedIDs
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

var errExhaustedIDs = errTest("exhausted ids")

type errTest string

func (e errTest) Error() string { return string(e) }

func attrs(values map[string]any) AttributeSet {
	return NewAttributeSet(values)
}

func mustAttr(t *testing.T, set AttributeSet, name string) any {
	t.Helper()
	value, ok := set.Value(name)
	if !ok {
		t.Fatalf("expected attribute %q to be present", name)
	}
	return value
}

// applyLocal mirrors what the interaction layer does before recording:
// mutate the surface, then feed the action to history.
func applyLocal(t *testing.T, surface Surface, history *ActionHistory, action Action) {
	t.Helper()
	switch action.Type {
	case ActionCreate, ActionUnDelete:
		if err := surface.Insert(action.Name, action.Kind, action.Attributes); err != nil {
			t.Fatalf("unexpected insert error: %v", err)
		}
	case ActionUpdate:
		surface.Set(action.Name, action.Attributes)
	case ActionDelete:
		surface.Remove(action.Name)
	}
	if err := history.AddEvent(action); err != nil {
		t.Fatalf("unexpected history error: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
