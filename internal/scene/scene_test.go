package scene

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/slate/internal/board"
)

func TestInsertAndSnapshot(t *testing.T) {
	canvas := New()
	attributes := board.NewAttributeSet(map[string]any{"left": 10, "fill": "#fff"})

	if err := canvas.Insert("rect-1", board.KindRectangle, attributes); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if !canvas.Has("rect-1") {
		t.Fatal("expected object present")
	}

	kind, snapshot, ok := canvas.Snapshot("rect-1")
	if !ok {
		t.Fatal("expected snapshot")
	}
	if kind != board.KindRectangle {
		t.Fatalf("expected rectangle kind, got %s", kind)
	}
	if !snapshot.Equal(attributes) {
		t.Fatalf("expected inserted attributes, got %v", snapshot.ToMap())
	}
}

func TestInsertExistingIdentifierIsNoOp(t *testing.T) {
	canvas := New()
	if err := canvas.Insert("rect-1", board.KindRectangle, board.NewAttributeSet(map[string]any{"left": 1})); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := canvas.Insert("rect-1", board.KindEllipse, board.NewAttributeSet(map[string]any{"left": 99})); err != nil {
		t.Fatalf("second insert failed: %v", err)
	}

	kind, snapshot, _ := canvas.Snapshot("rect-1")
	if kind != board.KindRectangle {
		t.Fatalf("expected original kind preserved, got %s", kind)
	}
	left, _ := snapshot.Value("left")
	if left != float64(1) {
		t.Fatalf("expected original attributes preserved, got left=%v", left)
	}
	if canvas.Len() != 1 {
		t.Fatalf("expected one object, got %d", canvas.Len())
	}
}

func TestInsertRejectsUnknownKind(t *testing.T) {
	canvas := New()
	err := canvas.Insert("bad-1", board.ObjectKind("HEXAGON"), board.AttributeSet{})
	if !errors.Is(err, board.ErrUnknownObjectKind) {
		t.Fatalf("expected ErrUnknownObjectKind, got %v", err)
	}
	if canvas.Has("bad-1") {
		t.Fatal("expected no object instantiated")
	}
}

func TestSetMergesAttributes(t *testing.T) {
	canvas := New()
	if err := canvas.Insert("rect-1", board.KindRectangle, board.NewAttributeSet(map[string]any{"left": 1, "top": 2})); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	canvas.Set("rect-1", board.NewAttributeSet(map[string]any{"left": 50}))

	_, snapshot, _ := canvas.Snapshot("rect-1")
	left, _ := snapshot.Value("left")
	top, _ := snapshot.Value("top")
	if left != float64(50) || top != float64(2) {
		t.Fatalf("expected merged attributes, got %v", snapshot.ToMap())
	}

	// Setting a missing object changes nothing.
	canvas.Set("ghost", board.NewAttributeSet(map[string]any{"left": 1}))
	if canvas.Has("ghost") {
		t.Fatal("expected set on a missing object to be a no-op")
	}
}

func TestAnimateCompletesImmediately(t *testing.T) {
	canvas := New()
	if err := canvas.Insert("rect-1", board.KindRectangle, board.NewAttributeSet(map[string]any{"left": 0})); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	canvas.Animate("rect-1", board.NewAttributeSet(map[string]any{"left": 300}), 500*time.Millisecond)

	_, snapshot, _ := canvas.Snapshot("rect-1")
	left, _ := snapshot.Value("left")
	if left != float64(300) {
		t.Fatalf("expected animation target applied, got left=%v", left)
	}
}

func TestRemove(t *testing.T) {
	canvas := New()
	if err := canvas.Insert("rect-1", board.KindRectangle, board.AttributeSet{}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if !canvas.Remove("rect-1") {
		t.Fatal("expected remove to report existence")
	}
	if canvas.Remove("rect-1") {
		t.Fatal("expected second remove to report absence")
	}
}

func TestSnapshotIsolatedFromLaterMutation(t *testing.T) {
	canvas := New()
	if err := canvas.Insert("rect-1", board.KindRectangle, board.NewAttributeSet(map[string]any{"left": 1})); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	_, before, _ := canvas.Snapshot("rect-1")
	canvas.Set("rect-1", board.NewAttributeSet(map[string]any{"left": 99}))

	left, _ := before.Value("left")
	if left != float64(1) {
		t.Fatalf("expected snapshot isolated from later writes, got left=%v", left)
	}
}

func TestConcurrentMutation(t *testing.T) {
	canvas := New()
	if err := canvas.Insert("rect-1", board.KindRectangle, board.NewAttributeSet(map[string]any{"left": 0})); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	var group sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		group.Add(1)
		go func(seed int) {
			defer group.Done()
			for i := 0; i < 100; i++ {
				canvas.Set("rect-1", board.NewAttributeSet(map[string]any{"left": seed*1000 + i}))
				canvas.Snapshot("rect-1")
				canvas.Has("rect-1")
			}
		}(worker)
	}
	group.Wait()

	if canvas.Len() != 1 {
		t.Fatalf("expected one object after concurrent writes, got %d", canvas.Len())
	}
}
