package board

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Tool enumerates the drawing tools a pointer gesture can hold.
type Tool string

const (
	ToolRectangle Tool = "rectangle"
	ToolEllipse   Tool = "ellipse"
	ToolLine      Tool = "line"
	ToolFreehand  Tool = "freehand"
)

// ErrUnknownTool indicates a tool the recorder cannot draw with.
var ErrUnknownTool = errors.New("board: unknown tool")

// Point is a canvas coordinate.
type Point struct {
	X float64
	Y float64
}

// Style carries the stroke and fill applied to newly drawn objects.
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
}

type gesturePhase int

const (
	gestureIdle gesturePhase = iota
	gestureDrawing
)

// Recorder is the outbound half of the scene adapter: it turns pointer
// gestures and edit operations into actions, feeding the history engine
// and the upstream sync client. Gesture state is an explicit machine,
// either Idle or Drawing with the origin point and the live object, so
// it is testable without simulating real pointer events.
//
// Continuous-gesture ticks (PointerMove, ModifyTick) go upstream only;
// history records the gesture's final state. While suppressed, the
// recorder ignores every call: programmatic replay of compensating
// actions must not re-trigger capture.
type Recorder struct {
	surface  Surface
	history  *ActionHistory
	upstream ActionHandler
	ids      IDProvider
	style    Style

	phase        gesturePhase
	tool         Tool
	origin       Point
	liveObjectID string
	strokePoints []Point
	suppressed   bool
}

// RecorderConfig carries the dependencies for a gesture recorder.
type RecorderConfig struct {
	Surface  Surface
	History  *ActionHistory
	Upstream ActionHandler
	IDs      IDProvider
	Style    Style
}

// NewRecorder constructs a recorder. IDs defaults to the UUID provider.
func NewRecorder(cfg RecorderConfig) *Recorder {
	ids := cfg.IDs
	if ids == nil {
		ids = NewUUIDProvider()
	}
	return &Recorder{
		surface:  cfg.Surface,
		history:  cfg.History,
		upstream: cfg.Upstream,
		ids:      ids,
		style:    cfg.Style,
	}
}

// Suppress disables capture during programmatic replay.
func (recorder *Recorder) Suppress() {
	recorder.suppressed = true
}

// Resume re-enables capture after replay.
func (recorder *Recorder) Resume() {
	recorder.suppressed = false
}

// Suppressed reports whether capture is currently disabled.
func (recorder *Recorder) Suppressed() bool {
	return recorder.suppressed
}

// PointerDown starts a drawing gesture. Shape tools instantiate the
// live object immediately and record its creation; the freehand tool
// accumulates points and creates the path on PointerUp. Returns the
// new object's identifier, or empty for freehand.
func (recorder *Recorder) PointerDown(tool Tool, point Point) (string, error) {
	if recorder.suppressed || recorder.phase != gestureIdle {
		return "", nil
	}

	if tool == ToolFreehand {
		recorder.phase = gestureDrawing
		recorder.tool = tool
		recorder.origin = point
		recorder.strokePoints = []Point{point}
		return "", nil
	}

	kind, attributes, err := recorder.initialShape(tool, point)
	if err != nil {
		return "", err
	}
	objectID, err := recorder.ids.NewID()
	if err != nil {
		return "", err
	}
	if err := recorder.surface.Insert(objectID, kind, attributes); err != nil {
		return "", err
	}

	recorder.phase = gestureDrawing
	recorder.tool = tool
	recorder.origin = point
	recorder.liveObjectID = objectID

	return objectID, recorder.record(Action{
		Type:       ActionCreate,
		Name:       objectID,
		Kind:       kind,
		Attributes: attributes,
	})
}

// PointerMove advances the gesture. Shape geometry follows the pointer
// and each tick is shipped upstream (throttled there) without touching
// history.
func (recorder *Recorder) PointerMove(point Point) {
	if recorder.suppressed || recorder.phase != gestureDrawing {
		return
	}
	if recorder.tool == ToolFreehand {
		recorder.strokePoints = append(recorder.strokePoints, point)
		return
	}
	geometry := shapeGeometry(recorder.tool, recorder.origin, point)
	recorder.surface.Set(recorder.liveObjectID, geometry)
	kind, snapshot, ok := recorder.surface.Snapshot(recorder.liveObjectID)
	if !ok {
		return
	}
	if recorder.upstream != nil {
		recorder.upstream.HandleBoardAction(Action{
			Type:       ActionUpdate,
			Name:       recorder.liveObjectID,
			Kind:       kind,
			Attributes: snapshot,
		})
	}
}

// PointerUp finalizes the gesture. Shape tools record the final
// geometry as one UPDATE; the freehand tool instantiates the finished
// path and records its creation. Returns the gesture's object
// identifier.
func (recorder *Recorder) PointerUp(point Point) (string, error) {
	if recorder.suppressed || recorder.phase != gestureDrawing {
		return "", nil
	}

	if recorder.tool == ToolFreehand {
		recorder.strokePoints = append(recorder.strokePoints, point)
		objectID, err := recorder.finishStroke()
		recorder.reset()
		return objectID, err
	}

	geometry := shapeGeometry(recorder.tool, recorder.origin, point)
	recorder.surface.Set(recorder.liveObjectID, geometry)
	objectID := recorder.liveObjectID
	kind, snapshot, ok := recorder.surface.Snapshot(objectID)
	recorder.reset()
	if !ok {
		return objectID, nil
	}
	return objectID, recorder.record(Action{
		Type:       ActionUpdate,
		Name:       objectID,
		Kind:       kind,
		Attributes: snapshot,
	})
}

// BeginModify warms the known-state cache from the object's current
// attributes so the modification's first recorded UPDATE compensates to
// the true prior state even when history never observed the object.
func (recorder *Recorder) BeginModify(name string) {
	if recorder.suppressed {
		return
	}
	if _, snapshot, ok := recorder.surface.Snapshot(name); ok {
		recorder.history.RegisterState(name, snapshot)
	}
}

// ModifyTick applies one continuous-gesture step (drag, scale, rotate)
// to an existing object and ships it upstream without recording it.
func (recorder *Recorder) ModifyTick(name string, attributes AttributeSet) {
	if recorder.suppressed || !recorder.surface.Has(name) {
		return
	}
	recorder.surface.Set(name, FilterKnown(attributes))
	kind, snapshot, ok := recorder.surface.Snapshot(name)
	if !ok {
		return
	}
	if recorder.upstream != nil {
		recorder.upstream.HandleBoardAction(Action{
			Type:       ActionUpdate,
			Name:       name,
			Kind:       kind,
			Attributes: snapshot,
		})
	}
}

// EndModify records the completed modification gesture as one UPDATE
// carrying the object's full attribute set.
func (recorder *Recorder) EndModify(name string) error {
	if recorder.suppressed {
		return nil
	}
	kind, snapshot, ok := recorder.surface.Snapshot(name)
	if !ok {
		return nil
	}
	return recorder.record(Action{
		Type:       ActionUpdate,
		Name:       name,
		Kind:       kind,
		Attributes: snapshot,
	})
}

// SetText replaces an object's text content and records the change.
func (recorder *Recorder) SetText(name, text string) error {
	if recorder.suppressed || !recorder.surface.Has(name) {
		return nil
	}
	recorder.surface.Set(name, NewAttributeSet(map[string]any{"text": text}))
	kind, snapshot, ok := recorder.surface.Snapshot(name)
	if !ok {
		return nil
	}
	return recorder.record(Action{
		Type:       ActionUpdate,
		Name:       name,
		Kind:       kind,
		Attributes: snapshot,
	})
}

// InsertText instantiates a text object at the given point and records
// its creation.
func (recorder *Recorder) InsertText(point Point, text, fontFamily string, fontSize float64) (string, error) {
	if recorder.suppressed {
		return "", nil
	}
	objectID, err := recorder.ids.NewID()
	if err != nil {
		return "", err
	}
	attributes := NewAttributeSet(map[string]any{
		"left":       point.X,
		"top":        point.Y,
		"text":       text,
		"fontFamily": fontFamily,
		"fontSize":   fontSize,
		"fill":       recorder.style.Fill,
		"scaleX":     1.0,
		"scaleY":     1.0,
		"angle":      0.0,
	})
	if err := recorder.surface.Insert(objectID, KindText, attributes); err != nil {
		return "", err
	}
	return objectID, recorder.record(Action{
		Type:       ActionCreate,
		Name:       objectID,
		Kind:       KindText,
		Attributes: attributes,
	})
}

// Erase removes an object and records its deletion. No-op for an
// unknown identifier.
func (recorder *Recorder) Erase(name string) error {
	if recorder.suppressed {
		return nil
	}
	kind, _, ok := recorder.surface.Snapshot(name)
	if !ok {
		return nil
	}
	recorder.surface.Remove(name)
	return recorder.record(Action{
		Type: ActionDelete,
		Name: name,
		Kind: kind,
	})
}

func (recorder *Recorder) record(action Action) error {
	if recorder.history != nil {
		if err := recorder.history.AddEvent(action); err != nil {
			return err
		}
	}
	if recorder.upstream != nil {
		recorder.upstream.HandleBoardAction(action)
	}
	return nil
}

func (recorder *Recorder) reset() {
	recorder.phase = gestureIdle
	recorder.tool = ""
	recorder.liveObjectID = ""
	recorder.strokePoints = nil
}

func (recorder *Recorder) initialShape(tool Tool, point Point) (ObjectKind, AttributeSet, error) {
	base := map[string]any{
		"left":        point.X,
		"top":         point.Y,
		"scaleX":      1.0,
		"scaleY":      1.0,
		"angle":       0.0,
		"skewX":       0.0,
		"skewY":       0.0,
		"fill":        recorder.style.Fill,
		"stroke":      recorder.style.Stroke,
		"strokeWidth": recorder.style.StrokeWidth,
	}
	switch tool {
	case ToolRectangle:
		base["width"] = 0.0
		base["height"] = 0.0
		return KindRectangle, NewAttributeSet(base), nil
	case ToolEllipse:
		base["rx"] = 0.0
		base["ry"] = 0.0
		return KindEllipse, NewAttributeSet(base), nil
	case ToolLine:
		base["x1"] = point.X
		base["y1"] = point.Y
		base["x2"] = point.X
		base["y2"] = point.Y
		return KindLine, NewAttributeSet(base), nil
	default:
		return "", AttributeSet{}, fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
}

func (recorder *Recorder) finishStroke() (string, error) {
	objectID, err := recorder.ids.NewID()
	if err != nil {
		return "", err
	}
	attributes := NewAttributeSet(map[string]any{
		"path":        encodePath(recorder.strokePoints),
		"left":        recorder.origin.X,
		"top":         recorder.origin.Y,
		"scaleX":      1.0,
		"scaleY":      1.0,
		"angle":       0.0,
		"stroke":      recorder.style.Stroke,
		"strokeWidth": recorder.style.StrokeWidth,
		"fill":        "",
	})
	if err := recorder.surface.Insert(objectID, KindPath, attributes); err != nil {
		return "", err
	}
	return objectID, recorder.record(Action{
		Type:       ActionCreate,
		Name:       objectID,
		Kind:       KindPath,
		Attributes: attributes,
	})
}

func shapeGeometry(tool Tool, origin, point Point) AttributeSet {
	left := math.Min(origin.X, point.X)
	top := math.Min(origin.Y, point.Y)
	width := math.Abs(point.X - origin.X)
	height := math.Abs(point.Y - origin.Y)
	switch tool {
	case ToolEllipse:
		return NewAttributeSet(map[string]any{
			"left": left,
			"top":  top,
			"rx":   width / 2,
			"ry":   height / 2,
		})
	case ToolLine:
		return NewAttributeSet(map[string]any{
			"x2": point.X,
			"y2": point.Y,
		})
	default:
		return NewAttributeSet(map[string]any{
			"left":   left,
			"top":    top,
			"width":  width,
			"height": height,
		})
	}
}

func encodePath(points []Point) string {
	if len(points) == 0 {
		return ""
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "M %g %g", points[0].X, points[0].Y)
	for _, point := range points[1:] {
		fmt.Fprintf(&builder, " L %g %g", point.X, point.Y)
	}
	return builder.String()
}
