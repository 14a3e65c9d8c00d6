package board

// classification partitions every known attribute into animatable
// (safe to interpolate when applied remotely) and discrete (must be
// applied atomically). Attributes absent from the table are internal
// scene fields and never leave the client.
var classification = map[string]bool{
	"left":        true,
	"top":         true,
	"scaleX":      true,
	"scaleY":      true,
	"skewX":       true,
	"skewY":       true,
	"angle":       true,
	"width":       true,
	"height":      true,
	"rx":          true,
	"ry":          true,
	"x1":          true,
	"y1":          true,
	"x2":          true,
	"y2":          true,
	"fontSize":    true,
	"strokeWidth": true,
	"text":        false,
	"fontFamily":  false,
	"fill":        false,
	"stroke":      false,
	"path":        false,
}

// Animatable reports whether remote updates to the named attribute
// should be interpolated. Unknown attributes are treated as discrete.
func Animatable(name string) bool {
	return classification[name]
}

// Known reports whether the attribute participates in sync at all.
func Known(name string) bool {
	_, ok := classification[name]
	return ok
}

// FilterKnown returns the subset of the set that is listed in the
// classification table, dropping transient scene-object fields.
func FilterKnown(set AttributeSet) AttributeSet {
	filtered := make(map[string]any, set.Len())
	for _, name := range set.Names() {
		if !Known(name) {
			continue
		}
		value, _ := set.Value(name)
		filtered[name] = value
	}
	return NewAttributeSet(filtered)
}

// SplitAnimatable partitions a set into its animatable and discrete
// known subsets. Unknown attributes are dropped from both halves.
func SplitAnimatable(set AttributeSet) (AttributeSet, AttributeSet) {
	animatable := make(map[string]any, set.Len())
	discrete := make(map[string]any, set.Len())
	for _, name := range set.Names() {
		if !Known(name) {
			continue
		}
		value, _ := set.Value(name)
		if Animatable(name) {
			animatable[name] = value
		} else {
			discrete[name] = value
		}
	}
	return NewAttributeSet(animatable), NewAttributeSet(discrete)
}
