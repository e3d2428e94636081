// Package refs tracks which survey points are declared and which are only
// referenced by observations, so that undeclared points can be added to the
// generated document.
package refs

// Axis selects the coordinate class a point id belongs to.
type Axis int

const (
	// XY is the horizontal (planar) class.
	XY Axis = iota
	// Z is the vertical class.
	Z
)

// String returns the adj/fix attribute value of the axis.
func (a Axis) String() string {
	if a == Z {
		return "z"
	}
	return "xy"
}

// orderedSet is a set of ids that remembers first-insertion order.
type orderedSet struct {
	index map[string]struct{}
	order []string
}

func (s *orderedSet) add(id string) {
	if id == "" {
		return
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *orderedSet) has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Tracker accumulates known and referenced point ids for both axes.
// The zero value is ready to use.
type Tracker struct {
	known      [2]orderedSet
	referenced [2]orderedSet
}

// Known records id as explicitly declared on the given axis.
func (t *Tracker) Known(axis Axis, id string) {
	t.known[axis].add(id)
}

// Reference records id as cited by an observation on the given axis.
func (t *Tracker) Reference(axis Axis, id string) {
	t.referenced[axis].add(id)
}

// Undeclared returns the ids referenced on the axis but never declared,
// in order of first reference.
func (t *Tracker) Undeclared(axis Axis) []string {
	var ids []string
	for _, id := range t.referenced[axis].order {
		if !t.known[axis].has(id) {
			ids = append(ids, id)
		}
	}
	return ids
}
