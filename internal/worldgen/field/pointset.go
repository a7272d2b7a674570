package field

// Entry is a cell position with its payload (river marker or resource id).
type Entry struct {
	Pos     Point  `json:"pos"`
	Payload uint16 `json:"payload"`
}

// PointSet is an insertion-ordered set of entries. Re-adding an existing
// (position, payload) pair is a no-op.
type PointSet struct {
	index map[Entry]struct{}
	items []Entry
}

func NewPointSet() *PointSet {
	return &PointSet{index: map[Entry]struct{}{}}
}

// Add reports whether the entry was new.
func (p *PointSet) Add(pos Point, payload uint16) bool {
	e := Entry{Pos: pos, Payload: payload}
	if _, ok := p.index[e]; ok {
		return false
	}
	p.index[e] = struct{}{}
	p.items = append(p.items, e)
	return true
}

func (p *PointSet) Contains(pos Point, payload uint16) bool {
	_, ok := p.index[Entry{Pos: pos, Payload: payload}]
	return ok
}

func (p *PointSet) Len() int {
	if p == nil {
		return 0
	}
	return len(p.items)
}

// Entries returns the entries in insertion order. Callers must not modify it.
func (p *PointSet) Entries() []Entry {
	if p == nil {
		return nil
	}
	return p.items
}

// FromEntries rebuilds a set, dropping duplicates.
func FromEntries(entries []Entry) *PointSet {
	p := NewPointSet()
	for _, e := range entries {
		p.Add(e.Pos, e.Payload)
	}
	return p
}
