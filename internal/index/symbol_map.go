package index

import "plcc/internal/types"

// SymbolMap is an insertion-ordered multimap keyed by folded identifiers.
// Redefinitions are kept next to the first entry so the validator can report
// them; lookups return the first one.
type SymbolMap[T any] struct {
	keys    []string
	entries map[string][]T
}

func NewSymbolMap[T any]() *SymbolMap[T] {
	return &SymbolMap[T]{entries: make(map[string][]T)}
}

// Insert appends v under name.
func (m *SymbolMap[T]) Insert(name string, v T) {
	k := types.Key(name)
	if _, ok := m.entries[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.entries[k] = append(m.entries[k], v)
}

// InsertUnique appends v unless an entry for which same returns true is
// already stored under name. It reports whether v was added.
func (m *SymbolMap[T]) InsertUnique(name string, v T, same func(a, b T) bool) bool {
	for _, old := range m.entries[types.Key(name)] {
		if same(old, v) {
			return false
		}
	}
	m.Insert(name, v)
	return true
}

// Replace overwrites the first entry stored under name, or inserts v.
func (m *SymbolMap[T]) Replace(name string, v T) {
	k := types.Key(name)
	if list := m.entries[k]; len(list) > 0 {
		list[0] = v
		return
	}
	m.Insert(name, v)
}

func (m *SymbolMap[T]) Get(name string) (T, bool) {
	list := m.entries[types.Key(name)]
	if len(list) == 0 {
		var zero T
		return zero, false
	}
	return list[0], true
}

// GetAll returns every entry stored under name, first one first.
func (m *SymbolMap[T]) GetAll(name string) []T {
	return m.entries[types.Key(name)]
}

func (m *SymbolMap[T]) Contains(name string) bool {
	return len(m.entries[types.Key(name)]) > 0
}

// Len counts distinct keys.
func (m *SymbolMap[T]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the folded keys in first-insertion order.
func (m *SymbolMap[T]) Keys() []string {
	return m.keys
}

// Values returns the first entry per key in insertion order.
func (m *SymbolMap[T]) Values() []T {
	if m == nil {
		return nil
	}
	out := make([]T, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.entries[k][0])
	}
	return out
}

// AllValues returns every entry, duplicates included.
func (m *SymbolMap[T]) AllValues() []T {
	if m == nil {
		return nil
	}
	out := make([]T, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.entries[k]...)
	}
	return out
}

// Duplicates returns the keys that hold more than one entry.
func (m *SymbolMap[T]) Duplicates() []string {
	var out []string
	for _, k := range m.keys {
		if len(m.entries[k]) > 1 {
			out = append(out, k)
		}
	}
	return out
}
