package util

import (
	"fmt"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// OrderedMap is a map iterated in the order of its keys. Keys cannot be
// overridden once inserted.
type OrderedMap[K constraints.Ordered, V any] struct {
	data map[K]V
}

// OrderedMapEntry is a single (key, value) pair of the map.
type OrderedMapEntry[K constraints.Ordered, V any] struct {
	Key   K
	Value V
}

func NewOrderedMap[K constraints.Ordered, V any]() OrderedMap[K, V] {
	return OrderedMap[K, V]{data: map[K]V{}}
}

// NewOrderedMapFrom shallow-copies a conventional map.
func NewOrderedMapFrom[K constraints.Ordered, V any](raw map[K]V) OrderedMap[K, V] {
	return OrderedMap[K, V]{data: maps.Clone(raw)}
}

// Insert adds a (key, value) pair. Inserting a key twice is an error.
func (m *OrderedMap[K, V]) Insert(key K, value V) error {
	if m.data == nil {
		m.data = map[K]V{}
	}
	if _, ok := m.data[key]; ok {
		return fmt.Errorf("key %v is already present", key)
	}
	m.data[key] = value
	return nil
}

func (m *OrderedMap[K, V]) Lookup(key K) (V, bool) {
	val, ok := m.data[key]
	return val, ok
}

func (m *OrderedMap[K, V]) Len() int {
	return len(m.data)
}

// Keys returns the ordered keys.
func (m *OrderedMap[K, V]) Keys() []K {
	keys := maps.Keys(m.data)
	slices.Sort(keys)
	return keys
}

// Values returns the values ordered by their keys.
func (m *OrderedMap[K, V]) Values() []V {
	return MappedSlice(m.Keys(), func(k K) V { return m.data[k] })
}

// Entries returns the entries ordered by their keys.
func (m *OrderedMap[K, V]) Entries() []OrderedMapEntry[K, V] {
	return MappedSlice(m.Keys(), func(k K) OrderedMapEntry[K, V] {
		return OrderedMapEntry[K, V]{Key: k, Value: m.data[k]}
	})
}

// OrderedEntries returns the entries of a conventional map ordered by key.
func OrderedEntries[K constraints.Ordered, V any](m map[K]V) []OrderedMapEntry[K, V] {
	tmp := OrderedMap[K, V]{data: m}
	return tmp.Entries()
}

// OrderedValues returns the values of a conventional map ordered by their keys.
func OrderedValues[K constraints.Ordered, V any](m map[K]V) []V {
	tmp := OrderedMap[K, V]{data: m}
	return tmp.Values()
}

// MappedSlice maps the input slice using f.
func MappedSlice[V any, U any](values []V, f func(V) U) []U {
	result := make([]U, 0, len(values))
	for _, v := range values {
		result = append(result, f(v))
	}
	return result
}
