package db

import (
	"hash/fnv"
)

const (
	loadFactor = 0.7
)

type Entry[V any] struct {
	Key   string
	Value V
	Next  *Entry[V]
}

// HashTable is a chained hash table keyed by string. It is not safe for
// concurrent use; RedisDb serialises access to it.
type HashTable[V any] struct {
	Table []*Entry[V]
	Size  int
	Count int
}

func NewHashTable[V any](initSize int) *HashTable[V] {
	if initSize <= 0 {
		initSize = INITIAL_DB_SIZE
	}
	return &HashTable[V]{
		Table: make([]*Entry[V], initSize),
		Size:  initSize,
	}
}

func hashKey(key string) uint32 {
	hasher := fnv.New32a()
	hasher.Write([]byte(key))
	return hasher.Sum32()
}

func (h *HashTable[V]) Hash(key string) int {
	return int(hashKey(key) % uint32(h.Size))
}

// Set inserts key or overwrites its value.
func (h *HashTable[V]) Set(key string, value V) {
	if float64(h.Count)/float64(h.Size) > loadFactor {
		h.resize()
	}

	index := h.Hash(key)
	for curr := h.Table[index]; curr != nil; curr = curr.Next {
		if curr.Key == key {
			curr.Value = value
			return
		}
	}
	h.Table[index] = &Entry[V]{Key: key, Value: value, Next: h.Table[index]}
	h.Count++
}

func (h *HashTable[V]) resize() {
	oldTable := h.Table
	h.Size *= 2
	h.Table = make([]*Entry[V], h.Size)

	for _, entry := range oldTable {
		for entry != nil {
			next := entry.Next
			index := h.Hash(entry.Key)
			entry.Next = h.Table[index]
			h.Table[index] = entry
			entry = next
		}
	}
}

// Delete removes key and reports whether it was present.
func (h *HashTable[V]) Delete(key string) bool {
	index := h.Hash(key)

	var prev *Entry[V]
	for curr := h.Table[index]; curr != nil; prev, curr = curr, curr.Next {
		if curr.Key != key {
			continue
		}
		if prev == nil {
			h.Table[index] = curr.Next
		} else {
			prev.Next = curr.Next
		}
		h.Count--
		return true
	}
	return false
}

func (h *HashTable[V]) Get(key string) (V, bool) {
	index := h.Hash(key)
	for curr := h.Table[index]; curr != nil; curr = curr.Next {
		if curr.Key == key {
			return curr.Value, true
		}
	}
	var zero V
	return zero, false
}

// Len returns the number of elements in the hash table
func (h *HashTable[V]) Len() int {
	return h.Count
}

// Empty returns true if the hash table is empty
func (h *HashTable[V]) Empty() bool {
	return h.Count == 0
}
