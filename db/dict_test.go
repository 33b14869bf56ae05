package db

import (
	"fmt"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestHashTableSetAndGet(t *testing.T) {
	ht := NewHashTable[int](10)
	ht.Set("one", 1)
	ht.Set("two", 2)

	value, exists := ht.Get("one")
	assert.True(t, exists, "Key 'one' should exist")
	assert.Equal(t, 1, value, "Value for key 'one' should be 1")

	value, exists = ht.Get("two")
	assert.True(t, exists, "Key 'two' should exist")
	assert.Equal(t, 2, value, "Value for key 'two' should be 2")

	_, exists = ht.Get("three")
	assert.False(t, exists, "Key 'three' should not exist")
}

func TestHashTableOverwrite(t *testing.T) {
	ht := NewHashTable[string](4)
	ht.Set("k", "v1")
	ht.Set("k", "v2")

	value, exists := ht.Get("k")
	assert.True(t, exists)
	assert.Equal(t, "v2", value)
	assert.Equal(t, 1, ht.Len())
}

func TestHashTableDelete(t *testing.T) {
	ht := NewHashTable[int](10)
	ht.Set("one", 1)
	assert.True(t, ht.Delete("one"))
	assert.False(t, ht.Delete("one"))

	_, exists := ht.Get("one")
	assert.False(t, exists, "Expected key 'one' to be deleted")
	assert.True(t, ht.Empty())
}

func TestHashTableResize(t *testing.T) {
	ht := NewHashTable[int](10)

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key%d", i)
		ht.Set(key, i)
	}

	assert.Equal(t, 100, ht.Len())
	assert.Greater(t, ht.Size, 10)

	for i := 0; i < 100; i++ {
		value, exists := ht.Get(fmt.Sprintf("key%d", i))
		assert.True(t, exists)
		assert.Equal(t, i, value)
	}
}
