// Package db holds the process wide keyspace shared by every connection.
package db

import (
	"sync"
)

const (
	INITIAL_DB_SIZE = 16
)

// RedisDb is the key-value store. Every read or write holds the lock of the
// shard owning the key for the single map operation only. With one shard,
// the default, that is a single lock over the whole map and all operations
// are linearizable.
type RedisDb struct {
	shards []*shard
	mask   uint32
}

type shard struct {
	mu   sync.Mutex
	dict *HashTable[string]
}

// New returns an empty store split into shardCount shards. shardCount must
// be a power of two; anything else falls back to a single shard.
func New(shardCount int) *RedisDb {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = 1
	}

	db := &RedisDb{
		shards: make([]*shard, shardCount),
		mask:   uint32(shardCount - 1),
	}
	for i := range db.shards {
		db.shards[i] = &shard{dict: NewHashTable[string](INITIAL_DB_SIZE)}
	}
	return db
}

func (db *RedisDb) shardFor(key string) *shard {
	if len(db.shards) == 1 {
		return db.shards[0]
	}
	return db.shards[hashKey(key)&db.mask]
}

// Get returns the value stored at key.
func (db *RedisDb) Get(key string) (string, bool) {
	s := db.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dict.Get(key)
}

// Set stores value at key, overwriting any previous value.
func (db *RedisDb) Set(key, value string) {
	s := db.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dict.Set(key, value)
}

// Len returns the number of keys.
func (db *RedisDb) Len() int {
	n := 0
	for _, s := range db.shards {
		s.mu.Lock()
		n += s.dict.Len()
		s.mu.Unlock()
	}
	return n
}

// Shards returns the number of shards.
func (db *RedisDb) Shards() int {
	return len(db.shards)
}
