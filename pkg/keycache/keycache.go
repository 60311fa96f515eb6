// Package keycache keeps recently used expanded keys so repeated
// encryptions under one cipher key skip the key schedule.
package keycache

import (
	"sync"

	"github.com/Davincible/aestiming/pkg/crypto/aes128"
	"github.com/floatdrop/lru"
)

const DefaultSize = 64

type Cache struct {
	mu     sync.Mutex
	lru    *lru.LRU[aes128.Key, aes128.ExpandedKey]
	tables *aes128.Tables

	hits   uint64
	misses uint64
}

// New returns a cache holding at most size expanded keys. A size below one
// selects DefaultSize.
func New(size int) *Cache {
	if size < 1 {
		size = DefaultSize
	}
	return &Cache{
		lru:    lru.New[aes128.Key, aes128.ExpandedKey](size),
		tables: aes128.DefaultTables(),
	}
}

// Get returns the expanded key of key, deriving it on a miss.
func (c *Cache) Get(key aes128.Key) aes128.ExpandedKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	if xk := c.lru.Get(key); xk != nil {
		c.hits++
		return *xk
	}

	c.misses++
	xk := aes128.Expand(c.tables, &key)
	c.lru.Set(key, xk)
	return xk
}

// Stats reports cache hits and misses.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// EncryptFunc returns a table-mode entry point that takes round keys from c
// instead of expanding the key on every call.
func (c *Cache) EncryptFunc() func(plaintext, key [aes128.BlockSize]byte) [aes128.BlockSize]byte {
	return func(plaintext, key [aes128.BlockSize]byte) [aes128.BlockSize]byte {
		xk := c.Get(aes128.Key(key))
		state := aes128.Block(plaintext)
		aes128.EncryptState(c.tables, &state, &xk)
		return state
	}
}
