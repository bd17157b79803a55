package cluster

import (
	"github.com/zeebo/xxh3"

	"github.com/couchkit/couchkit/internal"
)

// SelectNodeFunc picks which node serves a given key.
// It receives the key and the current node count and returns a node index.
type SelectNodeFunc func(key string, nodeCount int) int

// DefaultSelectNode uses Jump Hash over an xxh3 digest of the key.
// Jump Hash gives even distribution and moves few keys when nodes are
// added or removed. For a single node it returns that node directly.
func DefaultSelectNode(key string, nodeCount int) int {
	return internal.JumpHash(xxh3.HashString(key), nodeCount)
}

// staticSelector is used in tests to always select a specific node.
func staticSelector(index int) SelectNodeFunc {
	return func(key string, nodeCount int) int {
		return index % nodeCount
	}
}
