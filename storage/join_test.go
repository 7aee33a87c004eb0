package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"reduction.dev/linedup/storage"
)

func TestJoin(t *testing.T) {
	assert.Equal(t, "s3://bucket/spill/chunk.tmp", storage.Join("s3://bucket", "spill", "chunk.tmp"), "scheme with bucket")
	assert.Equal(t, "memory:///tmp/a", storage.Join("memory://", "/tmp", "a"), "scheme with absolute path arg")
	assert.Equal(t, "a/b/c", storage.Join("a", "/b/", "/c"), "relative path with slashes in args")
	assert.Equal(t, "/a/b/c", storage.Join("/a", "/b//c"), "absolute path with double slash in arg")
	assert.Equal(t, "base", storage.Join("base"), "degenerate: single arg")
}
