// Package dedup sorts and deduplicates the lines of inputs larger than memory.
//
// The input is cut into chunks of at most ChunkCapacity lines. Each chunk is
// sorted in memory and spilled to a storage.FileSystem as a spill unit. Once
// every chunk is spilled, the units are merged through a min-heap holding one
// frontier line per unit. A line is written only when it differs from the
// last written line, which is enough to drop every duplicate because equal
// lines leave the heap consecutively.
package dedup
