package worker

import (
	"math/bits"
	"sync"
)

// readBufferPools pools read buffers by size class so repeated runs do not
// reallocate one buffer per worker. Classes are powers of 4 from 64 B to 1 MiB.
var readBufferPools = [...]sync.Pool{
	{New: func() any { return make([]byte, 64) }},
	{New: func() any { return make([]byte, 256) }},
	{New: func() any { return make([]byte, 1024) }},
	{New: func() any { return make([]byte, 4096) }},
	{New: func() any { return make([]byte, 16384) }},
	{New: func() any { return make([]byte, 65536) }},
	{New: func() any { return make([]byte, 262144) }},
	{New: func() any { return make([]byte, 1048576) }},
}

var readBufferSizes = [...]int{64, 256, 1024, 4096, 16384, 65536, 262144, 1048576}

// readBufferPoolIndex returns the pool index for size, or -1 if size is too
// large to pool. Class i holds 4^(i+3) bytes, so bits.Len(size-1) maps
// directly to the index.
func readBufferPoolIndex(size int) int {
	if size <= 0 {
		return 0
	}
	if size > readBufferSizes[len(readBufferSizes)-1] {
		return -1
	}
	idx := (bits.Len(uint(size-1)) - 5) / 2
	if idx < 0 {
		idx = 0
	}
	return idx
}

// acquireReadBuffer returns a buffer of exactly size bytes. Its contents are
// unspecified; callers overwrite it with io.ReadFull and only look at the
// bytes read.
func acquireReadBuffer(size int) []byte {
	idx := readBufferPoolIndex(size)
	if idx < 0 {
		return make([]byte, size)
	}
	buf := readBufferPools[idx].Get().([]byte)
	return buf[:size]
}

// releaseReadBuffer returns buf to its pool. Buffers that were allocated
// directly are left to the GC.
func releaseReadBuffer(buf []byte) {
	if buf == nil {
		return
	}
	c := cap(buf)
	idx := readBufferPoolIndex(c)
	if idx >= 0 && readBufferSizes[idx] == c {
		readBufferPools[idx].Put(buf[:c])
	}
}
