package main

import "sync"

// BytePool recycles connection read buffers.
type BytePool struct {
	pool sync.Pool
}

func NewBytePool() *BytePool {
	return &BytePool{
		pool: sync.Pool{
			New: func() any {
				return make([]byte, readChunkSize)
			},
		},
	}
}

func (bp *BytePool) Get(size int) []byte {
	buf := bp.pool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

func (bp *BytePool) Put(buf []byte) {
	if cap(buf) <= 64*1024 { // don't pool very large buffers
		bp.pool.Put(buf[:0])
	}
}
