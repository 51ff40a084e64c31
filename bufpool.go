package packjson

import (
	"bytes"
	"sync"
)

// chunkPool recycles output chunks of DefaultChunkSize. Chunks of any other
// size are allocated per sink and left to the GC.
var chunkPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, DefaultChunkSize)
		return &b
	},
}

// inputPool reuses buffers for DecodeFrom, which has to materialize the whole
// input before decoding.
var inputPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}
