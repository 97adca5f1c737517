package engine

import (
	"os"

	"github.com/valyala/bytebufferpool"
)

// InputBuffer is an append-oriented byte region with begin/end markers, per
// spec.md §4.1: "bytes in [begin,end) are unparsed request bytes; bytes
// outside are undefined." Growth is geometric starting at 1KiB.
//
// Grounded on original_source/http-daemon.cpp's input_buffer contract
// (reserve/append/consume/reset) and the teacher's own pooling discipline
// (shockwave/pkg/shockwave/http11/pool.go) for the backing storage.
type InputBuffer struct {
	buf   *bytebufferpool.ByteBuffer
	begin int
}

var inputBufferPool bytebufferpool.Pool

// NewInputBuffer returns an InputBuffer backed by a pooled byte slice.
func NewInputBuffer() *InputBuffer {
	buf := inputBufferPool.Get()
	if cap(buf.B) < DefaultReadBufferSize {
		buf.B = make([]byte, 0, DefaultReadBufferSize)
	}
	return &InputBuffer{buf: buf}
}

// Release returns the backing storage to the pool. The InputBuffer must not
// be used afterward.
func (ib *InputBuffer) Release() {
	inputBufferPool.Put(ib.buf)
	ib.buf = nil
}

// Reserve returns a writable region of at least n bytes at the current end
// of the buffer, compacting the consumed prefix first and growing
// geometrically if needed. The driver writes into the returned slice and
// then calls Append.
func (ib *InputBuffer) Reserve(n int) []byte {
	ib.compact()

	have := cap(ib.buf.B) - len(ib.buf.B)
	if have < n {
		newCap := cap(ib.buf.B)
		if newCap == 0 {
			newCap = DefaultReadBufferSize
		}
		for newCap-len(ib.buf.B) < n {
			newCap *= 2
		}
		grown := make([]byte, len(ib.buf.B), newCap)
		copy(grown, ib.buf.B)
		ib.buf.B = grown
	}
	return ib.buf.B[len(ib.buf.B):cap(ib.buf.B)]
}

// Append commits n bytes written into the region returned by the most
// recent Reserve call.
func (ib *InputBuffer) Append(n int) {
	ib.buf.B = ib.buf.B[:len(ib.buf.B)+n]
}

// Bytes returns the currently unparsed bytes, [begin, end).
func (ib *InputBuffer) Bytes() []byte {
	return ib.buf.B[ib.begin:]
}

// Consume advances begin by k, which must not exceed len(Bytes()).
func (ib *InputBuffer) Consume(k int) {
	if k > len(ib.Bytes()) {
		panic("engine: Consume beyond buffered data")
	}
	ib.begin += k
}

// compact drops the already-consumed prefix so Reserve can reuse the space
// instead of growing unboundedly on a long-lived persistent connection.
func (ib *InputBuffer) compact() {
	if ib.begin == 0 {
		return
	}
	remaining := copy(ib.buf.B, ib.buf.B[ib.begin:])
	ib.buf.B = ib.buf.B[:remaining]
	ib.begin = 0
}

// span is one entry of the output buffer's scatter list: either data owned
// by the buffer itself, or a reference into a payload handle that must stay
// alive until the driver confirms the bytes were written (spec.md §4.1,
// §9 "Output payload lifetime"). A span backed by an *os.File lets the
// driver transfer it with internal/payload's sendfile(2) fast path instead
// of copying the file through this buffer.
type span struct {
	data    []byte
	release func()

	file         *os.File
	fileSize     int64
	fileConsumed int64
}

// length reports how many bytes of this span are still unflushed.
func (s *span) length() int {
	if s.file != nil {
		return int(s.fileSize - s.fileConsumed)
	}
	return len(s.data)
}

// OutputSpan is one entry of the scatter list returned by Commit: either
// in-memory bytes the driver should Write, or a file-backed span the driver
// may transfer with internal/payload.SendFile instead.
type OutputSpan struct {
	Data []byte

	File       *os.File
	FileOffset int64
	FileSize   int64
}

// OutputBuffer is an ordered scatter list of pending output spans. No
// reordering is ever performed, matching spec.md §4.1.
type OutputBuffer struct {
	// buf accumulates bytes written via Write before the next pushed span
	// (or Commit), so small header writes don't each become their own
	// scatter-list entry.
	buf   *bytebufferpool.ByteBuffer
	spans []span
}

var outputBufferPool bytebufferpool.Pool

// NewOutputBuffer returns an OutputBuffer backed by a pooled byte slice.
func NewOutputBuffer() *OutputBuffer {
	buf := outputBufferPool.Get()
	return &OutputBuffer{buf: buf}
}

// Release returns the backing storage to the pool and releases any owned
// spans still pending. Call only after Flush has drained everything, or
// when abandoning the connection.
func (ob *OutputBuffer) Release() {
	for _, s := range ob.spans {
		if s.release != nil {
			s.release()
		}
	}
	ob.spans = nil
	outputBufferPool.Put(ob.buf)
	ob.buf = nil
}

// Write appends a copy of p to the buffer's own storage (for headers and
// small generated bodies).
func (ob *OutputBuffer) Write(p []byte) {
	ob.buf.Write(p)
}

// PushOwned enqueues a span backed by memory this buffer does not own; the
// release function is called once Flush confirms the span was fully
// written.
func (ob *OutputBuffer) PushOwned(data []byte, release func()) {
	ob.flushPendingWrites()
	ob.spans = append(ob.spans, span{data: data, release: release})
}

// PushFile enqueues a file-backed span of size bytes starting at the file's
// current read position, eligible for the driver's sendfile(2) fast path
// (internal/payload). release is called once Flush confirms the whole span
// was written, or when the buffer is released early (e.g. the connection
// was closed mid-transfer).
func (ob *OutputBuffer) PushFile(file *os.File, size int64, release func()) {
	ob.flushPendingWrites()
	ob.spans = append(ob.spans, span{file: file, fileSize: size, release: release})
}

// flushPendingWrites turns whatever has accumulated in buf into its own
// scatter-list entry, preserving order against any subsequently pushed
// owned span.
func (ob *OutputBuffer) flushPendingWrites() {
	if len(ob.buf.B) == 0 {
		return
	}
	owned := make([]byte, len(ob.buf.B))
	copy(owned, ob.buf.B)
	ob.spans = append(ob.spans, span{data: owned})
	ob.buf.Reset()
}

// Commit returns the ordered scatter list of spans queued since the last
// Flush, per spec.md §4.1.
func (ob *OutputBuffer) Commit() []OutputSpan {
	ob.flushPendingWrites()
	out := make([]OutputSpan, len(ob.spans))
	for i, s := range ob.spans {
		if s.file != nil {
			out[i] = OutputSpan{File: s.file, FileOffset: s.fileConsumed, FileSize: s.fileSize - s.fileConsumed}
			continue
		}
		out[i] = OutputSpan{Data: s.data}
	}
	return out
}

// Empty reports whether there is no pending output at all.
func (ob *OutputBuffer) Empty() bool {
	return len(ob.buf.B) == 0 && len(ob.spans) == 0
}

// Flush releases the spans fully covered by the driver having written n
// bytes (summed across the whole Commit), calling each owned span's
// release function exactly once.
func (ob *OutputBuffer) Flush(n int) {
	for n > 0 && len(ob.spans) > 0 {
		head := &ob.spans[0]
		remaining := head.length()
		if remaining <= n {
			n -= remaining
			if head.release != nil {
				head.release()
			}
			ob.spans = ob.spans[1:]
			continue
		}
		if head.file != nil {
			head.fileConsumed += int64(n)
		} else {
			head.data = head.data[n:]
		}
		n = 0
	}
}
