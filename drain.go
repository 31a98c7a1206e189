// drain.go: Consumer-side drain protocol
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package ringlog

// Read drains one record into out and advances the read cursor. It must
// only be called by a single consumer; there is no inter-consumer
// synchronization on the read cursor.
//
// On success, n is the number of payload bytes copied into out (which may
// be fewer than the record's original payload length if out is smaller --
// the excess is silently discarded, and the ring cursor still advances past
// the whole record), lvl and ts are the record's header fields, and err is
// nil.
//
// ErrEmpty means the write and read cursors coincide: nothing to drain.
// ErrBusy means a producer has reserved this slot but not yet committed;
// the caller must not skip past it -- retry, possibly after a yield, since
// doing otherwise would read a partially written record. ErrInvalid means a
// nil logger, a zero-length out, or a corrupt on-ring length (defense
// against corruption; does not occur with a correctly operating producer).
func (l *Logger) Read(out []byte) (n int, lvl Level, ts uint32, err error) {
	if l == nil || len(out) == 0 {
		return 0, 0, 0, ErrInvalid
	}

	write := l.write.Load()
	read := l.read.Load()
	if write == read {
		return 0, 0, 0, ErrEmpty
	}

	buf, mask := l.buf, l.mask
	length := atomicLoadLen(buf, read)
	if length == 0 {
		return 0, 0, 0, ErrBusy
	}
	if length > l.capacity()/2 {
		return 0, 0, 0, ErrInvalid
	}

	// Erase the completion flag before releasing the slot, so a future
	// producer reusing these bytes starts from a slot that reads FREE.
	atomicStoreLen(buf, read, 0)

	lvl, ts = readHeaderTailZero(buf, mask, read)

	payloadLen := length - headerSize
	payloadPos := (read + headerSize) & mask
	copyLen := payloadLen
	if copyLen > uint32(len(out)) {
		copyLen = uint32(len(out))
	}
	ringCopyOutZero(buf, mask, payloadPos, out[:copyLen])
	if remaining := payloadLen - copyLen; remaining > 0 {
		// Truncated: out was smaller than the payload. The excess is
		// discarded and not reflected in the returned count; still zero
		// it so the slot invariant holds regardless of out's size.
		ringZero(buf, mask, (payloadPos+copyLen)&mask, remaining)
	}

	advance := align4(length)
	paddingStart := (payloadPos + payloadLen) & mask
	paddingLen := advance - headerSize - payloadLen
	ringZero(buf, mask, paddingStart, paddingLen)

	// Zero entirely before releasing the read cursor: the spec leaves
	// this as an open question (zero-before-release vs. zero-after with
	// per-byte ownership reasoning) and recommends the former for
	// simplicity. See DESIGN.md.
	l.read.Store((read + advance) & mask)

	return int(copyLen), lvl, ts, nil
}
