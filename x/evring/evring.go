// Package evring provides a fixed-capacity event ring. When full, the
// oldest entry is evicted. It is single-owner: the cooperative engine
// loop is the only writer and reader, so no synchronisation is needed.
package evring

// Entry is one timestamped event tag.
type Entry struct {
	TsMs int64
	Tag  string
}

// Ring holds the last Cap() entries appended.
type Ring struct {
	buf   []Entry
	head  int // index of oldest entry
	count int
}

// New allocates a ring with the given capacity (minimum 1).
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]Entry, capacity)}
}

func (r *Ring) Cap() int { return len(r.buf) }
func (r *Ring) Len() int { return r.count }

// Append records an entry, evicting the oldest if the ring is full.
func (r *Ring) Append(tsMs int64, tag string) {
	idx := (r.head + r.count) % len(r.buf)
	r.buf[idx] = Entry{TsMs: tsMs, Tag: tag}
	if r.count < len(r.buf) {
		r.count++
	} else {
		r.head = (r.head + 1) % len(r.buf)
	}
}

// Snapshot returns the entries oldest-first.
func (r *Ring) Snapshot() []Entry {
	out := make([]Entry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Clear discards all entries.
func (r *Ring) Clear() {
	r.head = 0
	r.count = 0
}
