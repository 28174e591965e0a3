package domain

import (
	"fmt"
	"sort"
)

// WriterID identifies a participant that authors entries.
type WriterID string

// SequenceVector maps each writer to the highest sequence number known for
// it. Missing writers read as 0.
type SequenceVector map[WriterID]uint64

// Get returns the sequence number for w, or 0.
func (v SequenceVector) Get(w WriterID) uint64 {
	return v[w]
}

// Clone returns an independent copy of v.
func (v SequenceVector) Clone() SequenceVector {
	cp := make(SequenceVector, len(v))
	for w, seq := range v {
		cp[w] = seq
	}
	return cp
}

// Merge raises each entry of v to the maximum of v and other.
// It reports whether any entry advanced. v must be non-nil.
func (v SequenceVector) Merge(other SequenceVector) bool {
	advanced := false
	for w, seq := range other {
		if seq > v[w] {
			v[w] = seq
			advanced = true
		}
	}
	return advanced
}

// Writers returns the writers of v in sorted order.
func (v SequenceVector) Writers() []WriterID {
	writers := make([]WriterID, 0, len(v))
	for w := range v {
		writers = append(writers, w)
	}
	sort.Slice(writers, func(i, j int) bool { return writers[i] < writers[j] })
	return writers
}

// Gap is a contiguous range of sequence numbers of one writer that have not
// been fetched yet. From and To are inclusive.
type Gap struct {
	Writer WriterID
	From   uint64
	To     uint64
}

// Len returns the number of sequence numbers in g.
func (g Gap) Len() uint64 {
	if g.To < g.From {
		return 0
	}
	return g.To - g.From + 1
}

// String formats g for logs.
func (g Gap) String() string {
	return fmt.Sprintf("%s[%d..%d]", g.Writer, g.From, g.To)
}

// ComputeGaps returns the ranges announced in remote beyond what local has
// fetched, excluding self. Gaps are ordered by writer.
func ComputeGaps(local, remote SequenceVector, self WriterID) []Gap {
	var gaps []Gap
	for _, w := range remote.Writers() {
		if w == self {
			continue
		}
		announced := remote[w]
		fetched := local[w]
		if announced > fetched {
			gaps = append(gaps, Gap{Writer: w, From: fetched + 1, To: announced})
		}
	}
	return gaps
}

// EntryName formats the name of one entry of a writer, e.g. "node-a/7".
func EntryName(w WriterID, seq uint64) string {
	return fmt.Sprintf("%s/%d", w, seq)
}
