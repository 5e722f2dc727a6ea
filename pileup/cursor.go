// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pileup

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/reads"
)

// Cursor builds pileups incrementally while sweeping forward through the
// genome.  It keeps the set of reads covering the current locus, so building
// a pileup costs O(active reads) rather than a scan over all reads.
//
// A Cursor is owned by a single traversal and must not be shared between
// goroutines.  The read slice it is given must be sorted with
// reads.SortByStart and contain only mapped reads.
type Cursor struct {
	rs     []*reads.Read
	sample string
	ref    *genome.Reference

	// next is the index in rs of the first read not yet admitted.
	next int
	// active holds the admitted reads covering cur, in rs order.
	active []*reads.Read
	cur    genome.Locus
	// pending is set when Next may still return cur itself.
	pending bool
}

// NewCursor creates a cursor over rs, positioned at the start of the genome.
func NewCursor(rs []*reads.Read, sample string, ref *genome.Reference) *Cursor {
	return &Cursor{
		rs:      rs,
		sample:  sample,
		ref:     ref,
		active:  make([]*reads.Read, 0, 64),
		pending: true,
	}
}

// sync moves the active set to l.  l must not precede c.cur.
func (c *Cursor) sync(l genome.Locus) {
	n := 0
	for _, r := range c.active {
		if r.RefID == l.RefID && r.End() > l.Pos {
			c.active[n] = r
			n++
		}
	}
	for i := n; i < len(c.active); i++ {
		c.active[i] = nil
	}
	c.active = c.active[:n]
	for c.next < len(c.rs) {
		r := c.rs[c.next]
		if l.LT(r.StartLocus()) {
			break
		}
		c.next++
		if r.Covers(l) {
			c.active = append(c.active, r)
		}
	}
	c.cur = l
}

// Next advances to the next locus covered by at least one read and returns
// it.  Loci are returned in strictly increasing order, so each covered locus
// is returned exactly once.  Next returns false once the reads are
// exhausted.
func (c *Cursor) Next() (genome.Locus, bool) {
	l := c.cur
	if !c.pending {
		l = l.Next()
	}
	c.pending = false
	for {
		c.sync(l)
		if len(c.active) > 0 {
			return l, true
		}
		if c.next >= len(c.rs) {
			return genome.Locus{}, false
		}
		l = c.rs[c.next].StartLocus()
	}
}

// Seek makes l the cursor's current locus.  The next call to Next returns
// the first covered locus at or after l.  Seeking backwards is a programming
// error.
func (c *Cursor) Seek(l genome.Locus) {
	if l.LT(c.cur) {
		log.Panicf("pileup.Cursor.Seek: %+v precedes current locus %+v", l, c.cur)
	}
	c.sync(l)
	c.pending = true
}

// Depth is the number of reads covering the current locus.
func (c *Cursor) Depth() int {
	return len(c.active)
}

// Pileup returns the pileup at l, which must be the locus most recently
// returned by Next or passed to Seek.
func (c *Cursor) Pileup(l genome.Locus) Pileup {
	if !l.EQ(c.cur) {
		log.Panicf("pileup.Cursor.Pileup: %+v is not the current locus %+v", l, c.cur)
	}
	p := Pileup{Locus: l, Sample: c.sample, RefBase: c.ref.Base(l)}
	if len(c.active) > 0 {
		p.Elements = make([]Element, 0, len(c.active))
	}
	for _, r := range c.active {
		if e, ok := newElement(r, l, c.ref); ok {
			p.Elements = append(p.Elements, e)
		}
	}
	return p
}
