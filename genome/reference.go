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

package genome

import (
	"fmt"
	"strings"
)

// Contig is one sequence-dictionary entry.
type Contig struct {
	Name string
	Len  int
}

// NormalizeContigName returns the key used to match contig names across
// inputs.  Matching is case-insensitive and ignores a leading "chr", so
// "chrM", "M" and "m" all name the same contig.
func NormalizeContigName(name string) string {
	lower := strings.ToLower(name)
	return strings.TrimPrefix(lower, "chr")
}

// Reference is an immutable reference genome: a set of named contig
// sequences in index order.  It is safe for concurrent use.
type Reference struct {
	contigs []Contig
	// seqs[i] is contig i's sequence, upper-case ASCII.
	seqs [][]byte
	// offsets[i] is the linear coordinate of {i, 0}; offsets[len(contigs)] is
	// the total length.
	offsets []int64
	byName  map[string]int32
}

// NewReference builds a Reference from contig names and sequences, in index
// order.  Sequences are upper-cased; the caller's slices are not retained.
func NewReference(names []string, seqs [][]byte) (*Reference, error) {
	if len(names) != len(seqs) {
		return nil, fmt.Errorf("genome.NewReference: %d names but %d sequences", len(names), len(seqs))
	}
	r := &Reference{
		contigs: make([]Contig, len(names)),
		seqs:    make([][]byte, len(names)),
		offsets: make([]int64, len(names)+1),
		byName:  make(map[string]int32, len(names)),
	}
	for i, name := range names {
		key := NormalizeContigName(name)
		if prev, ok := r.byName[key]; ok {
			return nil, fmt.Errorf("genome.NewReference: contig names %s and %s collide after normalization", r.contigs[prev].Name, name)
		}
		if int64(len(seqs[i])) > PosTypeMax {
			return nil, fmt.Errorf("genome.NewReference: contig %s is too long (%d)", name, len(seqs[i]))
		}
		r.byName[key] = int32(i)
		r.contigs[i] = Contig{Name: name, Len: len(seqs[i])}
		r.seqs[i] = []byte(strings.ToUpper(string(seqs[i])))
		r.offsets[i+1] = r.offsets[i] + int64(len(seqs[i]))
	}
	return r, nil
}

// NContigs returns the number of contigs.
func (r *Reference) NContigs() int {
	return len(r.contigs)
}

// Contigs returns the sequence dictionary.  The result must not be modified.
func (r *Reference) Contigs() []Contig {
	return r.contigs
}

// Name returns the name of contig refID as given at construction.
func (r *Reference) Name(refID int32) string {
	return r.contigs[refID].Name
}

// Len returns the length of contig refID.
func (r *Reference) Len(refID int32) PosType {
	return PosType(r.contigs[refID].Len)
}

// ContigID looks up a contig by (normalized) name.
func (r *Reference) ContigID(name string) (int32, bool) {
	id, ok := r.byName[NormalizeContigName(name)]
	return id, ok
}

// Base returns the reference base at a locus, or 'N' if the locus is outside
// the contig.
func (r *Reference) Base(l Locus) byte {
	if l.RefID < 0 || int(l.RefID) >= len(r.seqs) {
		return 'N'
	}
	seq := r.seqs[l.RefID]
	if l.Pos < 0 || int(l.Pos) >= len(seq) {
		return 'N'
	}
	return seq[l.Pos]
}

// Bases returns the reference bases in [start, end) on contig refID, clipped
// to the contig.  The result must not be modified.
func (r *Reference) Bases(refID int32, start, end PosType) []byte {
	seq := r.seqs[refID]
	if start < 0 {
		start = 0
	}
	if int(end) > len(seq) {
		end = PosType(len(seq))
	}
	if start >= end {
		return nil
	}
	return seq[start:end]
}

// TotalLen returns the summed length of all contigs.
func (r *Reference) TotalLen() int64 {
	return r.offsets[len(r.contigs)]
}

// Linear maps a locus onto the single coordinate space spanning all contigs
// in index order.
func (r *Reference) Linear(l Locus) int64 {
	return r.offsets[l.RefID] + int64(l.Pos)
}

// Delinearize is the inverse of Linear.  x == TotalLen() maps to
// {NContigs(), 0}, the limit of the whole genome.
func (r *Reference) Delinearize(x int64) Locus {
	n := len(r.contigs)
	if x >= r.offsets[n] {
		return Locus{RefID: int32(n)}
	}
	// Find the last contig whose offset is <= x.  Empty contigs share their
	// offset with the next one, so keep scanning past them.
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if r.offsets[mid+1] <= x {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return Locus{RefID: int32(lo), Pos: PosType(x - r.offsets[lo])}
}

// End returns the limit of the whole genome, {NContigs(), 0}.
func (r *Reference) End() Locus {
	return Locus{RefID: int32(len(r.contigs))}
}

// CheckSequenceDictionaries verifies that two sequence dictionaries describe
// the same contigs (after name normalization) with the same lengths, in the
// same order.
func CheckSequenceDictionaries(a, b []Contig) error {
	if len(a) != len(b) {
		return fmt.Errorf("genome.CheckSequenceDictionaries: %d contigs vs %d contigs", len(a), len(b))
	}
	for i := range a {
		if NormalizeContigName(a[i].Name) != NormalizeContigName(b[i].Name) {
			return fmt.Errorf("genome.CheckSequenceDictionaries: contig %d is %s in one dictionary and %s in the other", i, a[i].Name, b[i].Name)
		}
		if a[i].Len != b[i].Len {
			return fmt.Errorf("genome.CheckSequenceDictionaries: inconsistent lengths for contig %s (%d vs %d)", a[i].Name, a[i].Len, b[i].Len)
		}
	}
	return nil
}
