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

// Package genome defines reference-genome coordinates: loci, the contig index
// that orders them, and the immutable Reference sequence shared by all
// calling workers.
package genome

import (
	"math"
)

// PosType is the integer type used to represent genomic positions.
type PosType = int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// InvalidRefID is the RefID of a locus that does not refer to any contig.
const InvalidRefID = int32(-1)

// Locus is a single 0-based position on a contig.  RefID is the contig's
// index in the Reference; loci are ordered by RefID first, so the ordering
// follows the contig index rather than contig names.
type Locus struct {
	RefID int32
	Pos   PosType
}

// Compare returns (negative int, 0, positive int) if (l<l1, l=l1, l>l1)
// respectively.
func (l Locus) Compare(l1 Locus) int {
	if l.RefID != l1.RefID {
		return int(l.RefID) - int(l1.RefID)
	}
	return int(l.Pos) - int(l1.Pos)
}

// LT returns true iff l < l1.
func (l Locus) LT(l1 Locus) bool {
	return l.Compare(l1) < 0
}

// LE returns true iff l <= l1.
func (l Locus) LE(l1 Locus) bool {
	return l.Compare(l1) <= 0
}

// EQ returns true iff l = l1.
func (l Locus) EQ(l1 Locus) bool {
	return l.RefID == l1.RefID && l.Pos == l1.Pos
}

// Next returns the locus immediately after l on the same contig.
func (l Locus) Next() Locus {
	return Locus{RefID: l.RefID, Pos: l.Pos + 1}
}

// LocusRange is the half-open locus interval [Start, Limit).  Start and Limit
// may be on different contigs; a range covering all of contig i ends at
// {i+1, 0}.
type LocusRange struct {
	Start Locus
	Limit Locus
}

// Contains returns true iff l is inside r.
func (r LocusRange) Contains(l Locus) bool {
	return r.Start.LE(l) && l.LT(r.Limit)
}

// Intersects returns true iff (r ∩ r1) != ∅.
func (r LocusRange) Intersects(r1 LocusRange) bool {
	return r.Start.LT(r1.Limit) && r1.Start.LT(r.Limit)
}
