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
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/reads"
)

// Element binds one read to its alignment state at a single locus.
type Element struct {
	Read *reads.Read
	// ReadOffset is the offset of the read base aligned to the locus.  For a
	// mid-deletion element it is the offset of the last base before the
	// deletion.
	ReadOffset int
	// CigarIndex is the index of the CIGAR operation active at the locus.
	CigarIndex int
	Allele     Allele
	// Qual is the base quality backing the allele: the aligned base's quality
	// for matches and substitutions, the minimum over the anchor and inserted
	// bases for insertions, and the anchor's (or preceding base's) quality for
	// deletions.
	Qual        byte
	midDeletion bool
}

// IsMatch returns whether the element agrees with the reference.
func (e *Element) IsMatch() bool { return e.Allele.Kind == Reference }

// IsMismatch returns whether the element is a single-base substitution.
func (e *Element) IsMismatch() bool { return e.Allele.Kind == Substitution }

// IsInsertion returns whether the element anchors an insertion.
func (e *Element) IsInsertion() bool { return e.Allele.Kind == Insertion }

// IsDeletion returns whether the element anchors a deletion or lies inside
// one.
func (e *Element) IsDeletion() bool { return e.Allele.Kind == Deletion }

// IsMidDeletion returns whether the locus lies strictly inside a deletion.
func (e *Element) IsMidDeletion() bool { return e.midDeletion }

// ProbCorrect is the probability that the element's base call is correct.
func (e *Element) ProbCorrect() float64 {
	return ProbCorrect(e.Qual)
}

// ProbCorrectIncludingAlignment additionally discounts for the chance that
// the read is misaligned, as given by its mapping quality.
func (e *Element) ProbCorrectIncludingAlignment() float64 {
	return ProbCorrect(e.Qual) * ProbCorrect(e.Read.MapQ)
}

// DistanceToEdge returns the number of read bases between the element and
// the nearer end of the read.
func (e *Element) DistanceToEdge() int {
	d := len(e.Read.Seq) - 1 - e.ReadOffset
	if e.ReadOffset < d {
		return e.ReadOffset
	}
	return d
}

// Strand returns the strand the element's read is aligned to.
func (e *Element) Strand() StrandType {
	return GetStrand(e.Read)
}

func isAlignedOp(t sam.CigarOpType) bool {
	return t == sam.CigarMatch || t == sam.CigarEqual || t == sam.CigarMismatch
}

// newElement locates read r's alignment state at l by walking its CIGAR.  It
// returns false if r does not cover l.
func newElement(r *reads.Read, l genome.Locus, ref *genome.Reference) (Element, bool) {
	if !r.Covers(l) {
		return Element{}, false
	}
	refPos := r.Start
	readOff := 0
	for i, co := range r.Cigar {
		n := co.Len()
		switch t := co.Type(); {
		case isAlignedOp(t):
			if l.Pos < refPos+PosType(n) {
				off := readOff + int(l.Pos-refPos)
				e := Element{Read: r, ReadOffset: off, CigarIndex: i, Qual: r.Qual[off]}
				refBase := ref.Base(l)
				if off == readOff+n-1 && i+1 < len(r.Cigar) {
					next := r.Cigar[i+1]
					switch next.Type() {
					case sam.CigarInsertion:
						e.Allele, e.Qual = insertionAllele(r, off, next.Len(), refBase)
						return e, true
					case sam.CigarDeletion:
						dels := ref.Bases(l.RefID, l.Pos+1, l.Pos+1+PosType(next.Len()))
						e.Allele = Allele{
							Kind: Deletion,
							Ref:  string(refBase) + string(dels),
							Alt:  string(r.Seq[off]),
						}
						return e, true
					}
				}
				e.Allele = matchAllele(r, off, refBase)
				return e, true
			}
			refPos += PosType(n)
			readOff += n
		case t == sam.CigarInsertion || t == sam.CigarSoftClipped:
			readOff += n
		case t == sam.CigarDeletion:
			if l.Pos < refPos+PosType(n) {
				prev := readOff - 1
				if prev < 0 {
					prev = 0
				}
				return Element{
					Read:        r,
					ReadOffset:  prev,
					CigarIndex:  i,
					Allele:      Allele{Kind: Deletion, Ref: string(ref.Base(l))},
					Qual:        r.Qual[prev],
					midDeletion: true,
				}, true
			}
			refPos += PosType(n)
		}
	}
	// Unreachable for reads validated by reads.New.
	return Element{}, false
}

// insertionAllele returns the allele and quality of an element anchoring an
// insertion of insLen bases after read offset off.
func insertionAllele(r *reads.Read, off, insLen int, refBase byte) (Allele, byte) {
	qual := r.Qual[off]
	for _, q := range r.Qual[off+1 : off+1+insLen] {
		if q < qual {
			qual = q
		}
	}
	alt := make([]byte, 0, insLen+1)
	alt = append(alt, refBase)
	alt = append(alt, r.Seq[off+1:off+1+insLen]...)
	return Allele{Kind: Insertion, Ref: string(refBase), Alt: string(alt)}, qual
}

// matchAllele classifies an aligned base as a reference match or a
// substitution.  A mismatch annotation, when the read carries one, is
// authoritative; otherwise the base is compared against the reference.
func matchAllele(r *reads.Read, off int, refBase byte) Allele {
	readBase := r.Seq[off]
	if r.Mismatches != nil {
		if annotated, ok := r.Mismatches.Lookup(off); ok {
			return Allele{Kind: Substitution, Ref: string(annotated), Alt: string(readBase)}
		}
		return RefAllele(refBase)
	}
	if readBase == refBase {
		return RefAllele(refBase)
	}
	return Allele{Kind: Substitution, Ref: string(refBase), Alt: string(readBase)}
}
