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

// Package reads defines the normalized, immutable form of an aligned (or
// unaligned) sequencing read consumed by the pileup and calling code.
package reads

import (
	"fmt"
	"sort"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/somatic/genome"
)

// PosType is the integer type used to represent genomic positions.
type PosType = genome.PosType

// Mate describes where a read's mate is aligned.  It is only present when
// the mate is mapped.
type Mate struct {
	Contig string
	RefID  int32
	Start  PosType
}

// Read is a single sequencing read.  Reads are created once by New (or by
// UnmarshalRead) and must not be modified afterwards; pileups and sliding
// windows share them freely.
type Read struct {
	// Token uniquely identifies the read within a run.  If zero at
	// construction, it is derived from Name and FirstInPair.
	Token uint64
	Name  string
	// Seq holds the bases as upper-case ASCII from {A,C,G,T,N}.
	Seq []byte
	// Qual holds phred base qualities, one per base of Seq.
	Qual   []byte
	Sample string
	// Contig and RefID locate a mapped read; RefID is genome.InvalidRefID and
	// Start is -1 for unmapped reads.
	Contig string
	RefID  int32
	Start  PosType
	MapQ   byte
	Cigar  sam.Cigar
	// Mismatches is the optional precomputed mismatch annotation.  nil means
	// the annotation is absent, in which case mismatches must be derived by
	// comparison against the reference; a non-nil empty slice means the read
	// is known to match the reference everywhere it is aligned.
	Mismatches Mismatches

	Reverse     bool
	Duplicate   bool
	QCFail      bool
	Paired      bool
	FirstInPair bool
	// InsertSize is the inferred insert size (TLEN), signed.
	InsertSize int32
	// Mate is nil when the mate is unmapped or the read is unpaired.
	Mate *Mate

	// end is 1 + the last reference position covered by the alignment.
	end PosType
}

// New validates r and returns an immutable copy of it.  Malformed reads
// (inconsistent CIGAR and sequence lengths, a mapped read without a start,
// unsupported CIGAR operations, etc.) are rejected with a descriptive error.
func New(r Read) (*Read, error) {
	out := r
	if err := out.init(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Token computes the default read token: a fingerprint of the read name and
// which end of the pair it is.
func Token(name string, firstInPair bool) uint64 {
	b := make([]byte, len(name)+1)
	copy(b, name)
	b[len(name)] = '2'
	if firstInPair {
		b[len(name)] = '1'
	}
	return farm.Fingerprint64(b)
}

func (r *Read) init() error {
	if len(r.Qual) != len(r.Seq) {
		return fmt.Errorf("reads.New: read %s has %d bases but %d quality scores", r.Name, len(r.Seq), len(r.Qual))
	}
	for i, c := range r.Seq {
		switch c {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return fmt.Errorf("reads.New: read %s has invalid base %q at offset %d", r.Name, c, i)
		}
	}
	if r.Token == 0 {
		r.Token = Token(r.Name, r.FirstInPair)
	}
	if r.RefID < 0 {
		if r.Start != -1 {
			return fmt.Errorf("reads.New: unmapped read %s has start position %d", r.Name, r.Start)
		}
		if r.Mismatches != nil {
			return fmt.Errorf("reads.New: unmapped read %s has a mismatch annotation", r.Name)
		}
		r.end = -1
		return nil
	}
	if r.Start < 0 {
		return fmt.Errorf("reads.New: read %s is mapped to %s but has no start position", r.Name, r.Contig)
	}
	span, err := validateCigar(r.Name, r.Cigar, len(r.Seq))
	if err != nil {
		return err
	}
	r.end = r.Start + PosType(span)
	return r.Mismatches.validate(r.Name, len(r.Seq))
}

// validateCigar checks that cigar only uses supported operations, that clips
// only appear at the ends, and that the query-consuming operations account
// for exactly readLen bases.  It returns the reference span.
func validateCigar(name string, cigar sam.Cigar, readLen int) (span int, err error) {
	if len(cigar) == 0 {
		return 0, fmt.Errorf("reads.New: mapped read %s has an empty CIGAR", name)
	}
	queryLen := 0
	for i, co := range cigar {
		n := co.Len()
		if n <= 0 {
			return 0, fmt.Errorf("reads.New: read %s has zero-length CIGAR operation %v", name, co)
		}
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			span += n
			queryLen += n
		case sam.CigarInsertion:
			queryLen += n
		case sam.CigarDeletion:
			span += n
		case sam.CigarSoftClipped:
			if !isEnd(cigar, i) {
				return 0, fmt.Errorf("reads.New: read %s has an interior soft clip in CIGAR %v", name, cigar)
			}
			queryLen += n
		case sam.CigarHardClipped:
			if i != 0 && i != len(cigar)-1 {
				return 0, fmt.Errorf("reads.New: read %s has an interior hard clip in CIGAR %v", name, cigar)
			}
		default:
			return 0, fmt.Errorf("reads.New: read %s has unsupported CIGAR operation %v", name, co)
		}
	}
	if queryLen != readLen {
		return 0, fmt.Errorf("reads.New: CIGAR %v of read %s covers %d bases, but the read has %d", cigar, name, queryLen, readLen)
	}
	if span == 0 {
		return 0, fmt.Errorf("reads.New: CIGAR %v of read %s does not consume any reference bases", cigar, name)
	}
	return span, nil
}

// isEnd returns whether cigar[i] is a terminal operation, ignoring hard clips.
func isEnd(cigar sam.Cigar, i int) bool {
	if i == 0 || i == len(cigar)-1 {
		return true
	}
	return (i == 1 && cigar[0].Type() == sam.CigarHardClipped) ||
		(i == len(cigar)-2 && cigar[len(cigar)-1].Type() == sam.CigarHardClipped)
}

// Mapped returns whether the read has an alignment.
func (r *Read) Mapped() bool {
	return r.RefID >= 0
}

// Usable returns whether the read should contribute to pileups: mapped, not
// a duplicate, and passing vendor QC.
func (r *Read) Usable() bool {
	return r.Mapped() && !r.Duplicate && !r.QCFail
}

// End returns 1 + the last reference position covered by the alignment, or
// -1 for unmapped reads.
func (r *Read) End() PosType {
	return r.end
}

// Span returns the number of reference positions covered by the alignment.
func (r *Read) Span() int {
	if !r.Mapped() {
		return 0
	}
	return int(r.end - r.Start)
}

// Covers returns whether the alignment spans locus l.
func (r *Read) Covers(l genome.Locus) bool {
	return r.RefID == l.RefID && r.Start <= l.Pos && l.Pos < r.end
}

// StartLocus returns the locus of the first aligned reference base.
func (r *Read) StartLocus() genome.Locus {
	return genome.Locus{RefID: r.RefID, Pos: r.Start}
}

// IsAbnormalInsertSize returns whether the read is part of a mapped pair
// whose inferred insert size lies outside [minSize, maxSize].
func (r *Read) IsAbnormalInsertSize(minSize, maxSize int) bool {
	if !r.Paired || r.Mate == nil || !r.Mapped() {
		return false
	}
	size := int(r.InsertSize)
	if size < 0 {
		size = -size
	}
	return size < minSize || size > maxSize
}

// SortByStart sorts reads by alignment start, breaking ties by token so the
// order is reproducible.  Unmapped reads sort last.
func SortByStart(rs []*Read) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		ai, bi := a.RefID, b.RefID
		if ai < 0 {
			ai = genome.PosTypeMax
		}
		if bi < 0 {
			bi = genome.PosTypeMax
		}
		if ai != bi {
			return ai < bi
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Token < b.Token
	})
}
