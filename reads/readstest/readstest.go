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

// Package readstest builds reads.Read fixtures for tests.
package readstest

import (
	"strconv"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/somatic/reads"
	"github.com/grailbio/testutil/assert"
)

// Option modifies a read before validation.
type Option func(r *reads.Read)

// MapQ sets the mapping quality.
func MapQ(q byte) Option { return func(r *reads.Read) { r.MapQ = q } }

// Qual sets every base quality to q.
func Qual(q byte) Option {
	return func(r *reads.Read) {
		for i := range r.Qual {
			r.Qual[i] = q
		}
	}
}

// Sample sets the sample name.
func Sample(s string) Option { return func(r *reads.Read) { r.Sample = s } }

// Contig sets the contig name.
func Contig(name string) Option { return func(r *reads.Read) { r.Contig = name } }

// Mismatches attaches a mismatch annotation.
func Mismatches(m reads.Mismatches) Option { return func(r *reads.Read) { r.Mismatches = m } }

// Reverse marks the read as aligned to the reverse strand.
func Reverse() Option { return func(r *reads.Read) { r.Reverse = true } }

// Duplicate marks the read as a duplicate.
func Duplicate() Option { return func(r *reads.Read) { r.Duplicate = true } }

// Pair marks the read as the first of a pair whose mate is mapped at
// mateStart on the same contig, with the given insert size.
func Pair(insertSize int32, mateStart reads.PosType) Option {
	return func(r *reads.Read) {
		r.Paired = true
		r.FirstInPair = true
		r.InsertSize = insertSize
		r.Mate = &reads.Mate{Contig: r.Contig, RefID: r.RefID, Start: mateStart}
	}
}

// New returns a validated read mapped at (refID, start) with the given bases
// and CIGAR string.  Unless overridden, all base qualities are 30 and the
// mapping quality is 60.
func New(t testing.TB, name string, refID int32, start int, seq, cigar string, opts ...Option) *reads.Read {
	c, err := sam.ParseCigar([]byte(cigar))
	assert.NoError(t, err, cigar)
	qual := make([]byte, len(seq))
	for i := range qual {
		qual[i] = 30
	}
	r := reads.Read{
		Name:   name,
		Seq:    []byte(seq),
		Qual:   qual,
		RefID:  refID,
		Start:  reads.PosType(start),
		MapQ:   60,
		Cigar:  c,
		Sample: "sample",
	}
	for _, opt := range opts {
		opt(&r)
	}
	out, err := reads.New(r)
	assert.NoError(t, err, name)
	return out
}

// Simple returns a read whose bases all align as matches.
func Simple(t testing.TB, name string, refID int32, start int, seq string, opts ...Option) *reads.Read {
	return New(t, name, refID, start, seq, strconv.Itoa(len(seq))+"M", opts...)
}
