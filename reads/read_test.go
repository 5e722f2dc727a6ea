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

package reads_test

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/reads"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func op(t sam.CigarOpType, n int) sam.CigarOp {
	return sam.NewCigarOp(t, n)
}

func mapped(name, seq string, start reads.PosType, cigar ...sam.CigarOp) reads.Read {
	qual := make([]byte, len(seq))
	for i := range qual {
		qual[i] = 30
	}
	return reads.Read{
		Name:   name,
		Seq:    []byte(seq),
		Qual:   qual,
		Sample: "tumor",
		Contig: "chr1",
		RefID:  0,
		Start:  start,
		MapQ:   60,
		Cigar:  cigar,
	}
}

func TestNewValid(t *testing.T) {
	r, err := reads.New(mapped("r1", "ACGTACGT", 10,
		op(sam.CigarSoftClipped, 2), op(sam.CigarMatch, 3), op(sam.CigarInsertion, 1),
		op(sam.CigarDeletion, 4), op(sam.CigarMatch, 2), op(sam.CigarHardClipped, 5)))
	assert.NoError(t, err)
	expect.EQ(t, r.End(), reads.PosType(19))
	expect.EQ(t, r.Span(), 9)
	expect.True(t, r.Usable())
	expect.NEQ(t, r.Token, uint64(0))
	expect.EQ(t, r.Token, reads.Token("r1", false))
	expect.True(t, r.Covers(genome.Locus{RefID: 0, Pos: 18}))
	expect.False(t, r.Covers(genome.Locus{RefID: 0, Pos: 19}))
	expect.False(t, r.Covers(genome.Locus{RefID: 1, Pos: 12}))
}

func TestTokenDistinguishesMates(t *testing.T) {
	expect.NEQ(t, reads.Token("pair", true), reads.Token("pair", false))
	expect.EQ(t, reads.Token("pair", true), reads.Token("pair", true))
}

func TestNewMalformed(t *testing.T) {
	tests := []struct {
		name   string
		read   reads.Read
		errStr string
	}{
		{
			"cigar too short",
			mapped("a", "ACGT", 0, op(sam.CigarMatch, 3)),
			"covers 3 bases",
		},
		{
			"no start",
			mapped("b", "ACGT", -1, op(sam.CigarMatch, 4)),
			"no start position",
		},
		{
			"empty cigar",
			mapped("c", "ACGT", 5),
			"empty CIGAR",
		},
		{
			"skip op",
			mapped("d", "ACGT", 5, op(sam.CigarMatch, 2), op(sam.CigarSkipped, 100), op(sam.CigarMatch, 2)),
			"unsupported CIGAR",
		},
		{
			"interior clip",
			mapped("e", "ACGT", 5, op(sam.CigarMatch, 2), op(sam.CigarSoftClipped, 1), op(sam.CigarMatch, 1)),
			"interior soft clip",
		},
		{
			"bad base",
			mapped("f", "ACxT", 5, op(sam.CigarMatch, 4)),
			"invalid base",
		},
	}
	for _, test := range tests {
		_, err := reads.New(test.read)
		expect.HasSubstr(t, err, test.errStr, test.name)
	}

	r := mapped("g", "ACGT", 0, op(sam.CigarMatch, 4))
	r.Qual = r.Qual[:3]
	_, err := reads.New(r)
	expect.HasSubstr(t, err, "quality scores")

	r = mapped("h", "ACGT", 0, op(sam.CigarMatch, 4))
	r.Mismatches = reads.Mismatches{{Offset: 4, RefBase: 'A'}}
	_, err = reads.New(r)
	expect.HasSubstr(t, err, "outside")

	r = mapped("i", "ACGT", 0, op(sam.CigarMatch, 4))
	r.RefID = genome.InvalidRefID
	_, err = reads.New(r)
	expect.HasSubstr(t, err, "unmapped read i has start position")
}

func TestUnmapped(t *testing.T) {
	r, err := reads.New(reads.Read{
		Name:  "u",
		Seq:   []byte("ACGT"),
		Qual:  []byte{10, 20, 30, 40},
		RefID: genome.InvalidRefID,
		Start: -1,
	})
	assert.NoError(t, err)
	expect.False(t, r.Mapped())
	expect.False(t, r.Usable())
	expect.EQ(t, r.Span(), 0)
}

func TestUsable(t *testing.T) {
	r := mapped("dup", "ACGT", 0, op(sam.CigarMatch, 4))
	r.Duplicate = true
	rd, err := reads.New(r)
	assert.NoError(t, err)
	expect.False(t, rd.Usable())

	r = mapped("qc", "ACGT", 0, op(sam.CigarMatch, 4))
	r.QCFail = true
	rd, err = reads.New(r)
	assert.NoError(t, err)
	expect.False(t, rd.Usable())
}

func TestMismatchLookup(t *testing.T) {
	m := reads.Mismatches{{Offset: 1, RefBase: 'A'}, {Offset: 7, RefBase: 'G'}}
	b, ok := m.Lookup(7)
	expect.True(t, ok)
	expect.EQ(t, b, byte('G'))
	_, ok = m.Lookup(2)
	expect.False(t, ok)
	_, ok = reads.Mismatches(nil).Lookup(0)
	expect.False(t, ok)
}

func TestAbnormalInsertSize(t *testing.T) {
	r := mapped("p", "ACGT", 0, op(sam.CigarMatch, 4))
	r.Paired = true
	r.InsertSize = -2000
	r.Mate = &reads.Mate{Contig: "chr1", RefID: 0, Start: 1996}
	rd, err := reads.New(r)
	assert.NoError(t, err)
	expect.True(t, rd.IsAbnormalInsertSize(5, 1000))
	expect.False(t, rd.IsAbnormalInsertSize(5, 5000))

	r.Mate = nil
	rd, err = reads.New(r)
	assert.NoError(t, err)
	expect.False(t, rd.IsAbnormalInsertSize(5, 1000))
}

func TestSortByStart(t *testing.T) {
	var rs []*reads.Read
	for _, x := range []struct {
		name  string
		refID int32
		start reads.PosType
	}{{"c", 1, 0}, {"a", 0, 9}, {"u", -1, -1}, {"b", 0, 3}} {
		r := mapped(x.name, "ACGT", x.start, op(sam.CigarMatch, 4))
		r.RefID = x.refID
		if x.refID < 0 {
			r.Cigar = nil
		}
		rd, err := reads.New(r)
		assert.NoError(t, err)
		rs = append(rs, rd)
	}
	reads.SortByStart(rs)
	var names []string
	for _, r := range rs {
		names = append(names, r.Name)
	}
	expect.EQ(t, names, []string{"b", "a", "c", "u"})
}
