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

package somatic_test

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/pileup"
	"github.com/grailbio/somatic/pileup/somatic"
	"github.com/grailbio/somatic/reads"
	"github.com/grailbio/somatic/reads/readstest"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const bases = "ACGT"

// altBase returns a base different from b.
func altBase(b byte) byte {
	return bases[(strings.IndexByte(bases, b)+1)%4]
}

func randomSeq(rnd *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = bases[rnd.Intn(4)]
	}
	return string(b)
}

// mutate returns seq with the bases at the given offsets replaced by
// altBase.
func mutate(seq string, offsets ...int) string {
	b := []byte(seq)
	for _, off := range offsets {
		b[off] = altBase(b[off])
	}
	return string(b)
}

func newReference(t *testing.T, names []string, seqs []string) *genome.Reference {
	bs := make([][]byte, len(seqs))
	for i, s := range seqs {
		bs[i] = []byte(s)
	}
	ref, err := genome.NewReference(names, bs)
	assert.NoError(t, err)
	return ref
}

func testOpts() somatic.Opts {
	opts := somatic.DefaultOpts
	opts.Parallelism = 1
	return opts
}

func run(t *testing.T, ref *genome.Reference, tumor, normal []*reads.Read, opts somatic.Opts) []somatic.CalledSomaticAllele {
	calls, err := somatic.Run(vcontext.Background(), ref, tumor, normal, &opts)
	assert.NoError(t, err)
	return calls
}

func TestSingleSNV(t *testing.T) {
	ref := newReference(t, []string{"artificial"}, []string{strings.Repeat("A", 70)})
	seq := strings.Repeat("A", 30)
	tumor := []*reads.Read{readstest.Simple(t, "r1", 0, 5, mutate(seq, 10))}
	normal := []*reads.Read{readstest.Simple(t, "r1", 0, 5, seq)}

	calls := run(t, ref, tumor, normal, testOpts())
	assert.EQ(t, len(calls), 1)
	c := calls[0]
	expect.EQ(t, c.Locus, genome.Locus{RefID: 0, Pos: 15})
	expect.EQ(t, c.Contig, "artificial")
	expect.EQ(t, c.Sample, "tumor")
	expect.EQ(t, c.Allele, pileup.Allele{Kind: pileup.Substitution, Ref: "A", Alt: "C"})
	expect.EQ(t, c.LogOdds, somatic.MaxLogOdds)
	expect.True(t, c.Tumor.Likelihood > 0.5)
	expect.EQ(t, c.Tumor.ReadDepth, 1)
	expect.EQ(t, c.Tumor.AlleleReadDepth, 1)
	expect.EQ(t, c.Tumor.AlleleForwardDepth, 1)
	expect.EQ(t, c.Tumor.MeanMappingQuality, 60.0)
	expect.EQ(t, c.Tumor.MedianBaseQuality, 30.0)
	expect.EQ(t, c.Normal.ReadDepth, 1)
	expect.EQ(t, c.Normal.AlleleReadDepth, 0)
	expect.EQ(t, c.Normal.Likelihood, 0.0)
	expect.EQ(t, c.End(), genome.Locus{RefID: 0, Pos: 16})
}

func TestIdenticalSamplesNoCall(t *testing.T) {
	rnd := rand.New(rand.NewSource(0))
	refSeq := randomSeq(rnd, 400)
	ref := newReference(t, []string{"chr1"}, []string{refSeq})
	var rs []*reads.Read
	for i := 0; i < 300; i++ {
		start := rnd.Intn(360)
		seq := refSeq[start : start+40]
		// Variant sites at a range of allele fractions, plus scattered errors.
		var offs []int
		for _, pos := range []int{100, 181, 250, 331} {
			if pos >= start && pos < start+40 && rnd.Intn(4) < pos%4+1 {
				offs = append(offs, pos-start)
			}
		}
		if rnd.Intn(10) == 0 {
			offs = append(offs, rnd.Intn(40))
		}
		rs = append(rs, readstest.Simple(t, "r"+strconv.Itoa(i), 0, start, mutate(seq, offs...),
			readstest.MapQ(byte(20+rnd.Intn(41)))))
	}
	calls := run(t, ref, rs, rs, testOpts())
	expect.EQ(t, len(calls), 0)

	// The same holds per locus, before the correlation filter.
	opts := testOpts()
	for pos := 0; pos < len(refSeq); pos++ {
		l := genome.Locus{RefID: 0, Pos: genome.PosType(pos)}
		_, ok := somatic.Call(pileup.Build(rs, l, "tumor", ref), pileup.Build(rs, l, "normal", ref), &opts)
		expect.False(t, ok, "pos", pos)
	}
}

// substitutionReads returns tumor and normal reads over refSeq (placed at
// offset pad of contig refID), identical except for substitutions at 16, 17
// and 18 in the tumor reads.  The reads are soft-clipped and carry no
// mismatch annotation.
func substitutionReads(t *testing.T, refID int32, pad int, refSeq string) (tumor, normal []*reads.Read) {
	for i, rd := range []struct {
		start int
		clipL int
		n     int
		clipR int
	}{
		{5, 3, 30, 0},
		{8, 0, 25, 4},
		{2, 2, 20, 2},
		{10, 0, 30, 0},
	} {
		cigar := strconv.Itoa(rd.n) + "M"
		if rd.clipL > 0 {
			cigar = strconv.Itoa(rd.clipL) + "S" + cigar
		}
		if rd.clipR > 0 {
			cigar += strconv.Itoa(rd.clipR) + "S"
		}
		aligned := refSeq[rd.start : rd.start+rd.n]
		var offs []int
		for pos := 16; pos <= 18; pos++ {
			if pos >= rd.start && pos < rd.start+rd.n {
				offs = append(offs, pos-rd.start)
			}
		}
		name := "r" + strconv.Itoa(i)
		clipL, clipR := strings.Repeat("G", rd.clipL), strings.Repeat("T", rd.clipR)
		tumor = append(tumor, readstest.New(t, name, refID, pad+rd.start, clipL+mutate(aligned, offs...)+clipR, cigar))
		normal = append(normal, readstest.New(t, name, refID, pad+rd.start, clipL+aligned+clipR, cigar))
	}
	return
}

func TestMultipleSubstitutionsWithoutAnnotation(t *testing.T) {
	refSeq := randomSeq(rand.New(rand.NewSource(1)), 101)
	ref := newReference(t, []string{"chr1"}, []string{refSeq})
	tumor, normal := substitutionReads(t, 0, 0, refSeq)
	for _, r := range tumor {
		assert.True(t, r.Mismatches == nil)
	}

	opts := testOpts()
	opts.WindowHalfWidth = 0
	calls := run(t, ref, tumor, normal, opts)
	assert.EQ(t, len(calls), 3)
	for i, c := range calls {
		pos := 16 + i
		expect.EQ(t, c.Locus, genome.Locus{RefID: 0, Pos: genome.PosType(pos)})
		expect.EQ(t, c.Allele.Kind, pileup.Substitution)
		expect.EQ(t, c.Allele.Ref, refSeq[pos:pos+1])
		expect.EQ(t, c.Allele.Alt, string([]byte{altBase(refSeq[pos])}))
	}

	// Adjacent calls suppress each other under the default window.
	expect.EQ(t, len(run(t, ref, tumor, normal, testOpts())), 0)
}

func TestMultiContigIsolation(t *testing.T) {
	refSeq := randomSeq(rand.New(rand.NewSource(1)), 101)
	opts := testOpts()
	opts.WindowHalfWidth = 0
	t0, n0 := substitutionReads(t, 0, 0, refSeq)
	single := run(t, newReference(t, []string{"chr1"}, []string{refSeq}), t0, n0, opts)
	assert.EQ(t, len(single), 3)

	var names, seqs []string
	var tumor, normal []*reads.Read
	for i := 0; i < 4; i++ {
		pad := 7 * i
		names = append(names, "c"+strconv.Itoa(i))
		seqs = append(seqs, strings.Repeat("C", pad)+refSeq+strings.Repeat("G", 3-i))
		t1, n1 := substitutionReads(t, int32(i), pad, refSeq)
		tumor = append(tumor, t1...)
		normal = append(normal, n1...)
	}
	ref := newReference(t, names, seqs)
	opts.Parallelism = 2
	opts.Partitions = 4
	calls := run(t, ref, tumor, normal, opts)
	assert.EQ(t, len(calls), 12)
	for i := 0; i < 4; i++ {
		for j, want := range single {
			want.Contig = names[i]
			want.Locus = genome.Locus{RefID: int32(i), Pos: want.Locus.Pos + genome.PosType(7*i)}
			expect.EQ(t, calls[3*i+j], want)
		}
	}
}

func TestOddsMonotonicity(t *testing.T) {
	ref := newReference(t, []string{"artificial"}, []string{strings.Repeat("A", 10)})
	l := genome.Locus{RefID: 0, Pos: 4}
	build := func(n, nAlt int) pileup.Pileup {
		var rs []*reads.Read
		for i := 0; i < n; i++ {
			seq := "AAAAA"
			if i < nAlt {
				seq = "AATAA"
			}
			rs = append(rs, readstest.Simple(t, "r"+strconv.Itoa(i), 0, 2, seq))
		}
		return pileup.Build(rs, l, "", ref)
	}
	opts := testOpts()
	opts.OddsThreshold = math.MinInt32
	tumor := build(10, 6)
	prev := math.Inf(1)
	for k := 0; k <= 20; k++ {
		c, ok := somatic.Call(tumor, build(20, k), &opts)
		assert.True(t, ok, "k", k)
		expect.True(t, c.LogOdds <= prev, "k", k, "logodds", c.LogOdds, "prev", prev)
		if k == 0 {
			expect.EQ(t, c.LogOdds, somatic.MaxLogOdds)
		}
		prev = c.LogOdds
	}
	expect.True(t, prev*100 < float64(somatic.DefaultOpts.OddsThreshold))
}

func TestCallNoCall(t *testing.T) {
	ref := newReference(t, []string{"artificial"}, []string{strings.Repeat("A", 10)})
	l := genome.Locus{RefID: 0, Pos: 4}
	build := func(seqs ...string) pileup.Pileup {
		var rs []*reads.Read
		for i, seq := range seqs {
			rs = append(rs, readstest.Simple(t, "r"+strconv.Itoa(i), 0, 2, seq))
		}
		return pileup.Build(rs, l, "", ref)
	}
	alt := build("AATAA", "AATAA", "AATAA")
	opts := testOpts()

	_, ok := somatic.Call(alt, build("AAAAA"), &opts)
	expect.True(t, ok)
	// Empty normal.
	_, ok = somatic.Call(alt, build(), &opts)
	expect.False(t, ok)
	// No alternate evidence in the tumor.
	_, ok = somatic.Call(build("AAAAA", "AAAAA"), build("AAAAA"), &opts)
	expect.False(t, ok)
	// Too deep.
	opts.MaxTumorDepth = 2
	_, ok = somatic.Call(alt, build("AAAAA"), &opts)
	expect.False(t, ok)
	opts = testOpts()
	opts.MaxNormalDepth = 0
	_, ok = somatic.Call(alt, build("AAAAA"), &opts)
	expect.False(t, ok)
	// Most likely tumor genotype is homozygous reference.
	opts = testOpts()
	_, ok = somatic.Call(build("AATAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA",
		"AAAAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA"),
		build("AAAAA"), &opts)
	expect.False(t, ok)
	// Normal variant support below the threshold.
	_, ok = somatic.Call(alt, build("AATAA", "AATAA", "AAAAA"), &opts)
	expect.False(t, ok)
	// Pre-filters: all tumor reads below the minimum mapping quality.
	opts.TumorFilter.MinAlignmentQuality = 61
	_, ok = somatic.Call(alt, build("AAAAA"), &opts)
	expect.False(t, ok)
}

func TestDeletionCall(t *testing.T) {
	refSeq := randomSeq(rand.New(rand.NewSource(2)), 80)
	ref := newReference(t, []string{"chr1"}, []string{refSeq})
	var tumor, normal []*reads.Read
	for i := 0; i < 4; i++ {
		name := "r" + strconv.Itoa(i)
		tumor = append(tumor, readstest.New(t, name, 0, 20, refSeq[20:30]+refSeq[33:43], "10M3D10M"))
		normal = append(normal, readstest.Simple(t, name, 0, 20, refSeq[20:43]))
	}
	calls := run(t, ref, tumor, normal, testOpts())
	assert.EQ(t, len(calls), 1)
	c := calls[0]
	expect.EQ(t, c.Locus, genome.Locus{RefID: 0, Pos: 29})
	expect.EQ(t, c.Allele, pileup.Allele{Kind: pileup.Deletion, Ref: refSeq[29:33], Alt: refSeq[29:30]})
	expect.EQ(t, c.End(), genome.Locus{RefID: 0, Pos: 33})
}
