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
	"strings"
	"testing"

	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/pileup/somatic"
	"github.com/grailbio/testutil/expect"
)

func loc(refID int32, pos genome.PosType) genome.Locus {
	return genome.Locus{RefID: refID, Pos: pos}
}

func checkCovering(t *testing.T, ref *genome.Reference, parts []genome.LocusRange) {
	expect.EQ(t, parts[0].Start, loc(0, 0))
	expect.EQ(t, parts[len(parts)-1].Limit, ref.End())
	for i, p := range parts {
		expect.True(t, ref.Linear(p.Start) < ref.Linear(p.Limit), "part", i)
		if i > 0 {
			expect.EQ(t, p.Start, parts[i-1].Limit, "part", i)
		}
	}
}

func TestPartition(t *testing.T) {
	ref := newReference(t, []string{"chr1", "chr2", "chr3"},
		[]string{strings.Repeat("A", 100), strings.Repeat("C", 50), strings.Repeat("G", 30)})

	parts := somatic.Partition(ref, 4, nil)
	expect.EQ(t, parts, []genome.LocusRange{
		{Start: loc(0, 0), Limit: loc(0, 45)},
		{Start: loc(0, 45), Limit: loc(0, 90)},
		{Start: loc(0, 90), Limit: loc(1, 35)},
		{Start: loc(1, 35), Limit: loc(3, 0)},
	})
	checkCovering(t, ref, parts)

	parts = somatic.Partition(ref, 1000, nil)
	expect.EQ(t, len(parts), 180)
	checkCovering(t, ref, parts)

	parts = somatic.Partition(ref, 0, nil)
	expect.EQ(t, parts, []genome.LocusRange{{Start: loc(0, 0), Limit: ref.End()}})

	// Weighted boundaries follow the weights' quantiles, and collapse when
	// they coincide.
	parts = somatic.Partition(ref, 4, []int64{10, 10, 10, 10, 10, 10, 120, 160})
	expect.EQ(t, parts, []genome.LocusRange{
		{Start: loc(0, 0), Limit: loc(0, 10)},
		{Start: loc(0, 10), Limit: loc(1, 20)},
		{Start: loc(1, 20), Limit: loc(3, 0)},
	})
	checkCovering(t, ref, parts)

	empty, err := genome.NewReference(nil, nil)
	expect.NoError(t, err)
	expect.EQ(t, len(somatic.Partition(empty, 4, nil)), 0)
}

func TestPartitionIndex(t *testing.T) {
	ref := newReference(t, []string{"chr1", "chr2", "chr3"},
		[]string{strings.Repeat("A", 100), strings.Repeat("C", 50), strings.Repeat("G", 30)})
	parts := somatic.Partition(ref, 4, nil)
	x := somatic.NewPartitionIndex(parts)
	expect.EQ(t, x.Len(), 4)
	for _, tt := range []struct {
		l    genome.Locus
		want int
	}{
		{loc(0, 0), 0},
		{loc(0, 44), 0},
		{loc(0, 45), 1},
		{loc(0, 99), 2},
		{loc(1, 0), 2},
		{loc(1, 35), 3},
		{loc(2, 29), 3},
		{loc(3, 0), -1},
	} {
		expect.EQ(t, x.Find(tt.l), tt.want, "locus", tt.l)
	}

	overlapping := func(start, limit genome.Locus) []int {
		var out []int
		x.Overlapping(genome.LocusRange{Start: start, Limit: limit}, func(i int) { out = append(out, i) })
		return out
	}
	expect.EQ(t, overlapping(loc(0, 40), loc(0, 46)), []int{0, 1})
	expect.EQ(t, overlapping(loc(0, 45), loc(0, 46)), []int{1})
	expect.EQ(t, overlapping(loc(0, 10), loc(2, 5)), []int{0, 1, 2, 3})
	expect.EQ(t, overlapping(loc(1, 10), loc(1, 20)), []int{2})
	expect.EQ(t, len(overlapping(loc(1, 10), loc(1, 10))), 0)
}
