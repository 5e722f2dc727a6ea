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

package pileup_test

import (
	"testing"

	"github.com/grailbio/somatic/pileup"
	"github.com/grailbio/somatic/reads"
	"github.com/grailbio/somatic/reads/readstest"
	"github.com/grailbio/testutil/expect"
)

func TestApplyFilters(t *testing.T) {
	ref := testReference(t)
	build := func(rs ...*reads.Read) pileup.Pileup {
		return pileup.Build(rs, locus(5), "s", ref)
	}
	noop := pileup.FilterOpts{MaxMappingComplexity: 100, MaxPercentAbnormalInsertSize: 100}

	t.Run("multiallelic", func(t *testing.T) {
		p := build(
			readstest.Simple(t, "a", 0, 4, "ACGT"),
			readstest.Simple(t, "b", 0, 4, "AGGT"),
			readstest.Simple(t, "c", 0, 4, "ATGT"),
		)
		opts := noop
		expect.EQ(t, pileup.ApplyFilters(p, &opts).Depth(), 3)
		opts.FilterMultiAllelic = true
		expect.EQ(t, pileup.ApplyFilters(p, &opts).Depth(), 0)

		p = build(
			readstest.Simple(t, "a", 0, 4, "ACGT"),
			readstest.Simple(t, "b", 0, 4, "AGGT"),
			readstest.Simple(t, "c", 0, 4, "AGGT"),
		)
		expect.EQ(t, pileup.ApplyFilters(p, &opts).Depth(), 3)
	})

	t.Run("alignment quality", func(t *testing.T) {
		p := build(
			readstest.Simple(t, "a", 0, 4, "ACGT", readstest.MapQ(0)),
			readstest.Simple(t, "b", 0, 4, "ACGT", readstest.MapQ(5)),
			readstest.Simple(t, "c", 0, 4, "ACGT", readstest.MapQ(30)),
		)
		opts := noop
		opts.MinAlignmentQuality = 10
		expect.EQ(t, pileup.ApplyFilters(p, &opts).Depth(), 1)
	})

	t.Run("mapping complexity", func(t *testing.T) {
		var rs []*reads.Read
		for i := 0; i < 10; i++ {
			q := byte(60)
			if i < 3 {
				q = 0
			}
			rs = append(rs, readstest.Simple(t, "r", 0, 4, "ACGT", readstest.MapQ(q)))
		}
		p := build(rs...)
		opts := noop
		opts.MaxMappingComplexity = 30
		expect.EQ(t, pileup.ApplyFilters(p, &opts).Depth(), 10)
		opts.MaxMappingComplexity = 29
		expect.EQ(t, pileup.ApplyFilters(p, &opts).Depth(), 0)
	})

	t.Run("edge distance", func(t *testing.T) {
		p := build(
			readstest.Simple(t, "a", 0, 5, "CGTACG"),
			readstest.Simple(t, "b", 0, 3, "TACGTA"),
			readstest.Simple(t, "c", 0, 0, "ACGTACG"),
		)
		opts := noop
		opts.MinEdgeDistance = 2
		got := pileup.ApplyFilters(p, &opts)
		expect.EQ(t, got.Depth(), 1)
		expect.EQ(t, got.Elements[0].Read.Start, reads.PosType(3))
	})

	t.Run("abnormal insert size", func(t *testing.T) {
		p := build(
			readstest.Simple(t, "a", 0, 4, "ACGT", readstest.Pair(2000, 1900)),
			readstest.Simple(t, "b", 0, 4, "ACGT", readstest.Pair(300, 200)),
			readstest.Simple(t, "c", 0, 4, "ACGT"),
			readstest.Simple(t, "d", 0, 4, "ACGT"),
		)
		opts := noop
		opts.MinInsertSize, opts.MaxInsertSize = 5, 1000
		opts.MaxPercentAbnormalInsertSize = 25
		expect.EQ(t, pileup.ApplyFilters(p, &opts).Depth(), 4)
		opts.MaxPercentAbnormalInsertSize = 24
		expect.EQ(t, pileup.ApplyFilters(p, &opts).Depth(), 0)
	})

	t.Run("defaults", func(t *testing.T) {
		p := build(readstest.Simple(t, "a", 0, 4, "ACGT"))
		expect.EQ(t, pileup.ApplyFilters(p, &pileup.DefaultFilterOpts).Depth(), 1)
		empty := build()
		expect.EQ(t, pileup.ApplyFilters(empty, &pileup.DefaultFilterOpts).Depth(), 0)
	})
}
