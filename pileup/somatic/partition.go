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
package somatic

import (
	"github.com/biogo/store/llrb"
	"github.com/grailbio/somatic/genome"
)

// Partition splits the genome of ref into at most n contiguous, disjoint
// ranges which together cover it, in ascending order.
//
// If weights is nonempty, it must hold sorted linear coordinates (see
// genome.Reference.Linear), usually read starts; boundaries are then placed
// at its quantiles so that each range gets a similar share.  Otherwise the
// genome is split into ranges of similar length.  Duplicate boundaries are
// merged, so fewer than n ranges may be returned.
func Partition(ref *genome.Reference, n int, weights []int64) []genome.LocusRange {
	total := ref.TotalLen()
	if total == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	bounds := []int64{0}
	for k := 1; k < n; k++ {
		var b int64
		if len(weights) > 0 {
			b = weights[(k*len(weights))/n]
		} else {
			b = (int64(k) * total) / int64(n)
		}
		if b > bounds[len(bounds)-1] && b < total {
			bounds = append(bounds, b)
		}
	}
	bounds = append(bounds, total)

	parts := make([]genome.LocusRange, len(bounds)-1)
	for i := range parts {
		parts[i] = genome.LocusRange{
			Start: ref.Delinearize(bounds[i]),
			Limit: ref.Delinearize(bounds[i+1]),
		}
	}
	return parts
}

// partitionKey orders partitions by their start locus in llrb.
type partitionKey struct {
	start genome.Locus
	index int
}

// Compare implements llrb.Comparable.
func (k partitionKey) Compare(c llrb.Comparable) int {
	return k.start.Compare(c.(partitionKey).start)
}

// PartitionIndex maps loci to the partitions returned by Partition.
type PartitionIndex struct {
	parts []genome.LocusRange
	tree  llrb.Tree
}

// NewPartitionIndex indexes parts, which must be disjoint and sorted.
func NewPartitionIndex(parts []genome.LocusRange) *PartitionIndex {
	x := &PartitionIndex{parts: parts}
	for i, p := range parts {
		x.tree.Insert(partitionKey{start: p.Start, index: i})
	}
	return x
}

// Len returns the number of partitions.
func (x *PartitionIndex) Len() int {
	return len(x.parts)
}

// Find returns the index of the partition containing l, or -1 if there is
// none.
func (x *PartitionIndex) Find(l genome.Locus) int {
	c := x.tree.Floor(partitionKey{start: l})
	if c == nil {
		return -1
	}
	i := c.(partitionKey).index
	if !x.parts[i].Contains(l) {
		return -1
	}
	return i
}

// Overlapping calls fn with the index of each partition intersecting r, in
// ascending order.
func (x *PartitionIndex) Overlapping(r genome.LocusRange, fn func(i int)) {
	if !r.Start.LT(r.Limit) {
		return
	}
	i := 0
	if c := x.tree.Floor(partitionKey{start: r.Start}); c != nil {
		i = c.(partitionKey).index
	}
	for ; i < len(x.parts) && x.parts[i].Start.LT(r.Limit); i++ {
		if x.parts[i].Intersects(r) {
			fn(i)
		}
	}
}
