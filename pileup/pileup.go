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

// Package pileup reconstructs, for one sample at one locus, the set of read
// observations overlapping that locus.
package pileup

import (
	"sort"

	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/reads"
)

// Pileup is the collection of elements overlapping one locus in one sample.
// A pileup with no elements is valid and means nothing can be called there.
type Pileup struct {
	Locus    genome.Locus
	Sample   string
	RefBase  byte
	Elements []Element
}

// Build constructs the pileup at l from scratch by scanning rs.  Every read
// covering l contributes exactly one element, in the order of rs; the caller
// is responsible for excluding unusable reads (see reads.Read.Usable).
func Build(rs []*reads.Read, l genome.Locus, sample string, ref *genome.Reference) Pileup {
	p := Pileup{Locus: l, Sample: sample, RefBase: ref.Base(l)}
	for _, r := range rs {
		if e, ok := newElement(r, l, ref); ok {
			p.Elements = append(p.Elements, e)
		}
	}
	return p
}

// Depth is the number of elements.
func (p Pileup) Depth() int {
	return len(p.Elements)
}

// ReferenceDepth is the number of elements matching the reference.
func (p *Pileup) ReferenceDepth() int {
	n := 0
	for i := range p.Elements {
		if p.Elements[i].IsMatch() {
			n++
		}
	}
	return n
}

// RefAllele returns the reference allele at the pileup's locus.
func (p *Pileup) RefAllele() Allele {
	return RefAllele(p.RefBase)
}

// DistinctAlleles returns the alleles observed in the pileup, without
// duplicates, in canonical order (so the reference allele, if observed, is
// first).
func (p *Pileup) DistinctAlleles() []Allele {
	seen := make(map[Allele]struct{}, 4)
	var alleles []Allele
	for i := range p.Elements {
		a := p.Elements[i].Allele
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		alleles = append(alleles, a)
	}
	sort.Slice(alleles, func(i, j int) bool { return alleles[i].Compare(alleles[j]) < 0 })
	return alleles
}

// Filter returns a pileup holding only the elements for which keep returns
// true.  p is not modified.
func (p *Pileup) Filter(keep func(e *Element) bool) Pileup {
	out := Pileup{Locus: p.Locus, Sample: p.Sample, RefBase: p.RefBase}
	for i := range p.Elements {
		if keep(&p.Elements[i]) {
			out.Elements = append(out.Elements, p.Elements[i])
		}
	}
	return out
}

// Empty returns a pileup at the same locus with no elements.
func (p *Pileup) Empty() Pileup {
	return Pileup{Locus: p.Locus, Sample: p.Sample, RefBase: p.RefBase}
}
