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

// Package genotype computes diploid genotype likelihoods for a pileup.
package genotype

import (
	"github.com/grailbio/somatic/pileup"
)

// Genotype is an unordered pair of alleles.  New normalizes the pair so that
// A1 <= A2 in canonical allele order, which makes == genotype identity.
type Genotype struct {
	A1, A2 pileup.Allele
}

// New returns the genotype {a, b}.
func New(a, b pileup.Allele) Genotype {
	if b.Compare(a) < 0 {
		a, b = b, a
	}
	return Genotype{A1: a, A2: b}
}

// HasVariantAllele returns whether either allele differs from the reference.
func (g Genotype) HasVariantAllele() bool {
	return g.A1.IsVariant() || g.A2.IsVariant()
}

// IsHomozygous returns whether both alleles are the same.
func (g Genotype) IsHomozygous() bool {
	return g.A1 == g.A2
}

// NonReferenceAlleles returns the distinct variant alleles of g, in
// canonical order.
func (g Genotype) NonReferenceAlleles() []pileup.Allele {
	var out []pileup.Allele
	if g.A1.IsVariant() {
		out = append(out, g.A1)
	}
	if g.A2.IsVariant() && g.A2 != g.A1 {
		out = append(out, g.A2)
	}
	return out
}

// Compare orders genotypes by their first, then second allele.
func (g Genotype) Compare(h Genotype) int {
	if c := g.A1.Compare(h.A1); c != 0 {
		return c
	}
	return g.A2.Compare(h.A2)
}

func (g Genotype) String() string {
	return g.A1.String() + "/" + g.A2.String()
}

// Enumerate returns every genotype over the reference allele and the alleles
// observed in p, in canonical order: for alleles a[0] < a[1] < ..., the
// genotypes are {a[i], a[j]} for i <= j, sorted by (i, j).
func Enumerate(p *pileup.Pileup) []Genotype {
	ref := p.RefAllele()
	alleles := []pileup.Allele{ref}
	for _, a := range p.DistinctAlleles() {
		if a != ref {
			alleles = append(alleles, a)
		}
	}
	// DistinctAlleles is sorted, and the reference allele sorts first.
	gs := make([]Genotype, 0, len(alleles)*(len(alleles)+1)/2)
	for i := range alleles {
		for j := i; j < len(alleles); j++ {
			gs = append(gs, Genotype{A1: alleles[i], A2: alleles[j]})
		}
	}
	return gs
}
