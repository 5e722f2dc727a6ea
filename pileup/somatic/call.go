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
	"fmt"
	"sort"

	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/pileup"
)

// AlleleEvidence summarizes the support for one allele in one sample's
// pileup.
type AlleleEvidence struct {
	// Likelihood is the tumor's maximum genotype likelihood, or the normal's
	// summed variant-genotype likelihood.
	Likelihood float64
	// ReadDepth is the number of elements in the (filtered) pileup, and
	// AlleleReadDepth the number supporting the allele.
	ReadDepth       int
	AlleleReadDepth int
	// ForwardDepth and AlleleForwardDepth are the same counts restricted to
	// forward-strand reads.
	ForwardDepth       int
	AlleleForwardDepth int
	// The quality summaries are over the elements supporting the allele, and
	// are zero when there are none.
	MeanMappingQuality   float64
	MedianMappingQuality float64
	MeanBaseQuality      float64
	MedianBaseQuality    float64
}

// newAlleleEvidence summarizes p's support for allele a.
func newAlleleEvidence(p *pileup.Pileup, a pileup.Allele, likelihood float64) AlleleEvidence {
	ev := AlleleEvidence{Likelihood: likelihood, ReadDepth: p.Depth()}
	var mapqs, quals []int
	for i := range p.Elements {
		e := &p.Elements[i]
		fwd := e.Strand() == pileup.StrandFwd
		if fwd {
			ev.ForwardDepth++
		}
		if e.Allele != a {
			continue
		}
		ev.AlleleReadDepth++
		if fwd {
			ev.AlleleForwardDepth++
		}
		mapqs = append(mapqs, int(e.Read.MapQ))
		quals = append(quals, int(e.Qual))
	}
	ev.MeanMappingQuality, ev.MedianMappingQuality = meanMedian(mapqs)
	ev.MeanBaseQuality, ev.MedianBaseQuality = meanMedian(quals)
	return ev
}

// meanMedian returns the mean and median of xs, sorting xs in the process.
// The median of an even-length slice is the mean of the middle two values.
func meanMedian(xs []int) (mean, median float64) {
	n := len(xs)
	if n == 0 {
		return 0, 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	sort.Ints(xs)
	if n%2 == 1 {
		median = float64(xs[n/2])
	} else {
		median = float64(xs[n/2-1]+xs[n/2]) / 2
	}
	return float64(sum) / float64(n), median
}

// CalledSomaticAllele is a somatic variant call at one locus.
type CalledSomaticAllele struct {
	// Sample is the tumor sample name.
	Sample string
	Contig string
	Locus  genome.Locus
	// Allele is the first non-reference allele of the most likely tumor
	// genotype.
	Allele pileup.Allele
	// LogOdds is the natural log of the tumor's maximum genotype likelihood
	// over the normal's summed variant likelihood.
	LogOdds float64
	Tumor   AlleleEvidence
	Normal  AlleleEvidence
}

// Start implements Region.  It is the call's locus.
func (c CalledSomaticAllele) Start() genome.Locus {
	return c.Locus
}

// End implements Region.  The call covers the reference bases of its allele,
// and at least one base.
func (c CalledSomaticAllele) End() genome.Locus {
	n := len(c.Allele.Ref)
	if n < 1 {
		n = 1
	}
	return genome.Locus{RefID: c.Locus.RefID, Pos: c.Locus.Pos + PosType(n)}
}

func (c CalledSomaticAllele) String() string {
	return fmt.Sprintf("%s:%d %v logodds=%.3f", c.Contig, c.Locus.Pos+1, c.Allele, c.LogOdds)
}
