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

package pileup

// FilterOpts configures the pre-filters applied to a pileup before calling.
// Tumor and normal pileups are filtered with independent FilterOpts.
type FilterOpts struct {
	// FilterMultiAllelic empties pileups showing more than one distinct
	// variant allele.
	FilterMultiAllelic bool
	// MinAlignmentQuality drops elements whose read has a smaller mapping
	// quality.
	MinAlignmentQuality byte
	// MaxMappingComplexity empties pileups in which more than this percentage
	// of elements come from reads with mapping quality 0.
	MaxMappingComplexity int
	// MinEdgeDistance drops elements fewer than this many bases from either
	// end of their read.
	MinEdgeDistance int
	// MaxPercentAbnormalInsertSize empties pileups in which more than this
	// percentage of elements come from mapped pairs whose insert size lies
	// outside [MinInsertSize, MaxInsertSize].
	MaxPercentAbnormalInsertSize int
	MinInsertSize                int
	MaxInsertSize                int
}

// DefaultFilterOpts is the default pre-filter configuration.
var DefaultFilterOpts = FilterOpts{
	FilterMultiAllelic:           false,
	MinAlignmentQuality:          1,
	MaxMappingComplexity:         20,
	MinEdgeDistance:              0,
	MaxPercentAbnormalInsertSize: 100,
	MinInsertSize:                5,
	MaxInsertSize:                1000,
}

// ApplyFilters returns p after the pileup-level checks and element-level
// drops configured by opts.  Pileup-level checks (multi-allelic, mapping
// complexity, abnormal insert size) look at the unfiltered elements and,
// when they fail, yield an empty pileup.
func ApplyFilters(p Pileup, opts *FilterOpts) Pileup {
	if len(p.Elements) == 0 {
		return p
	}
	if opts.FilterMultiAllelic && nVariantAlleles(&p) > 1 {
		return p.Empty()
	}
	nMapQ0, nAbnormal := 0, 0
	for i := range p.Elements {
		r := p.Elements[i].Read
		if r.MapQ == 0 {
			nMapQ0++
		}
		if r.IsAbnormalInsertSize(opts.MinInsertSize, opts.MaxInsertSize) {
			nAbnormal++
		}
	}
	depth := len(p.Elements)
	if nMapQ0*100 > opts.MaxMappingComplexity*depth {
		return p.Empty()
	}
	if nAbnormal*100 > opts.MaxPercentAbnormalInsertSize*depth {
		return p.Empty()
	}
	if opts.MinAlignmentQuality == 0 && opts.MinEdgeDistance == 0 {
		return p
	}
	return p.Filter(func(e *Element) bool {
		return e.Read.MapQ >= opts.MinAlignmentQuality && e.DistanceToEdge() >= opts.MinEdgeDistance
	})
}

func nVariantAlleles(p *Pileup) int {
	var first Allele
	n := 0
	for i := range p.Elements {
		a := p.Elements[i].Allele
		if !a.IsVariant() {
			continue
		}
		if n == 0 {
			first = a
			n = 1
		} else if a != first {
			return 2
		}
	}
	return n
}
