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
	"math"

	"github.com/grailbio/somatic/pileup"
	"github.com/grailbio/somatic/pileup/genotype"
)

type PosType = pileup.PosType

// Opts configures calling.  The first group of fields is used by Call; the
// rest by Run.
type Opts struct {
	// OddsThreshold is the minimum 100 * log-odds a call must reach.
	OddsThreshold int
	// MaxTumorDepth and MaxNormalDepth reject abnormally deep pileups after
	// pre-filtering.
	MaxTumorDepth  int
	MaxNormalDepth int
	TumorFilter    pileup.FilterOpts
	NormalFilter   pileup.FilterOpts

	// WindowHalfWidth is the correlation filter's half-width W.  A call is
	// dropped if another candidate call overlaps [locus-W, locus+W].
	WindowHalfWidth int
	// TumorSample and NormalSample name the samples in pileups and calls.
	TumorSample  string
	NormalSample string
	// Parallelism is the number of partitions processed concurrently; <= 0
	// means runtime.NumCPU().
	Parallelism int
	// Partitions is the number of genome partitions; <= 0 means one per unit
	// of parallelism.
	Partitions int
	// SpillReads writes each partition's reads to a recordio file under
	// TempDir instead of holding per-partition read lists in memory.
	SpillReads bool
	TempDir    string
	// Region and BedPath restrict calling to a region string or a BED file.
	// They can't both be set.
	Region  string
	BedPath string
}

// DefaultOpts is the default calling configuration.
var DefaultOpts = Opts{
	OddsThreshold:   120,
	MaxTumorDepth:   1000,
	MaxNormalDepth:  1000,
	TumorFilter:     pileup.DefaultFilterOpts,
	NormalFilter:    pileup.DefaultFilterOpts,
	WindowHalfWidth: 20,
	TumorSample:     "tumor",
	NormalSample:    "normal",
}

// MaxLogOdds is the log-odds assigned to a call whose normal sample has zero
// variant likelihood.  Such calls pass any threshold.
var MaxLogOdds = math.Log(math.MaxFloat64)

// LogOdds returns the natural log of tumorMax / normalVariant, the somatic
// odds.  A zero normalVariant yields MaxLogOdds, as does any ratio that would
// exceed it.
func LogOdds(tumorMax, normalVariant float64) float64 {
	if normalVariant <= 0 {
		return MaxLogOdds
	}
	lo := math.Log(tumorMax) - math.Log(normalVariant)
	if lo > MaxLogOdds {
		return MaxLogOdds
	}
	return lo
}

// Call decides whether the tumor and normal pileups at one locus support a
// somatic variant.  Both pileups are pre-filtered with their own FilterOpts;
// there is no call if either filtered pileup is empty or deeper than its
// cap, or if every tumor element agrees with the reference.
//
// The tumor is genotyped with genotype.IncludingAlignment and the normal with
// genotype.IgnoringAlignment, both normalized.  The normal is only genotyped
// when the most likely tumor genotype is a variant one.
func Call(tumor, normal pileup.Pileup, opts *Opts) (CalledSomaticAllele, bool) {
	tumor = pileup.ApplyFilters(tumor, &opts.TumorFilter)
	normal = pileup.ApplyFilters(normal, &opts.NormalFilter)
	tumorDepth, normalDepth := tumor.Depth(), normal.Depth()
	if tumorDepth == 0 || normalDepth == 0 ||
		tumorDepth > opts.MaxTumorDepth || normalDepth > opts.MaxNormalDepth ||
		tumor.ReferenceDepth() == tumorDepth {
		return CalledSomaticAllele{}, false
	}

	best, ok := genotype.MaxLikelihood(genotype.Likelihoods(&tumor, genotype.IncludingAlignment, true))
	if !ok || !best.Genotype.HasVariantAllele() {
		return CalledSomaticAllele{}, false
	}
	allele := best.Genotype.NonReferenceAlleles()[0]
	if allele.Kind == pileup.Deletion && allele.Alt == "" {
		// Inside a deletion; it is reported at its anchor locus.
		return CalledSomaticAllele{}, false
	}

	normalVariant := genotype.VariantProb(genotype.Likelihoods(&normal, genotype.IgnoringAlignment, true))
	logOdds := LogOdds(best.Prob, normalVariant)
	if normalVariant > 0 && logOdds*100 < float64(opts.OddsThreshold) {
		return CalledSomaticAllele{}, false
	}
	return CalledSomaticAllele{
		Sample:  tumor.Sample,
		Locus:   tumor.Locus,
		Allele:  allele,
		LogOdds: logOdds,
		Tumor:   newAlleleEvidence(&tumor, allele, best.Prob),
		Normal:  newAlleleEvidence(&normal, allele, normalVariant),
	}, true
}
