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

package genotype

import (
	"math"

	"github.com/grailbio/somatic/pileup"
)

// ErrorModel selects how an element's error probability is derived.
type ErrorModel int

const (
	// IgnoringAlignment uses the base quality alone.  Normal samples are
	// scored with this model.
	IgnoringAlignment ErrorModel = iota
	// IncludingAlignment additionally discounts for mapping-quality-driven
	// alignment uncertainty.  Tumor samples are scored with this model.
	IncludingAlignment
)

func (m ErrorModel) String() string {
	if m == IncludingAlignment {
		return "including-alignment"
	}
	return "ignoring-alignment"
}

// errorProb returns the probability that e's observation is wrong.
func (m ErrorModel) errorProb(e *pileup.Element) float64 {
	if m == IncludingAlignment {
		return 1 - e.ProbCorrectIncludingAlignment()
	}
	return pileup.ErrorProb(e.Qual)
}

// Likelihood is the probability of a pileup under one genotype.
type Likelihood struct {
	Genotype Genotype
	Prob     float64
}

// Likelihoods returns, for each genotype in Enumerate(p) order, the
// probability of p's elements under that genotype.
//
// An element matching allele a contributes (1 - eps) under a, and eps/3
// under any other allele; a genotype's term is the mean over its two
// alleles.  Products are accumulated in log space.  When normalize is set,
// the probabilities are divided by their sum (i.e. a uniform prior over the
// enumerated genotypes).
func Likelihoods(p *pileup.Pileup, model ErrorModel, normalize bool) []Likelihood {
	gs := Enumerate(p)
	logs := make([]float64, len(gs))
	for i := range p.Elements {
		e := &p.Elements[i]
		eps := model.errorProb(e)
		match, mismatch := 1-eps, eps/3
		for gi, g := range gs {
			p1, p2 := mismatch, mismatch
			if e.Allele == g.A1 {
				p1 = match
			}
			if e.Allele == g.A2 {
				p2 = match
			}
			logs[gi] += math.Log((p1 + p2) / 2)
		}
	}
	ls := make([]Likelihood, len(gs))
	var logTotal float64
	if normalize {
		logTotal = LogSumExp(logs)
	}
	for i, g := range gs {
		ls[i].Genotype = g
		if normalize && math.IsInf(logTotal, -1) {
			continue
		}
		ls[i].Prob = math.Exp(logs[i] - logTotal)
	}
	return ls
}

// LogSumExp returns log(sum(exp(xs))) without intermediate underflow.  It
// returns -Inf for an empty slice.
func LogSumExp(xs []float64) float64 {
	hi := math.Inf(-1)
	for _, x := range xs {
		if x > hi {
			hi = x
		}
	}
	if math.IsInf(hi, 0) {
		return hi
	}
	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - hi)
	}
	return hi + math.Log(sum)
}

// MaxLikelihood returns the most likely genotype.  Ties go to the genotype
// that comes first in ls, so with Likelihoods' canonical order the result is
// deterministic.  It returns false if ls is empty.
func MaxLikelihood(ls []Likelihood) (Likelihood, bool) {
	if len(ls) == 0 {
		return Likelihood{}, false
	}
	best := ls[0]
	for _, l := range ls[1:] {
		if l.Prob > best.Prob {
			best = l
		}
	}
	return best, true
}

// VariantProb sums the probabilities of the genotypes carrying a variant
// allele.
func VariantProb(ls []Likelihood) float64 {
	var sum float64
	for _, l := range ls {
		if l.Genotype.HasVariantAllele() {
			sum += l.Prob
		}
	}
	return sum
}
