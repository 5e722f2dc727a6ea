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

import "math"

// Phred-scaled quality math.

// NQual bounds the quality scores handled here; larger values (including the
// MAPQ 255 "unavailable" marker) are clamped to NQual - 1.
const NQual = 96

// errProbTable[q] is the error probability encoded by phred score q.
var errProbTable [NQual]float64

func init() {
	for i := range errProbTable {
		errProbTable[i] = math.Exp(float64(i) * (-0.1 * math.Ln10))
	}
}

// ErrorProb returns 10^(-q/10).
func ErrorProb(q byte) float64 {
	if q >= NQual {
		q = NQual - 1
	}
	return errProbTable[q]
}

// ProbCorrect returns 1 - 10^(-q/10).
func ProbCorrect(q byte) float64 {
	return 1 - ErrorProb(q)
}
