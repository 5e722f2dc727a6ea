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

import (
	"fmt"
	"strings"

	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/reads"
)

// Common pileup components.

// PosType is the integer type used to represent genomic positions.
type PosType = genome.PosType

// StrandType describes which strand a read is aligned to.
type StrandType int

const (
	// StrandNone means no strand restriction.
	StrandNone StrandType = iota
	// StrandFwd means the read is aligned to the forward strand.
	StrandFwd
	// StrandRev means the read is aligned to the reverse strand.
	StrandRev
)

// GetStrand returns the strand r is aligned to.  Unmapped reads have no
// strand.
func GetStrand(r *reads.Read) StrandType {
	if !r.Mapped() {
		return StrandNone
	}
	if r.Reverse {
		return StrandRev
	}
	return StrandFwd
}

// ParseCols parses a column-set-descriptor string given on the command line
// (colsParam) into a 64-bit integer bitset for internal use.
//
// Either every comma-separated term is preceded by '+' or '-', in which case
// the terms patch defaultColBitset, or none is, in which case the terms are
// the full column set.
func ParseCols(colsParam string, colNameMap map[string]int, defaultColBitset int) (colBitset int, err error) {
	if colsParam == "" {
		return defaultColBitset, nil
	}
	parts := strings.Split(colsParam, ",")
	patch := parts[0] != "" && (parts[0][0] == '+' || parts[0][0] == '-')
	if patch {
		colBitset = defaultColBitset
	}
	for _, part := range parts {
		if part == "" {
			return 0, fmt.Errorf("pileup.ParseCols: empty term in column set descriptor %q", colsParam)
		}
		sign := part[0]
		signed := sign == '+' || sign == '-'
		if signed != patch {
			return 0, fmt.Errorf("pileup.ParseCols: either all terms in column set descriptor must be preceded by +/-, or none can be")
		}
		name := part
		if signed {
			name = part[1:]
		}
		v := colNameMap[name]
		if v == 0 {
			return 0, fmt.Errorf("pileup.ParseCols: %v not found", name)
		}
		if sign == '-' {
			colBitset &= ^v
		} else {
			colBitset |= v
		}
	}
	return colBitset, nil
}
