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
package interval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/somatic/genome"
)

// PosType is the type used to represent interval coordinates.
type PosType = genome.PosType

const posTypeMax = genome.PosTypeMax

// Entry represents a single interval, with 0-based coordinates.
type Entry struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// into a contig ID and 0-based half-open boundaries.  A bare contig ID
// yields [0, posTypeMax - 1).  Commas in positions are ignored, and the
// contig ID ends at the last colon, so IDs such as HLA alleles may contain
// colons.
func ParseRegionString(region string) (Entry, error) {
	if region == "" {
		return Entry{}, fmt.Errorf("interval.ParseRegionString: empty region string")
	}
	sep := strings.LastIndexByte(region, ':')
	if sep < 0 {
		return Entry{ChrName: region, End: posTypeMax - 1}, nil
	}
	if sep == 0 {
		return Entry{}, fmt.Errorf("interval.ParseRegionString: empty contig ID in %q", region)
	}
	entry := Entry{ChrName: region[:sep]}
	span := strings.Replace(region[sep+1:], ",", "", -1)
	firstStr, lastStr := span, span
	if dash := strings.IndexByte(span, '-'); dash >= 0 {
		firstStr, lastStr = span[:dash], span[dash+1:]
	}
	first, err := parsePos1(firstStr)
	if err != nil {
		return Entry{}, err
	}
	last, err := parsePos1(lastStr)
	if err != nil {
		return Entry{}, err
	}
	// last == posTypeMax would make the BED endpoint arrays ambiguous.
	if last < first || last >= posTypeMax {
		return Entry{}, fmt.Errorf("interval.ParseRegionString: invalid range %q", span)
	}
	entry.Start0 = PosType(first - 1)
	entry.End = PosType(last)
	return entry, nil
}

// parsePos1 parses a positive 1-based position.
func parsePos1(s string) (int64, error) {
	pos, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("interval.ParseRegionString: bad position %q: %v", s, err)
	}
	if pos <= 0 {
		return 0, fmt.Errorf("interval.ParseRegionString: position %d out of range", pos)
	}
	return pos, nil
}
