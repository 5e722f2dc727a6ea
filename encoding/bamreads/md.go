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

package bamreads

import (
	"fmt"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/somatic/reads"
)

// ParseMD converts an MD tag into a mismatch annotation keyed by read offset.
// The returned slice is non-nil even when the read matches the reference
// everywhere, since an MD tag is positive evidence of that.
func ParseMD(md string, cigar sam.Cigar) (reads.Mismatches, error) {
	// aligned[k] is the read offset of the k'th aligned (M/=/X) base.
	var aligned []int32
	off := int32(0)
	for _, co := range cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for i := 0; i < n; i++ {
				aligned = append(aligned, off+int32(i))
			}
			off += int32(n)
		case sam.CigarInsertion, sam.CigarSoftClipped:
			off += int32(n)
		}
	}
	mm := reads.Mismatches{}
	k := 0
	for i := 0; i < len(md); {
		c := md[i]
		switch {
		case isDigit(c):
			n := 0
			for ; i < len(md) && isDigit(md[i]); i++ {
				n = n*10 + int(md[i]-'0')
			}
			k += n
		case c == '^':
			i++
			start := i
			for i < len(md) && isLetter(md[i]) {
				i++
			}
			if i == start {
				return nil, fmt.Errorf("bamreads.ParseMD: empty deletion in MD tag %q", md)
			}
		case isLetter(c):
			if k >= len(aligned) {
				return nil, fmt.Errorf("bamreads.ParseMD: MD tag %q is longer than CIGAR %v", md, cigar)
			}
			mm = append(mm, reads.Mismatch{Offset: aligned[k], RefBase: normalizeBase(c)})
			k++
			i++
		default:
			return nil, fmt.Errorf("bamreads.ParseMD: invalid character %q in MD tag %q", c, md)
		}
	}
	if k != len(aligned) {
		return nil, fmt.Errorf("bamreads.ParseMD: MD tag %q covers %d aligned bases, CIGAR %v has %d", md, k, cigar, len(aligned))
	}
	return mm, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func normalizeBase(c byte) byte {
	switch c {
	case 'A', 'C', 'G', 'T':
		return c
	case 'a', 'c', 'g', 't':
		return c - 'a' + 'A'
	}
	return 'N'
}
