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
)

// AlleleKind distinguishes the reference allele from the three variant
// shapes an element can show at a locus.
type AlleleKind uint8

const (
	// Reference means the element agrees with the reference base.
	Reference AlleleKind = iota
	// Substitution is a single-base mismatch.
	Substitution
	// Insertion is anchored at the last reference base before the inserted
	// bases.
	Insertion
	// Deletion is anchored at the last reference base before the deleted
	// bases; elements strictly inside a deletion also carry a Deletion allele
	// with an empty Alt.
	Deletion
)

var alleleKindNames = [...]string{"ref", "sub", "ins", "del"}

func (k AlleleKind) String() string {
	if int(k) < len(alleleKindNames) {
		return alleleKindNames[k]
	}
	return fmt.Sprintf("AlleleKind(%d)", k)
}

// Allele is a base or indel descriptor at a locus.  Ref holds the reference
// bases the allele spans and Alt the bases observed in its place.  Alleles
// are comparable values; == is allele identity.
type Allele struct {
	Kind AlleleKind
	Ref  string
	Alt  string
}

// RefAllele returns the reference allele for reference base b.
func RefAllele(b byte) Allele {
	s := string([]byte{b})
	return Allele{Kind: Reference, Ref: s, Alt: s}
}

// IsVariant returns whether a differs from the reference.
func (a Allele) IsVariant() bool {
	return a.Kind != Reference
}

// Compare orders alleles by kind, then Ref, then Alt.  The reference allele
// sorts before every variant allele.
func (a Allele) Compare(b Allele) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Ref, b.Ref); c != 0 {
		return c
	}
	return strings.Compare(a.Alt, b.Alt)
}

// String renders the allele as REF>ALT, with "-" for an empty side.
func (a Allele) String() string {
	ref, alt := a.Ref, a.Alt
	if ref == "" {
		ref = "-"
	}
	if alt == "" {
		alt = "-"
	}
	return ref + ">" + alt
}
