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

package reads

import (
	"fmt"
	"sort"
)

// Mismatch records that the read base at Offset differs from the reference,
// whose base there is RefBase.
type Mismatch struct {
	Offset  int32
	RefBase byte
}

// Mismatches is a sparse mismatch annotation, sorted by Offset.
type Mismatches []Mismatch

// Lookup returns the reference base recorded at read offset off, and whether
// a mismatch is recorded there at all.
func (m Mismatches) Lookup(off int) (byte, bool) {
	i := sort.Search(len(m), func(i int) bool { return int(m[i].Offset) >= off })
	if i < len(m) && int(m[i].Offset) == off {
		return m[i].RefBase, true
	}
	return 0, false
}

func (m Mismatches) validate(name string, readLen int) error {
	for i, mm := range m {
		if mm.Offset < 0 || int(mm.Offset) >= readLen {
			return fmt.Errorf("reads.New: read %s has mismatch at offset %d, outside [0,%d)", name, mm.Offset, readLen)
		}
		if i > 0 && m[i-1].Offset >= mm.Offset {
			return fmt.Errorf("reads.New: read %s mismatch annotation is not strictly sorted at offset %d", name, mm.Offset)
		}
		switch mm.RefBase {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return fmt.Errorf("reads.New: read %s has invalid reference base %q in mismatch annotation", name, mm.RefBase)
		}
	}
	return nil
}
