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
	"blainsmith.com/go/seahash"
)

// Checksum returns an order-sensitive digest of calls.  Two call sets have
// the same checksum iff (barring collisions) they hold the same calls, field
// for field, in the same order.
func Checksum(calls []CalledSomaticAllele) uint64 {
	h := seahash.New()
	var buf []byte
	for i := range calls {
		// marshalCall can't fail.
		buf, _ = marshalCall(buf, &calls[i])
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}
