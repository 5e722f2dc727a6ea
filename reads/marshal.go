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
	"encoding/binary"

	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

const (
	flagReverse = 1 << iota
	flagDuplicate
	flagQCFail
	flagPaired
	flagFirstInPair
	flagMismatchesPresent
	flagMatePresent
)

// fixedLen is the length of the fixed-size record prefix.
const fixedLen = 30

// cutAndAdvance returns s[offset:offset+pieceLen], and increments offset by
// pieceLen.
func cutAndAdvance(offset *int, s []byte, pieceLen int) []byte {
	tmpSlice := s[(*offset):]
	*offset += pieceLen
	return tmpSlice[:pieceLen]
}

func putBytes(offset *int, t []byte, b []byte) {
	binary.LittleEndian.PutUint32(cutAndAdvance(offset, t, 4), uint32(len(b)))
	copy(cutAndAdvance(offset, t, len(b)), b)
}

// MarshalRead is a recordio marshaller for *Read.  Every field, including the
// optional mismatch annotation and mate, survives a MarshalRead/UnmarshalRead
// round trip.
//
// Serialized format:
//
//	[0..8): token
//	[8..12): refID
//	[12..16): start
//	[16..20): insert size
//	[20]: mapq
//	[21]: flag... bits
//	[22..26): mate refID (0 if no mate)
//	[26..30): mate start (0 if no mate)
//	then name, sample, contig, mate contig, seq, qual, each a 4-byte length
//	followed by that many bytes
//	then the CIGAR: 4-byte op count, 4 bytes per op
//	then, if flagMismatchesPresent is set, a 4-byte count followed by 5 bytes
//	(offset, reference base) per mismatch
func MarshalRead(scratch []byte, p interface{}) ([]byte, error) {
	r := p.(*Read)
	var mateContig string
	if r.Mate != nil {
		mateContig = r.Mate.Contig
	}
	bytesReq := fixedLen + 4*6 + len(r.Name) + len(r.Sample) + len(r.Contig) + len(mateContig) +
		len(r.Seq) + len(r.Qual) + 4 + 4*len(r.Cigar)
	if r.Mismatches != nil {
		bytesReq += 4 + 5*len(r.Mismatches)
	}
	t := scratch
	if len(t) < bytesReq {
		t = make([]byte, bytesReq)
	}
	t = t[:bytesReq]

	var flags byte
	if r.Reverse {
		flags |= flagReverse
	}
	if r.Duplicate {
		flags |= flagDuplicate
	}
	if r.QCFail {
		flags |= flagQCFail
	}
	if r.Paired {
		flags |= flagPaired
	}
	if r.FirstInPair {
		flags |= flagFirstInPair
	}
	if r.Mismatches != nil {
		flags |= flagMismatchesPresent
	}
	if r.Mate != nil {
		flags |= flagMatePresent
	}

	offset := 0
	tStart := cutAndAdvance(&offset, t, fixedLen)
	binary.LittleEndian.PutUint64(tStart[0:8], r.Token)
	binary.LittleEndian.PutUint32(tStart[8:12], uint32(r.RefID))
	binary.LittleEndian.PutUint32(tStart[12:16], uint32(r.Start))
	binary.LittleEndian.PutUint32(tStart[16:20], uint32(r.InsertSize))
	tStart[20] = r.MapQ
	tStart[21] = flags
	if r.Mate != nil {
		binary.LittleEndian.PutUint32(tStart[22:26], uint32(r.Mate.RefID))
		binary.LittleEndian.PutUint32(tStart[26:30], uint32(r.Mate.Start))
	} else {
		binary.LittleEndian.PutUint64(tStart[22:30], 0)
	}
	putBytes(&offset, t, []byte(r.Name))
	putBytes(&offset, t, []byte(r.Sample))
	putBytes(&offset, t, []byte(r.Contig))
	putBytes(&offset, t, []byte(mateContig))
	putBytes(&offset, t, r.Seq)
	putBytes(&offset, t, r.Qual)
	binary.LittleEndian.PutUint32(cutAndAdvance(&offset, t, 4), uint32(len(r.Cigar)))
	for _, co := range r.Cigar {
		binary.LittleEndian.PutUint32(cutAndAdvance(&offset, t, 4), uint32(co))
	}
	if r.Mismatches != nil {
		binary.LittleEndian.PutUint32(cutAndAdvance(&offset, t, 4), uint32(len(r.Mismatches)))
		for _, mm := range r.Mismatches {
			dst := cutAndAdvance(&offset, t, 5)
			binary.LittleEndian.PutUint32(dst[0:4], uint32(mm.Offset))
			dst[4] = mm.RefBase
		}
	}
	return t, nil
}

// decoder reads length-checked pieces off a serialized record.
type decoder struct {
	in     []byte
	offset int
	err    error
}

func (d *decoder) cut(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.in)-d.offset < n {
		d.err = errors.Errorf("reads.UnmarshalRead: truncated record (need %d bytes at offset %d, have %d)", n, d.offset, len(d.in)-d.offset)
		return nil
	}
	return cutAndAdvance(&d.offset, d.in, n)
}

func (d *decoder) uint32() uint32 {
	b := d.cut(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// bytes returns a copy of the next length-prefixed field, so the result does
// not alias the recordio buffer.  Empty fields decode as nil.
func (d *decoder) bytes() []byte {
	n := d.uint32()
	b := d.cut(int(n))
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// UnmarshalRead is the recordio unmarshaller matching MarshalRead.  The
// decoded read is re-validated, so corrupt input yields an error.
func UnmarshalRead(in []byte) (interface{}, error) {
	d := decoder{in: in}
	inStart := d.cut(fixedLen)
	if d.err != nil {
		return nil, d.err
	}
	r := &Read{
		Token:      binary.LittleEndian.Uint64(inStart[0:8]),
		RefID:      int32(binary.LittleEndian.Uint32(inStart[8:12])),
		Start:      PosType(binary.LittleEndian.Uint32(inStart[12:16])),
		InsertSize: int32(binary.LittleEndian.Uint32(inStart[16:20])),
		MapQ:       inStart[20],
	}
	flags := inStart[21]
	r.Reverse = flags&flagReverse != 0
	r.Duplicate = flags&flagDuplicate != 0
	r.QCFail = flags&flagQCFail != 0
	r.Paired = flags&flagPaired != 0
	r.FirstInPair = flags&flagFirstInPair != 0
	if flags&flagMatePresent != 0 {
		r.Mate = &Mate{
			RefID: int32(binary.LittleEndian.Uint32(inStart[22:26])),
			Start: PosType(binary.LittleEndian.Uint32(inStart[26:30])),
		}
	}
	r.Name = string(d.bytes())
	r.Sample = string(d.bytes())
	r.Contig = string(d.bytes())
	mateContig := string(d.bytes())
	if r.Mate != nil {
		r.Mate.Contig = mateContig
	}
	r.Seq = d.bytes()
	r.Qual = d.bytes()
	nCigar := int(d.uint32())
	if d.err == nil && nCigar > (len(in)-d.offset)/4 {
		return nil, errors.Errorf("reads.UnmarshalRead: CIGAR length %d exceeds record size", nCigar)
	}
	if nCigar > 0 {
		r.Cigar = make(sam.Cigar, nCigar)
		for i := range r.Cigar {
			r.Cigar[i] = sam.CigarOp(d.uint32())
		}
	}
	if flags&flagMismatchesPresent != 0 {
		n := int(d.uint32())
		if d.err == nil && n > (len(in)-d.offset)/5 {
			return nil, errors.Errorf("reads.UnmarshalRead: mismatch count %d exceeds record size", n)
		}
		r.Mismatches = make(Mismatches, n)
		for i := range r.Mismatches {
			src := d.cut(5)
			if src == nil {
				break
			}
			r.Mismatches[i] = Mismatch{Offset: int32(binary.LittleEndian.Uint32(src[0:4])), RefBase: src[4]}
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.offset != len(in) {
		return nil, errors.Errorf("reads.UnmarshalRead: %d trailing bytes", len(in)-d.offset)
	}
	if err := r.init(); err != nil {
		return nil, errors.Wrap(err, "reads.UnmarshalRead")
	}
	return r, nil
}
