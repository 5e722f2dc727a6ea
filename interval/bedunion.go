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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/somatic/genome"
	"github.com/klauspost/compress/gzip"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// searchPosType returns the index of x in a[], or the position where x would
// be inserted if x isn't in a (this could be len(a)).
func searchPosType(a []PosType, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// fwdsearchPosType checks a[idx], then a[idx + 1], then a[idx + 3], then
// a[idx + 7], etc., and then uses binary search to finish the job.  It's
// usually a better choice than searchPosType when iterating.
func fwdsearchPosType(a []PosType, x PosType, idx int) int {
	nextIncr := 1
	startIdx := idx
	endIdx := len(a)
	for idx < endIdx {
		if a[idx] >= x {
			endIdx = idx
			break
		}
		startIdx = idx + 1
		idx += nextIncr
		nextIncr *= 2
	}
	for startIdx < endIdx {
		midIdx := int(uint(startIdx+endIdx) >> 1)
		if a[midIdx] >= x {
			endIdx = midIdx
		} else {
			startIdx = midIdx + 1
		}
	}
	return startIdx
}

// BEDUnion is a union of intervals over the contigs of a reference.  For each
// contig it holds a length-2N endpoint sequence, where the (0-based) start of
// interval #k is element [2k], its end is element [2k+1], and the intervals
// are disjoint and in increasing order.  A position is covered iff the number
// of endpoints <= it is odd.
//
// Queries cache their last position, which accelerates sequential scans but
// makes a BEDUnion unsafe for concurrent use; each goroutine should query its
// own Clone.
type BEDUnion struct {
	// byID is indexed by reference contig ID.  A nil entry means the contig
	// is not covered at all.
	byID [][]PosType

	lastChrIntervals []PosType
	// lastChrID is the ID of the last queried chromosome, or -1.
	lastChrID int32
	// lastPosPlus1 is 1 plus the last spot-queried position.
	lastPosPlus1 PosType
	// lastIdx is searchPosType(lastChrIntervals, lastPosPlus1).
	lastIdx int
	// isSequential is true if all queries since the last chromosome change have
	// been in order of nondecreasing position.
	isSequential bool
}

// ContainsByID checks whether the (0-based) interval [pos, pos+1) is contained
// within the BEDUnion, where the chromosome is specified by reference ID.
func (u *BEDUnion) ContainsByID(chrID int32, pos PosType) bool {
	posPlus1 := pos + 1
	if chrID != u.lastChrID {
		u.lastChrID = chrID
		u.lastChrIntervals = nil
		if chrID >= 0 && int(chrID) < len(u.byID) {
			u.lastChrIntervals = u.byID[chrID]
		}
		if u.lastChrIntervals == nil {
			return false
		}
		u.lastIdx = searchPosType(u.lastChrIntervals, posPlus1)
		u.lastPosPlus1 = posPlus1
		u.isSequential = true
		return u.lastIdx&1 == 1
	}
	if u.lastChrIntervals == nil {
		return false
	}
	if u.isSequential {
		if posPlus1 >= u.lastPosPlus1 {
			u.lastIdx = fwdsearchPosType(u.lastChrIntervals, posPlus1, u.lastIdx)
			u.lastPosPlus1 = posPlus1
			return u.lastIdx&1 == 1
		}
		u.isSequential = false
	}
	return searchPosType(u.lastChrIntervals, posPlus1)&1 == 1
}

// Contains checks whether locus l is covered.
func (u *BEDUnion) Contains(l genome.Locus) bool {
	return u.ContainsByID(l.RefID, l.Pos)
}

// Intersects checks whether the given contiguous, possibly multi-contig
// range intersects the interval set.  It does not disturb the sequential
// query cache.
func (u *BEDUnion) Intersects(r genome.LocusRange) bool {
	if !r.Start.LT(r.Limit) {
		return false
	}
	for refID := r.Start.RefID; refID <= r.Limit.RefID && int(refID) < len(u.byID); refID++ {
		chrIntervals := u.byID[refID]
		if len(chrIntervals) == 0 {
			continue
		}
		start, limit := PosType(0), PosType(posTypeMax)
		if refID == r.Start.RefID {
			start = r.Start.Pos
		}
		if refID == r.Limit.RefID {
			limit = r.Limit.Pos
		}
		if limit <= start {
			continue
		}
		idx := searchPosType(chrIntervals, start+1)
		if idx&1 == 1 {
			return true
		}
		if idx != len(chrIntervals) && chrIntervals[idx] < limit {
			return true
		}
	}
	return false
}

// NBases returns the number of reference positions covered.
func (u *BEDUnion) NBases() int64 {
	var n int64
	for _, chrIntervals := range u.byID {
		for i := 0; i+1 < len(chrIntervals); i += 2 {
			n += int64(chrIntervals[i+1] - chrIntervals[i])
		}
	}
	return n
}

// Clone returns a new BEDUnion which shares the interval set, but has its own
// search state.
func (u *BEDUnion) Clone() *BEDUnion {
	return &BEDUnion{byID: u.byID, lastChrID: -1}
}

// unionBuilder merges sorted intervals into per-contig endpoint arrays.
type unionBuilder struct {
	ref      *genome.Reference
	byID     [][]PosType
	seen     []bool
	prevID   int32
	prevEnd  PosType
	nSkipped int
}

func newUnionBuilder(ref *genome.Reference) *unionBuilder {
	return &unionBuilder{
		ref:    ref,
		byID:   make([][]PosType, ref.NContigs()),
		seen:   make([]bool, ref.NContigs()),
		prevID: -1,
	}
}

// add appends [start, end) on contig chrName.  Intervals must arrive sorted
// by start within each contig, and each contig's intervals must be
// contiguous in the input.  Intervals are clipped to the contig length.
func (b *unionBuilder) add(chrName string, start, end PosType) error {
	if start < 0 {
		return fmt.Errorf("negative start coordinate %d", start)
	}
	if end < start {
		return fmt.Errorf("invalid coordinate pair [%d, %d)", start, end)
	}
	id, ok := b.ref.ContigID(chrName)
	if !ok {
		b.nSkipped++
		return nil
	}
	if id != b.prevID {
		if b.seen[id] {
			return fmt.Errorf("unsorted input (split chromosome %v)", chrName)
		}
		b.seen[id] = true
		b.prevID = id
		b.prevEnd = -1
	}
	if contigLen := b.ref.Len(id); end > contigLen {
		end = contigLen
	}
	if end <= start {
		return nil
	}
	chrIntervals := b.byID[id]
	if n := len(chrIntervals); n > 0 && start <= chrIntervals[n-1] {
		if start < chrIntervals[n-2] {
			return fmt.Errorf("unsorted input on chromosome %v", chrName)
		}
		// Overlapping or touching: merge.
		if end > chrIntervals[n-1] {
			chrIntervals[n-1] = end
		}
		return nil
	}
	b.byID[id] = append(chrIntervals, start, end)
	return nil
}

func (b *unionBuilder) finish() *BEDUnion {
	if b.nSkipped > 0 {
		log.Printf("interval: skipped %d interval(s) on contigs absent from the reference", b.nSkipped)
	}
	return &BEDUnion{byID: b.byID, lastChrID: -1}
}

// NewBEDUnion loads just the intervals from a BED sorted by first coordinate
// within each contig, merging touching/overlapping intervals and eliminating
// empty ones in the process.
func NewBEDUnion(reader io.Reader, ref *genome.Reference) (*BEDUnion, error) {
	scanner := bufio.NewScanner(reader)
	b := newUnionBuilder(ref)
	var tokens [3][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 || curLine[0] == '#' || bytes.HasPrefix(curLine, []byte("track")) || bytes.HasPrefix(curLine, []byte("browser")) {
			continue
		}
		if nToken != 3 {
			return nil, fmt.Errorf("interval.NewBEDUnion: line %d has fewer tokens than expected", lineIdx)
		}
		start, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return nil, fmt.Errorf("interval.NewBEDUnion: line %d: %v", lineIdx, err)
		}
		end, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return nil, fmt.Errorf("interval.NewBEDUnion: line %d: %v", lineIdx, err)
		}
		if end >= posTypeMax {
			return nil, fmt.Errorf("interval.NewBEDUnion: line %d: end coordinate %d out of range", lineIdx, end)
		}
		if err := b.add(string(tokens[0]), PosType(start), PosType(end)); err != nil {
			return nil, fmt.Errorf("interval.NewBEDUnion: line %d: %v", lineIdx, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	u := b.finish()
	log.Printf("BED loaded, %d base(s) covered.", u.NBases())
	return u, nil
}

// NewBEDUnionFromPath is a wrapper for NewBEDUnion that takes a path instead
// of an io.Reader.  Gzipped BED files are decompressed.
func NewBEDUnionFromPath(ctx context.Context, path string, ref *genome.Reference) (u *BEDUnion, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, infile, &err)
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(reader); err != nil {
			return
		}
		defer func() {
			if e := gz.Close(); e != nil && err == nil {
				err = e
			}
		}()
		reader = gz
	}
	return NewBEDUnion(reader, ref)
}

// NewBEDUnionFromEntries initializes a BEDUnion from a sorted []Entry.
func NewBEDUnionFromEntries(entries []Entry, ref *genome.Reference) (*BEDUnion, error) {
	b := newUnionBuilder(ref)
	for _, entry := range entries {
		if _, ok := ref.ContigID(entry.ChrName); !ok {
			return nil, fmt.Errorf("interval.NewBEDUnionFromEntries: contig %s not in reference", entry.ChrName)
		}
		if err := b.add(entry.ChrName, entry.Start0, entry.End); err != nil {
			return nil, fmt.Errorf("interval.NewBEDUnionFromEntries: %v", err)
		}
	}
	return b.finish(), nil
}
