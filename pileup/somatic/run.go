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
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"runtime"
	"strconv"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/interval"
	"github.com/grailbio/somatic/pileup"
	"github.com/grailbio/somatic/reads"
)

// Run calls somatic variants over the whole genome of ref (or the part
// selected by opts.Region or opts.BedPath), and returns the calls in
// ascending locus order.
//
// Every mapped read must name a contig that the reference has at the read's
// RefID; a mismatch fails the run before any locus is processed.  Unusable
// reads (duplicates, QC failures, unmapped) are ignored.  The input slices
// are not modified.
//
// The genome is split into partitions, weighted by tumor read starts, which
// are processed concurrently.  Each partition also computes candidate calls
// in a margin around its range, so the result does not depend on
// opts.Parallelism or opts.Partitions.
func Run(ctx context.Context, ref *genome.Reference, tumor, normal []*reads.Read, opts *Opts) (calls []CalledSomaticAllele, err error) {
	if opts.WindowHalfWidth < 0 {
		return nil, fmt.Errorf("somatic.Run: negative window half-width %d", opts.WindowHalfWidth)
	}
	if err = checkReadContigs(ref, tumor, opts.TumorSample); err != nil {
		return
	}
	if err = checkReadContigs(ref, normal, opts.NormalSample); err != nil {
		return
	}
	var bed *interval.BEDUnion
	if bed, err = loadRestriction(ctx, ref, opts); err != nil {
		return
	}
	tumor = usableReads(tumor)
	normal = usableReads(normal)

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	nPart := opts.Partitions
	if nPart <= 0 {
		nPart = parallelism
	}
	weights := make([]int64, len(tumor))
	for i, r := range tumor {
		weights[i] = ref.Linear(r.StartLocus())
	}
	parts := Partition(ref, nPart, weights)
	index := NewPartitionIndex(parts)
	margin := PosType(opts.WindowHalfWidth) + maxSpan(tumor)
	if m := PosType(opts.WindowHalfWidth) + maxSpan(normal); m > margin {
		margin = m
	}

	var src partitionSource
	if opts.SpillReads {
		src, err = newSpillSource(opts.TempDir, index, margin, tumor, normal)
	} else {
		src = newMemSource(index, margin, tumor, normal)
	}
	if err != nil {
		return
	}
	defer func() {
		if e := src.close(); e != nil && err == nil {
			err = e
		}
	}()

	log.Printf("somatic.Run: %d tumor and %d normal reads, %d partitions, margin %d", len(tumor), len(normal), len(parts), margin)
	results := make([][]CalledSomaticAllele, len(parts))
	err = traverse.Each(parallelism, func(jobIdx int) error {
		for partIdx := jobIdx; partIdx < len(parts); partIdx += parallelism {
			core := parts[partIdx]
			var partBED *interval.BEDUnion
			if bed != nil {
				if !bed.Intersects(core) {
					continue
				}
				partBED = bed.Clone()
			}
			t, n, e := src.reads(partIdx)
			if e != nil {
				return e
			}
			results[partIdx] = callPartition(ref, core, margin, t, n, partBED, opts)
			log.Debug.Printf("somatic.Run: partition %d %+v: %d tumor reads, %d normal reads, %d calls",
				partIdx, core, len(t), len(n), len(results[partIdx]))
		}
		return nil
	})
	if err != nil {
		return
	}
	for _, r := range results {
		calls = append(calls, r...)
	}
	log.Printf("somatic.Run: %d calls", len(calls))
	return
}

// checkReadContigs verifies that every mapped read's contig agrees with the
// reference's sequence dictionary.
func checkReadContigs(ref *genome.Reference, rs []*reads.Read, sample string) error {
	for _, r := range rs {
		if !r.Mapped() {
			continue
		}
		if int(r.RefID) >= ref.NContigs() {
			return fmt.Errorf("somatic.Run: %s read %s is mapped to contig #%d, but the reference has %d contigs",
				sample, r.Name, r.RefID, ref.NContigs())
		}
		if r.Contig == "" {
			continue
		}
		if id, ok := ref.ContigID(r.Contig); !ok || id != r.RefID {
			return fmt.Errorf("somatic.Run: %s read %s is mapped to %s (#%d), which does not match reference contig %s",
				sample, r.Name, r.Contig, r.RefID, ref.Name(r.RefID))
		}
	}
	return nil
}

// loadRestriction returns the interval set selected by opts.Region or
// opts.BedPath, or nil if the whole genome is to be called.
func loadRestriction(ctx context.Context, ref *genome.Reference, opts *Opts) (*interval.BEDUnion, error) {
	switch {
	case opts.Region != "" && opts.BedPath != "":
		return nil, fmt.Errorf("somatic.Run: region and BED restrictions can't be used together")
	case opts.Region != "":
		entry, err := interval.ParseRegionString(opts.Region)
		if err != nil {
			return nil, err
		}
		return interval.NewBEDUnionFromEntries([]interval.Entry{entry}, ref)
	case opts.BedPath != "":
		return interval.NewBEDUnionFromPath(ctx, opts.BedPath, ref)
	}
	return nil, nil
}

// usableReads returns the usable reads of rs, sorted by start.
func usableReads(rs []*reads.Read) []*reads.Read {
	out := make([]*reads.Read, 0, len(rs))
	for _, r := range rs {
		if r.Usable() {
			out = append(out, r)
		}
	}
	reads.SortByStart(out)
	return out
}

func maxSpan(rs []*reads.Read) PosType {
	var m int
	for _, r := range rs {
		if s := r.Span(); s > m {
			m = s
		}
	}
	return PosType(m)
}

// clampPos returns x limited to [0, PosTypeMax].
func clampPos(x int64) PosType {
	if x < 0 {
		return 0
	}
	if x > genome.PosTypeMax {
		return genome.PosTypeMax
	}
	return PosType(x)
}

// extendRange widens r by margin on each side, without crossing into
// neighboring contigs.
func extendRange(r genome.LocusRange, margin PosType) genome.LocusRange {
	ext := r
	ext.Start.Pos = clampPos(int64(r.Start.Pos) - int64(margin))
	if r.Limit.Pos > 0 {
		ext.Limit.Pos = clampPos(int64(r.Limit.Pos) + int64(margin))
	}
	return ext
}

// readRange returns the loci covered by r, widened by margin on each side.
func readRange(r *reads.Read, margin PosType) genome.LocusRange {
	return genome.LocusRange{
		Start: genome.Locus{RefID: r.RefID, Pos: clampPos(int64(r.Start) - int64(margin))},
		Limit: genome.Locus{RefID: r.RefID, Pos: clampPos(int64(r.End()) + int64(margin))},
	}
}

// routeReads calls add(i, r) for every read r of rs and every partition i
// whose range intersects r widened by margin.  Reads reach each partition in
// rs order.
func routeReads(rs []*reads.Read, index *PartitionIndex, margin PosType, add func(i int, r *reads.Read) error) (err error) {
	for _, r := range rs {
		index.Overlapping(readRange(r, margin), func(i int) {
			if err == nil {
				err = add(i, r)
			}
		})
		if err != nil {
			return
		}
	}
	return
}

// callPartition calls the loci of core.  Candidates are computed over core
// extended by margin, so that the correlation filter sees the neighbors of
// calls near the edges of core.
func callPartition(ref *genome.Reference, core genome.LocusRange, margin PosType, tumor, normal []*reads.Read, bed *interval.BEDUnion, opts *Opts) []CalledSomaticAllele {
	ext := extendRange(core, margin)
	tc := pileup.NewCursor(tumor, opts.TumorSample, ref)
	nc := pileup.NewCursor(normal, opts.NormalSample, ref)
	tc.Seek(ext.Start)
	var candidates []CalledSomaticAllele
	for {
		l, ok := tc.Next()
		if !ok || !l.LT(ext.Limit) {
			break
		}
		if bed != nil && !bed.Contains(l) {
			continue
		}
		nc.Seek(l)
		if c, ok := Call(tc.Pileup(l), nc.Pileup(l), opts); ok {
			c.Contig = ref.Name(l.RefID)
			candidates = append(candidates, c)
		}
	}
	var calls []CalledSomaticAllele
	for _, c := range FilterCorrelated(candidates, opts.WindowHalfWidth) {
		if core.Contains(c.Locus) {
			calls = append(calls, c)
		}
	}
	return calls
}

// partitionSource supplies the reads routed to each partition.
type partitionSource interface {
	reads(part int) (tumor, normal []*reads.Read, err error)
	close() error
}

// memSource holds per-partition read lists in memory.
type memSource struct {
	tumor, normal [][]*reads.Read
}

func newMemSource(index *PartitionIndex, margin PosType, tumor, normal []*reads.Read) *memSource {
	s := &memSource{
		tumor:  make([][]*reads.Read, index.Len()),
		normal: make([][]*reads.Read, index.Len()),
	}
	_ = routeReads(tumor, index, margin, func(i int, r *reads.Read) error {
		s.tumor[i] = append(s.tumor[i], r)
		return nil
	})
	_ = routeReads(normal, index, margin, func(i int, r *reads.Read) error {
		s.normal[i] = append(s.normal[i], r)
		return nil
	})
	return s
}

func (s *memSource) reads(part int) ([]*reads.Read, []*reads.Read, error) {
	return s.tumor[part], s.normal[part], nil
}

func (s *memSource) close() error { return nil }

// spillSource writes each partition's reads to recordio files in a temporary
// directory, and reads them back when the partition is processed.
type spillSource struct {
	// files[i] holds the tumor, then normal, reads of partition i.
	files [][2]*os.File
}

func newSpillSource(tempDir string, index *PartitionIndex, margin PosType, tumor, normal []*reads.Read) (s *spillSource, err error) {
	if tempDir != "" {
		if err = os.MkdirAll(tempDir, 0755); err != nil {
			return
		}
	}
	s = &spillSource{files: make([][2]*os.File, index.Len())}
	defer func() {
		if err != nil {
			_ = s.close()
			s = nil
		}
	}()
	for side, rs := range [2][]*reads.Read{tumor, normal} {
		writers := make([]recordio.Writer, index.Len())
		for i := range s.files {
			var f *os.File
			if f, err = ioutil.TempFile(tempDir, "somatic_tmp"+strconv.Itoa(i)+"_"+strconv.Itoa(side)+"_*.rio"); err != nil {
				return
			}
			s.files[i][side] = f
			writers[i] = recordio.NewWriter(f, recordio.WriterOpts{
				Marshal:      reads.MarshalRead,
				Transformers: []string{"zstd 1"},
			})
		}
		if err = routeReads(rs, index, margin, func(i int, r *reads.Read) error {
			writers[i].Append(r)
			return nil
		}); err != nil {
			return
		}
		for _, w := range writers {
			if e := w.Finish(); e != nil && err == nil {
				err = e
			}
		}
		if err != nil {
			return
		}
	}
	return
}

func (s *spillSource) reads(part int) (tumor, normal []*reads.Read, err error) {
	var out [2][]*reads.Read
	for side, f := range s.files[part] {
		if _, err = f.Seek(0, 0); err != nil {
			return
		}
		scanner := recordio.NewScanner(f, recordio.ScannerOpts{Unmarshal: reads.UnmarshalRead})
		for scanner.Scan() {
			out[side] = append(out[side], scanner.Get().(*reads.Read))
		}
		if err = scanner.Err(); err != nil {
			return
		}
	}
	return out[0], out[1], nil
}

func (s *spillSource) close() (err error) {
	for _, fs := range s.files {
		for _, f := range fs {
			if f == nil {
				continue
			}
			if e := f.Close(); e != nil && err == nil {
				err = e
			}
			if e := os.Remove(f.Name()); e != nil && err == nil {
				err = e
			}
		}
	}
	return
}
