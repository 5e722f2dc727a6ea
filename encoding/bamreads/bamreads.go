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

// Package bamreads converts BAM/SAM alignment records into reads.Read values.
package bamreads

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/reads"
)

var mdTag = sam.NewTag("MD")

// HeaderContigs returns the sequence dictionary of a SAM header.
func HeaderContigs(h *sam.Header) []genome.Contig {
	refs := h.Refs()
	contigs := make([]genome.Contig, len(refs))
	for i, r := range refs {
		contigs[i] = genome.Contig{Name: r.Name(), Len: r.Len()}
	}
	return contigs
}

// FromSAM converts rec into a Read for the given sample.  Contigs are
// resolved against ref, and the Read's contig names are the reference's.
// An MD aux tag, when present, becomes the Read's mismatch annotation.
//
// Bases outside {A,C,G,T} become N, and a missing quality string (0xff) is
// replaced by quality 0.
func FromSAM(rec *sam.Record, sample string, ref *genome.Reference) (*reads.Read, error) {
	seq := rec.Seq.Expand()
	for i, c := range seq {
		switch c {
		case 'A', 'C', 'G', 'T':
		case 'a', 'c', 'g', 't':
			seq[i] = c - 'a' + 'A'
		default:
			seq[i] = 'N'
		}
	}
	var qual []byte
	if len(rec.Qual) == 0 || rec.Qual[0] == 0xff {
		qual = make([]byte, len(seq))
	} else {
		qual = append([]byte(nil), rec.Qual...)
	}
	r := reads.Read{
		Name:        rec.Name,
		Seq:         seq,
		Qual:        qual,
		Sample:      sample,
		RefID:       genome.InvalidRefID,
		Start:       -1,
		Reverse:     rec.Flags&sam.Reverse != 0,
		Duplicate:   rec.Flags&sam.Duplicate != 0,
		QCFail:      rec.Flags&sam.QCFail != 0,
		Paired:      rec.Flags&sam.Paired != 0,
		FirstInPair: rec.Flags&sam.Read1 != 0,
		InsertSize:  int32(rec.TempLen),
	}
	if rec.Flags&sam.Unmapped == 0 {
		if rec.Ref == nil {
			return nil, fmt.Errorf("bamreads.FromSAM: read %s is flagged as mapped but has no reference", rec.Name)
		}
		id, ok := ref.ContigID(rec.Ref.Name())
		if !ok {
			return nil, fmt.Errorf("bamreads.FromSAM: read %s is mapped to contig %s, which is not in the reference", rec.Name, rec.Ref.Name())
		}
		r.RefID = id
		r.Contig = ref.Name(id)
		r.Start = reads.PosType(rec.Pos)
		r.MapQ = rec.MapQ
		r.Cigar = append(sam.Cigar(nil), rec.Cigar...)
		if aux := rec.AuxFields.Get(mdTag); aux != nil {
			md, ok := aux.Value().(string)
			if !ok {
				return nil, fmt.Errorf("bamreads.FromSAM: read %s has non-string MD tag %v", rec.Name, aux)
			}
			mm, err := ParseMD(md, r.Cigar)
			if err != nil {
				return nil, fmt.Errorf("bamreads.FromSAM: read %s: %v", rec.Name, err)
			}
			r.Mismatches = mm
		}
	}
	if r.Paired && rec.Flags&sam.MateUnmapped == 0 && rec.MateRef != nil {
		mate := &reads.Mate{Contig: rec.MateRef.Name(), RefID: genome.InvalidRefID, Start: reads.PosType(rec.MatePos)}
		if id, ok := ref.ContigID(mate.Contig); ok {
			mate.RefID = id
			mate.Contig = ref.Name(id)
		}
		r.Mate = mate
	}
	return reads.New(r)
}

// recordReader is implemented by both *bam.Reader and *sam.Reader.
type recordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

// newRecordReader returns a BAM reader for in, or a SAM reader if path has a
// .sam suffix.
func newRecordReader(ctx context.Context, in file.File, path string) (recordReader, error) {
	if strings.HasSuffix(path, ".sam") {
		return sam.NewReader(in.Reader(ctx))
	}
	return bam.NewReader(in.Reader(ctx), 1)
}

// ReadContigs returns the sequence dictionary of the BAM or SAM file at path.
func ReadContigs(ctx context.Context, path string) (contigs []genome.Contig, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "bamreads.ReadContigs", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	rr, err := newRecordReader(ctx, in, path)
	if err != nil {
		return nil, errors.E(err, "bamreads.ReadContigs: reading header", path)
	}
	return HeaderContigs(rr.Header()), nil
}

// Load reads all primary alignments in the BAM (or, with a .sam suffix, SAM)
// file at path.  The file's sequence dictionary is checked against ref.
// Secondary and supplementary alignments are skipped.  The returned reads are
// in file order.
func Load(ctx context.Context, path, sample string, ref *genome.Reference) (rs []*reads.Read, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "bamreads.Load", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	rr, err := newRecordReader(ctx, in, path)
	if err != nil {
		return nil, errors.E(err, "bamreads.Load: reading header", path)
	}
	if err = ref.CheckHeaderContigs(path, HeaderContigs(rr.Header())); err != nil {
		return nil, err
	}
	nSkipped := 0
	for {
		rec, e := rr.Read()
		if e == io.EOF {
			break
		}
		if e != nil {
			return nil, errors.E(e, "bamreads.Load", path)
		}
		if rec.Flags&(sam.Secondary|sam.Supplementary) != 0 {
			nSkipped++
			continue
		}
		r, e := FromSAM(rec, sample, ref)
		if e != nil {
			return nil, errors.E(e, path)
		}
		rs = append(rs, r)
	}
	log.Printf("bamreads.Load: %s: %d reads loaded for sample %s, %d secondary/supplementary skipped", path, len(rs), sample, nSkipped)
	return rs, nil
}
