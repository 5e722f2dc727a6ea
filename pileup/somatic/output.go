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
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/pileup"
)

func init() {
	recordiozstd.Init()
}

// Output formats accepted by WriteCalls.
const (
	FormatTSV    = "tsv"
	FormatTSVBgz = "tsv-bgz"
	FormatRIO    = "rio"
)

// These constants refer to the optional TSV column-sets.  Each set is
// written once per sample, tumor (T_ prefix) first.
//   Depth      = DP (filtered pileup depth) and AD (allele depth).
//   Likelihood = tumor maximum genotype likelihood; normal variant
//                likelihood.
//   Strand     = FWD and AFWD, the forward-strand depth and allele depth.
//   MapQ       = MEAN_MQ and MEDIAN_MQ over the allele's reads.
//   BaseQ      = MEAN_BQ and MEDIAN_BQ over the allele's bases.
const (
	colBitDepth = 1 << iota
	colBitLikelihood
	colBitStrand
	colBitMapQ
	colBitBaseQ
)

const colBitsetDefault = colBitDepth | colBitLikelihood

var colNameMap = map[string]int{
	"depth":      colBitDepth,
	"likelihood": colBitLikelihood,
	"strand":     colBitStrand,
	"mapq":       colBitMapQ,
	"baseq":      colBitBaseQ,
}

// rioContigsHeader is the recordio header key listing the contigs of the
// calls, in order of first appearance.
const rioContigsHeader = "contigs"

// WriteCalls writes calls to path in the given format (FormatTSV,
// FormatTSVBgz or FormatRIO).  cols selects the optional TSV column-sets, in
// pileup.ParseCols syntax over the names depth, likelihood, strand, mapq and
// baseq; "" selects depth and likelihood.  parallelism is the bgzip
// compression parallelism.
func WriteCalls(ctx context.Context, path, format string, calls []CalledSomaticAllele, cols string, parallelism int) (err error) {
	colBitset, err := outputColumns(format, cols)
	if err != nil {
		return err
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	var out file.File
	if out, err = file.Create(ctx, path); err != nil {
		return errors.E(err, "somatic.WriteCalls", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := out.Writer(ctx)
	switch format {
	case FormatRIO:
		err = writeCallsRIO(w, calls)
	case FormatTSVBgz:
		bgzfWriter := bgzf.NewWriter(w, parallelism)
		err = writeCallsTSV(bgzfWriter, calls, colBitset)
		if e := bgzfWriter.Close(); e != nil && err == nil {
			err = e
		}
	default:
		err = writeCallsTSV(w, calls, colBitset)
	}
	if err != nil {
		err = errors.E(err, "somatic.WriteCalls", path)
	}
	return
}

// outputColumns validates an output format and column-set descriptor, and
// returns the TSV column bitset.
func outputColumns(format, cols string) (int, error) {
	if format != FormatTSV && format != FormatTSVBgz && format != FormatRIO {
		return 0, fmt.Errorf("somatic.WriteCalls: unrecognized format %q", format)
	}
	if format == FormatRIO && cols != "" {
		return 0, fmt.Errorf("somatic.WriteCalls: column sets cannot be used with rio output")
	}
	return pileup.ParseCols(cols, colNameMap, colBitsetDefault)
}

func writeEvidenceHeader(tsvw *tsv.Writer, prefix string, colBitset int) {
	if colBitset&colBitDepth != 0 {
		tsvw.WriteString(prefix + "DP")
		tsvw.WriteString(prefix + "AD")
	}
	if colBitset&colBitLikelihood != 0 {
		tsvw.WriteString(prefix + "LIKELIHOOD")
	}
	if colBitset&colBitStrand != 0 {
		tsvw.WriteString(prefix + "FWD")
		tsvw.WriteString(prefix + "AFWD")
	}
	if colBitset&colBitMapQ != 0 {
		tsvw.WriteString(prefix + "MEAN_MQ")
		tsvw.WriteString(prefix + "MEDIAN_MQ")
	}
	if colBitset&colBitBaseQ != 0 {
		tsvw.WriteString(prefix + "MEAN_BQ")
		tsvw.WriteString(prefix + "MEDIAN_BQ")
	}
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', 6, 64)
}

func writeEvidence(tsvw *tsv.Writer, ev *AlleleEvidence, colBitset int) {
	if colBitset&colBitDepth != 0 {
		tsvw.WriteUint32(uint32(ev.ReadDepth))
		tsvw.WriteUint32(uint32(ev.AlleleReadDepth))
	}
	if colBitset&colBitLikelihood != 0 {
		tsvw.WriteString(formatFloat(ev.Likelihood))
	}
	if colBitset&colBitStrand != 0 {
		tsvw.WriteUint32(uint32(ev.ForwardDepth))
		tsvw.WriteUint32(uint32(ev.AlleleForwardDepth))
	}
	if colBitset&colBitMapQ != 0 {
		tsvw.WriteString(formatFloat(ev.MeanMappingQuality))
		tsvw.WriteString(formatFloat(ev.MedianMappingQuality))
	}
	if colBitset&colBitBaseQ != 0 {
		tsvw.WriteString(formatFloat(ev.MeanBaseQuality))
		tsvw.WriteString(formatFloat(ev.MedianBaseQuality))
	}
}

// writeCallsTSV writes one line per call.  POS is 1-based; REF and ALT are
// the allele's reference and observed bases.
func writeCallsTSV(w io.Writer, calls []CalledSomaticAllele, colBitset int) error {
	tsvw := tsv.NewWriter(w)
	tsvw.WriteString("#CHROM\tPOS\tREF\tALT\tLOG_ODDS")
	writeEvidenceHeader(tsvw, "T_", colBitset)
	writeEvidenceHeader(tsvw, "N_", colBitset)
	if err := tsvw.EndLine(); err != nil {
		return err
	}
	for i := range calls {
		c := &calls[i]
		tsvw.WriteString(c.Contig)
		tsvw.WriteUint32(uint32(c.Locus.Pos + 1))
		tsvw.WriteString(c.Allele.Ref)
		tsvw.WriteString(c.Allele.Alt)
		tsvw.WriteString(strconv.FormatFloat(c.LogOdds, 'f', 4, 64))
		writeEvidence(tsvw, &c.Tumor, colBitset)
		writeEvidence(tsvw, &c.Normal, colBitset)
		if err := tsvw.EndLine(); err != nil {
			return err
		}
	}
	return tsvw.Flush()
}

func writeCallsRIO(w io.Writer, calls []CalledSomaticAllele) error {
	var contigs []string
	seen := map[string]bool{}
	for i := range calls {
		if name := calls[i].Contig; !seen[name] {
			seen[name] = true
			contigs = append(contigs, name)
		}
	}
	rw := recordio.NewWriter(w, recordio.WriterOpts{
		Marshal:      marshalCall,
		Transformers: []string{recordiozstd.Name},
	})
	rw.AddHeader(rioContigsHeader, strings.Join(contigs, "\000"))
	for i := range calls {
		rw.Append(&calls[i])
	}
	return rw.Finish()
}

// ReadCalls reads calls written by WriteCalls in FormatRIO.
func ReadCalls(ctx context.Context, path string) (calls []CalledSomaticAllele, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "somatic.ReadCalls", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	scanner := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{Unmarshal: unmarshalCall})
	for scanner.Scan() {
		calls = append(calls, *scanner.Get().(*CalledSomaticAllele))
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.E(err, "somatic.ReadCalls", path)
	}
	return
}

const (
	evidenceLen  = 56
	callFixedLen = 17 + 2*evidenceLen
)

func putEvidence(dst []byte, ev *AlleleEvidence) {
	binary.LittleEndian.PutUint64(dst[0:8], math.Float64bits(ev.Likelihood))
	binary.LittleEndian.PutUint32(dst[8:12], uint32(ev.ReadDepth))
	binary.LittleEndian.PutUint32(dst[12:16], uint32(ev.AlleleReadDepth))
	binary.LittleEndian.PutUint32(dst[16:20], uint32(ev.ForwardDepth))
	binary.LittleEndian.PutUint32(dst[20:24], uint32(ev.AlleleForwardDepth))
	binary.LittleEndian.PutUint64(dst[24:32], math.Float64bits(ev.MeanMappingQuality))
	binary.LittleEndian.PutUint64(dst[32:40], math.Float64bits(ev.MedianMappingQuality))
	binary.LittleEndian.PutUint64(dst[40:48], math.Float64bits(ev.MeanBaseQuality))
	binary.LittleEndian.PutUint64(dst[48:56], math.Float64bits(ev.MedianBaseQuality))
}

func getEvidence(src []byte) AlleleEvidence {
	return AlleleEvidence{
		Likelihood:           math.Float64frombits(binary.LittleEndian.Uint64(src[0:8])),
		ReadDepth:            int(binary.LittleEndian.Uint32(src[8:12])),
		AlleleReadDepth:      int(binary.LittleEndian.Uint32(src[12:16])),
		ForwardDepth:         int(binary.LittleEndian.Uint32(src[16:20])),
		AlleleForwardDepth:   int(binary.LittleEndian.Uint32(src[20:24])),
		MeanMappingQuality:   math.Float64frombits(binary.LittleEndian.Uint64(src[24:32])),
		MedianMappingQuality: math.Float64frombits(binary.LittleEndian.Uint64(src[32:40])),
		MeanBaseQuality:      math.Float64frombits(binary.LittleEndian.Uint64(src[40:48])),
		MedianBaseQuality:    math.Float64frombits(binary.LittleEndian.Uint64(src[48:56])),
	}
}

// marshalCall is a recordio marshaller for *CalledSomaticAllele.
//
// Serialized format:
//
//	[0..4): refID
//	[4..8): pos
//	[8]: allele kind
//	[9..17): log-odds
//	[17..73): tumor evidence
//	[73..129): normal evidence
//	then sample, contig, allele ref and allele alt, each a 4-byte length
//	followed by that many bytes
func marshalCall(scratch []byte, p interface{}) ([]byte, error) {
	c := p.(*CalledSomaticAllele)
	strs := [4]string{c.Sample, c.Contig, c.Allele.Ref, c.Allele.Alt}
	bytesReq := callFixedLen
	for _, s := range strs {
		bytesReq += 4 + len(s)
	}
	t := scratch
	if len(t) < bytesReq {
		t = make([]byte, bytesReq)
	}
	t = t[:bytesReq]
	binary.LittleEndian.PutUint32(t[0:4], uint32(c.Locus.RefID))
	binary.LittleEndian.PutUint32(t[4:8], uint32(c.Locus.Pos))
	t[8] = byte(c.Allele.Kind)
	binary.LittleEndian.PutUint64(t[9:17], math.Float64bits(c.LogOdds))
	putEvidence(t[17:17+evidenceLen], &c.Tumor)
	putEvidence(t[17+evidenceLen:callFixedLen], &c.Normal)
	offset := callFixedLen
	for _, s := range strs {
		binary.LittleEndian.PutUint32(t[offset:offset+4], uint32(len(s)))
		offset += 4
		offset += copy(t[offset:], s)
	}
	return t, nil
}

// unmarshalCall is the recordio unmarshaller matching marshalCall.
func unmarshalCall(in []byte) (interface{}, error) {
	if len(in) < callFixedLen {
		return nil, fmt.Errorf("somatic.unmarshalCall: record too short (%d bytes)", len(in))
	}
	c := &CalledSomaticAllele{
		Locus: genome.Locus{
			RefID: int32(binary.LittleEndian.Uint32(in[0:4])),
			Pos:   PosType(binary.LittleEndian.Uint32(in[4:8])),
		},
		LogOdds: math.Float64frombits(binary.LittleEndian.Uint64(in[9:17])),
		Tumor:   getEvidence(in[17 : 17+evidenceLen]),
		Normal:  getEvidence(in[17+evidenceLen : callFixedLen]),
	}
	c.Allele.Kind = pileup.AlleleKind(in[8])
	var strs [4]string
	offset := callFixedLen
	for i := range strs {
		if len(in)-offset < 4 {
			return nil, fmt.Errorf("somatic.unmarshalCall: truncated record")
		}
		n := int(binary.LittleEndian.Uint32(in[offset : offset+4]))
		offset += 4
		if n < 0 || len(in)-offset < n {
			return nil, fmt.Errorf("somatic.unmarshalCall: truncated record")
		}
		strs[i] = string(in[offset : offset+n])
		offset += n
	}
	if offset != len(in) {
		return nil, fmt.Errorf("somatic.unmarshalCall: %d trailing bytes", len(in)-offset)
	}
	c.Sample, c.Contig, c.Allele.Ref, c.Allele.Alt = strs[0], strs[1], strs[2], strs[3]
	return c, nil
}
