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

package genome

import (
	"context"
	"fmt"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/somatic/encoding/fasta"
)

// FromFasta copies every sequence of fa, in file order, into a Reference.
func FromFasta(fa fasta.Fasta) (*Reference, error) {
	names := fa.SeqNames()
	seqs := make([][]byte, len(names))
	for i, name := range names {
		n, err := fa.Len(name)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		seq, err := fa.Get(name, 0, n)
		if err != nil {
			return nil, err
		}
		seqs[i] = []byte(seq)
	}
	return NewReference(names, seqs)
}

// LoadReference reads a (possibly compressed) FASTA file from any path
// supported by grailbio/base/file.
func LoadReference(ctx context.Context, fapath string) (ref *Reference, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, fapath); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, infile, &err)
	reader, _ := compress.NewReader(infile.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	var fa fasta.Fasta
	if fa, err = fasta.New(reader, fasta.Opts{Uppercase: true}); err != nil {
		return
	}
	if ref, err = FromFasta(fa); err != nil {
		return
	}
	log.Printf("genome.LoadReference: loaded %d contigs (%d bases) from %s", ref.NContigs(), ref.TotalLen(), fapath)
	return
}

// CheckHeaderContigs compares a read source's sequence dictionary against
// the reference.  Contigs present in the reads but absent from the reference
// are an error; the converse only warrants a warning.
func (r *Reference) CheckHeaderContigs(source string, contigs []Contig) error {
	nMissing := 0
	for _, c := range contigs {
		id, ok := r.ContigID(c.Name)
		if !ok {
			nMissing++
			continue
		}
		if r.contigs[id].Len != c.Len {
			return fmt.Errorf("genome.CheckHeaderContigs: inconsistent lengths for contig %s (%d in %s, %d in reference)", c.Name, c.Len, source, r.contigs[id].Len)
		}
	}
	if nMissing != 0 {
		return fmt.Errorf("genome.CheckHeaderContigs: %d contig(s) in %s missing from reference", nMissing, source)
	}
	if len(contigs) < r.NContigs() {
		log.Printf("genome.CheckHeaderContigs: warning: %d reference contig(s) absent from %s", r.NContigs()-len(contigs), source)
	}
	return nil
}
