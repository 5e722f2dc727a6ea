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

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/somatic/encoding/bamreads"
	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/somatic/reads"
)

// FileOpts names the inputs and output of CallFiles.
type FileOpts struct {
	TumorPath  string
	NormalPath string
	// RefPath is a FASTA file, optionally compressed.
	RefPath string
	OutPath string
	// Format is FormatTSV, FormatTSVBgz or FormatRIO.
	Format string
	// Cols selects optional TSV column-sets; see WriteCalls.
	Cols string
}

// CallFiles loads a tumor and a normal BAM and a reference, runs the caller,
// and writes the calls.  The sequence dictionaries of the two BAMs must
// agree with each other and with the reference; this is checked before any
// reads are loaded.
func CallFiles(ctx context.Context, fopts FileOpts, opts *Opts) error {
	if _, err := outputColumns(fopts.Format, fopts.Cols); err != nil {
		return err
	}
	tumorContigs, err := bamreads.ReadContigs(ctx, fopts.TumorPath)
	if err != nil {
		return err
	}
	normalContigs, err := bamreads.ReadContigs(ctx, fopts.NormalPath)
	if err != nil {
		return err
	}
	if err = genome.CheckSequenceDictionaries(tumorContigs, normalContigs); err != nil {
		return fmt.Errorf("somatic.CallFiles: tumor %s and normal %s: %v", fopts.TumorPath, fopts.NormalPath, err)
	}
	ref, err := genome.LoadReference(ctx, fopts.RefPath)
	if err != nil {
		return err
	}
	var samples [2][]*reads.Read
	paths := [2]string{fopts.TumorPath, fopts.NormalPath}
	names := [2]string{opts.TumorSample, opts.NormalSample}
	if err = traverse.Each(2, func(i int) (e error) {
		samples[i], e = bamreads.Load(ctx, paths[i], names[i], ref)
		return
	}); err != nil {
		return err
	}
	calls, err := Run(ctx, ref, samples[0], samples[1], opts)
	if err != nil {
		return err
	}
	if err = WriteCalls(ctx, fopts.OutPath, fopts.Format, calls, fopts.Cols, opts.Parallelism); err != nil {
		return err
	}
	log.Printf("somatic.CallFiles: wrote %d calls to %s", len(calls), fopts.OutPath)
	return nil
}
