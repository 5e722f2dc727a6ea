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
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/somatic/pileup"
	"github.com/grailbio/somatic/pileup/somatic"
)

var (
	defaultFilter = somatic.DefaultOpts.TumorFilter

	oddsThreshold  = flag.Int("odds-threshold", somatic.DefaultOpts.OddsThreshold, "Minimum somatic log-odds, in hundredths, for a call to be reported")
	maxTumorDepth  = flag.Int("max-tumor-depth", somatic.DefaultOpts.MaxTumorDepth, "Tumor pileups deeper than this (after filtering) are skipped")
	maxNormalDepth = flag.Int("max-normal-depth", somatic.DefaultOpts.MaxNormalDepth, "Normal pileups deeper than this (after filtering) are skipped")
	window         = flag.Int("window", somatic.DefaultOpts.WindowHalfWidth, "Half-width of the correlated-call window; 0 disables the filter")
	tumorMapq      = flag.Int("tumor-min-mapq", int(defaultFilter.MinAlignmentQuality), "Tumor reads with MAPQ below this level are skipped")
	normalMapq     = flag.Int("normal-min-mapq", int(somatic.DefaultOpts.NormalFilter.MinAlignmentQuality), "Normal reads with MAPQ below this level are skipped")
	multiAllelic   = flag.Bool("filter-multi-allelic", defaultFilter.FilterMultiAllelic, "Skip tumor pileups showing more than one variant allele")
	mapComplexity  = flag.Int("max-mapping-complexity", defaultFilter.MaxMappingComplexity, "Skip pileups where more than this percentage of reads have MAPQ 0")
	edgeDistance   = flag.Int("min-edge-distance", defaultFilter.MinEdgeDistance, "Ignore bases fewer than this many positions from either end of their read")
	abnormalInsert = flag.Int("max-abnormal-insert-pct", defaultFilter.MaxPercentAbnormalInsertSize, "Skip pileups where more than this percentage of read pairs have an abnormal insert size")
	minInsertSize  = flag.Int("min-insert-size", defaultFilter.MinInsertSize, "Insert sizes below this are abnormal")
	maxInsertSize  = flag.Int("max-insert-size", defaultFilter.MaxInsertSize, "Insert sizes above this are abnormal")
	tumorSample    = flag.String("tumor-sample", somatic.DefaultOpts.TumorSample, "Tumor sample name")
	normalSample   = flag.String("normal-sample", somatic.DefaultOpts.NormalSample, "Normal sample name")
	bedPath        = flag.String("bed", "", "Restrict calling to the intervals in this BED file; incompatible with -region")
	region         = flag.String("region", "", "Restrict calling to the specified region. Format as <contig ID>:<1-based first pos>-<last pos>, <contig ID>:<1-based pos>, or just <contig ID>")
	format         = flag.String("format", somatic.FormatTSV, "Output format; 'tsv', 'tsv-bgz', and 'rio' supported")
	cols           = flag.String("cols", "", "Output TSV column sets. #CHROM/POS/REF/ALT/LOG_ODDS are always present. Supported optional sets are 'depth', 'likelihood', 'strand', 'mapq', and 'baseq'; default is \"depth,likelihood\"")
	outPath        = flag.String("out", "bio-somatic.tsv", "Output path")
	parallelism    = flag.Int("parallelism", 0, "Maximum number of partitions processed simultaneously; 0 = runtime.NumCPU()")
	partitions     = flag.Int("partitions", 0, "Number of genome partitions; 0 = one per unit of parallelism")
	spill          = flag.Bool("spill", false, "Write per-partition reads to temporary files instead of keeping them in memory")
	tempDir        = flag.String("temp-dir", "", "Directory to write temporary files to (default os.TempDir())")
)

func bioSomaticUsage() {
	fmt.Printf("Usage: %s [OPTIONS] tumor.bam normal.bam ref.fa\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioSomaticUsage
	shutdown := grail.Init()
	defer shutdown()

	positionalArgs := flag.Args()
	if len(positionalArgs) != 3 {
		log.Fatalf("Expected tumor BAM, normal BAM and reference FASTA paths; please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
	}
	filter := func(mapq int) (f pileup.FilterOpts) {
		f = defaultFilter
		f.MinAlignmentQuality = byte(mapq)
		f.MaxMappingComplexity = *mapComplexity
		f.MinEdgeDistance = *edgeDistance
		f.MaxPercentAbnormalInsertSize = *abnormalInsert
		f.MinInsertSize = *minInsertSize
		f.MaxInsertSize = *maxInsertSize
		return
	}
	opts := somatic.Opts{
		OddsThreshold:   *oddsThreshold,
		MaxTumorDepth:   *maxTumorDepth,
		MaxNormalDepth:  *maxNormalDepth,
		TumorFilter:     filter(*tumorMapq),
		NormalFilter:    filter(*normalMapq),
		WindowHalfWidth: *window,
		TumorSample:     *tumorSample,
		NormalSample:    *normalSample,
		Parallelism:     *parallelism,
		Partitions:      *partitions,
		SpillReads:      *spill,
		TempDir:         *tempDir,
		Region:          *region,
		BedPath:         *bedPath,
	}
	opts.TumorFilter.FilterMultiAllelic = *multiAllelic
	fopts := somatic.FileOpts{
		TumorPath:  positionalArgs[0],
		NormalPath: positionalArgs[1],
		RefPath:    positionalArgs[2],
		OutPath:    *outPath,
		Format:     *format,
		Cols:       *cols,
	}
	ctx := vcontext.Background()
	if err := somatic.CallFiles(ctx, fopts, &opts); err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
