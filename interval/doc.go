// Package interval implements interval-union operations in a manner optimized
// for sets of genomic coordinates represented by BED files and region strings.
// Overlapping intervals are merged, not tracked separately.  Contigs are
// resolved against a genome.Reference, so a BED naming "chr1" restricts the
// reference contig "1" and vice versa.
package interval
