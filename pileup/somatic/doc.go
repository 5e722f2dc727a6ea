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

// Package somatic calls somatic variants from a tumor/normal pair of read
// sets.
//
// Each covered locus of the tumor sample is genotyped with an error model that
// discounts for alignment uncertainty; when the most likely tumor genotype
// carries a variant allele, the normal sample is genotyped without that
// discount, and the locus is reported if the tumor's support outweighs the
// normal's variant support by the configured log-odds threshold.  Candidate
// calls then pass through a correlation filter which drops calls that have a
// neighbor within a small window.
//
// Run processes the genome in parallel partitions.  Each partition is
// extended on both sides by a margin so that the correlation filter sees the
// same neighbors it would in a serial run.
package somatic
