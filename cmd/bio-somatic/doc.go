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

/*
Given a tumor BAM, a matched normal BAM, and the reference they were aligned
to, bio-somatic reports variants present in the tumor but not the normal.

Each reference position is piled up in both samples.  The tumor's most likely
genotype must be variant, and the log-odds of the tumor genotype against the
normal carrying the same variant must reach -odds-threshold (in hundredths).
Calls with another candidate call within -window bases are dropped.

Sample usage:
bio-somatic \
    --out calls.tsv \
    --region chr17:7571720-7590868 \
    tumor.bam \
    normal.bam \
    ref.fa
*/
package main
