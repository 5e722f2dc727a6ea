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
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/somatic/genome"
)

// Region is a half-open span of loci on one contig.
type Region interface {
	// Start is the first locus of the region.
	Start() genome.Locus
	// End is one past the last locus of the region, on the same contig.
	End() genome.Locus
}

// SlidingWindow tracks the regions overlapping [l-W, l+W] as the current
// locus l sweeps forward through the genome.  W is the half-width.  Regions
// must be sorted by Start.
type SlidingWindow[T Region] struct {
	halfWidth PosType
	regions   []T
	// next is the index in regions of the first region not yet admitted.
	next        int
	cur         genome.Locus
	started     bool
	overlapping []T
}

// NewSlidingWindow creates a window of the given half-width over regions,
// which must be sorted by Start.
func NewSlidingWindow[T Region](halfWidth int, regions []T) *SlidingWindow[T] {
	if halfWidth < 0 {
		log.Panicf("somatic.NewSlidingWindow: negative half-width %d", halfWidth)
	}
	return &SlidingWindow[T]{halfWidth: PosType(halfWidth), regions: regions}
}

// SetCurrentLocus moves the window to l.  Regions ending at or before l-W
// are evicted and regions starting at or before l+W are admitted.  Moving
// backwards is a programming error.
func (w *SlidingWindow[T]) SetCurrentLocus(l genome.Locus) {
	if w.started && l.LT(w.cur) {
		log.Panicf("somatic.SlidingWindow: locus %+v precedes current locus %+v", l, w.cur)
	}
	w.started = true
	w.cur = l
	lo := int64(l.Pos) - int64(w.halfWidth)
	hi := int64(l.Pos) + int64(w.halfWidth)
	if hi > genome.PosTypeMax {
		hi = genome.PosTypeMax
	}
	admitLimit := genome.Locus{RefID: l.RefID, Pos: PosType(hi)}

	n := 0
	for _, r := range w.overlapping {
		if end := r.End(); end.RefID == l.RefID && int64(end.Pos) > lo {
			w.overlapping[n] = r
			n++
		}
	}
	var zero T
	for i := n; i < len(w.overlapping); i++ {
		w.overlapping[i] = zero
	}
	w.overlapping = w.overlapping[:n]
	for w.next < len(w.regions) {
		r := w.regions[w.next]
		if admitLimit.LT(r.Start()) {
			break
		}
		w.next++
		if end := r.End(); end.RefID == l.RefID && int64(end.Pos) > lo {
			w.overlapping = append(w.overlapping, r)
		}
	}
}

// CurrentLocus returns the locus last passed to SetCurrentLocus.
func (w *SlidingWindow[T]) CurrentLocus() genome.Locus {
	return w.cur
}

// Overlapping returns the regions overlapping the window, in Start order.
// The slice is owned by the window and changes on the next SetCurrentLocus.
func (w *SlidingWindow[T]) Overlapping() []T {
	return w.overlapping
}

// WindowState is the optional state a WindowFilter threads from one locus to
// the next.  The zero value, NoState, carries nothing.
type WindowState struct {
	Value interface{}
}

// NoState is the initial, empty WindowState.
var NoState = WindowState{}

// IsSet returns whether s carries a value.
func (s WindowState) IsSet() bool {
	return s.Value != nil
}

// WindowFilter decides, at locus l, which of the regions starting at l to
// keep.  overlapping holds every region overlapping the window around l,
// including those in atLocus.  It returns the kept regions and the state to
// pass to the next step.
type WindowFilter[T Region] func(l genome.Locus, atLocus, overlapping []T, state WindowState) ([]T, WindowState)

// FilterWindowed sweeps a window of the given half-width over regions, which
// must be sorted by Start, and calls filter once per distinct start locus.
// It returns the kept regions in order.
func FilterWindowed[T Region](regions []T, halfWidth int, filter WindowFilter[T]) []T {
	w := NewSlidingWindow(halfWidth, regions)
	state := NoState
	var out []T
	for i := 0; i < len(regions); {
		l := regions[i].Start()
		j := i + 1
		for j < len(regions) && regions[j].Start().EQ(l) {
			j++
		}
		w.SetCurrentLocus(l)
		var kept []T
		kept, state = filter(l, regions[i:j], w.Overlapping(), state)
		out = append(out, kept...)
		i = j
	}
	return out
}

// FilterCorrelated drops each call for which some other call's region
// overlaps [locus-halfWidth, locus+halfWidth].  Calls may be given in any
// order and are returned sorted by locus.  Two calls at the same locus are a
// programming error.
func FilterCorrelated(calls []CalledSomaticAllele, halfWidth int) []CalledSomaticAllele {
	sorted := make([]CalledSomaticAllele, len(calls))
	copy(sorted, calls)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Locus.LT(sorted[j].Locus) })
	return FilterWindowed[CalledSomaticAllele](sorted, halfWidth, uncorrelatedCalls)
}

// uncorrelatedCalls keeps the call at l iff it is the only call in the
// window.
func uncorrelatedCalls(l genome.Locus, atLocus, overlapping []CalledSomaticAllele, state WindowState) ([]CalledSomaticAllele, WindowState) {
	if len(atLocus) > 1 {
		log.Panicf("somatic.FilterCorrelated: %d calls at %+v", len(atLocus), l)
	}
	if len(overlapping) == len(atLocus) {
		return atLocus, state
	}
	return nil, state
}
