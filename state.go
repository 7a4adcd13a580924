// This file is part of the program "tagwm".
// Please see the LICENSE file for copyright information.

package main

import (
	"log"

	"github.com/BurntSushi/xgb/xproto"
)

const numTags = 9

type windowGroup uint8

const (
	groupMaster windowGroup = iota
	groupStack
	groupFloating
)

// windowState is the authoritative record of a managed client: the client
// window, the frame it is reparented into, its last written geometry and its
// layout group. Geometry is only written by the tiler and the fullscreen
// handler.
type windowState struct {
	window xproto.Window
	frame  xproto.Window
	x      int16
	y      int16
	width  uint16
	height uint16
	group  windowGroup
}

// tag is one of the nine virtual desktops. The window list is ordered: the
// last element is the master, everything before it is stack. focus is the
// client id of the focused window, or 0 for none.
type tag struct {
	focus   xproto.Window
	windows []windowState
}

type tilingInfo struct {
	width     uint16
	height    uint16
	gap       uint16
	ratio     float64
	barHeight uint16
}

// stateHandler holds all window-management state: the nine tags, the active
// tag index, the tiling parameters and the bar record. It is owned by the
// event loop goroutine and never shared.
type stateHandler struct {
	tags      [numTags]tag
	activeTag int
	tiling    tilingInfo
	bar       windowState
}

func newStateHandler(tiling tilingInfo) *stateHandler {
	return &stateHandler{tiling: tiling}
}

func (s *stateHandler) focus() xproto.Window {
	return s.tags[s.activeTag].focus
}

func (s *stateHandler) activeWindows() []windowState {
	return s.tags[s.activeTag].windows
}

// addWindow appends w to the active tag, making it the new master, and
// focuses it.
func (s *stateHandler) addWindow(w windowState) {
	log.Printf("adding window %d to tag %d\n", w.window, s.activeTag)
	t := &s.tags[s.activeTag]
	t.windows = append(t.windows, w)
	t.focus = w.window
}

// windowByID returns the active tag's record matching either the client or
// the frame id, or nil. Records of other tags are deliberately invisible:
// that is what makes the UnmapNotify storm from our own tag-switch unmaps
// harmless.
func (s *stateHandler) windowByID(id xproto.Window) *windowState {
	t := &s.tags[s.activeTag]
	for i := range t.windows {
		if t.windows[i].window == id || t.windows[i].frame == id {
			return &t.windows[i]
		}
	}
	return nil
}

func (s *stateHandler) windowIndex(id xproto.Window) int {
	t := &s.tags[s.activeTag]
	for i := range t.windows {
		if t.windows[i].window == id || t.windows[i].frame == id {
			return i
		}
	}
	return -1
}

// removeWindow drops the record at index i from the active tag.
func (s *stateHandler) removeWindow(i int) {
	t := &s.tags[s.activeTag]
	t.windows = append(t.windows[:i], t.windows[i+1:]...)
}

// setTagFocusToMaster points the active tag's focus at the current master
// (the last list element), or clears it when the tag is empty.
func (s *stateHandler) setTagFocusToMaster() {
	t := &s.tags[s.activeTag]
	if len(t.windows) == 0 {
		t.focus = 0
		return
	}
	t.focus = t.windows[len(t.windows)-1].window
}

// classify marks every non-Floating window of the active tag as Stack and
// then promotes the last element to Master, unless that element is Floating.
func (s *stateHandler) classify() {
	t := &s.tags[s.activeTag]
	for i := range t.windows {
		if t.windows[i].group != groupFloating {
			t.windows[i].group = groupStack
		}
	}
	if n := len(t.windows); n > 0 && t.windows[n-1].group != groupFloating {
		t.windows[n-1].group = groupMaster
	}
}

// swapMaster exchanges the focused window with the master. If the focused
// window already is the master, it is swapped with the penultimate entry,
// the master before the last promotion.
func (s *stateHandler) swapMaster() {
	t := &s.tags[s.activeTag]
	focused := t.focus
	if focused == 0 || len(t.windows) == 0 {
		return
	}
	n := len(t.windows)
	master := t.windows[n-1].window
	if master == focused && n > 1 {
		master = t.windows[n-2].window
	}
	fi := s.windowIndex(focused)
	mi := s.windowIndex(master)
	if fi < 0 || mi < 0 {
		return
	}
	t.windows[fi], t.windows[mi] = t.windows[mi], t.windows[fi]
}

// switchFocusNext moves the focus delta positions through the active tag's
// window list, wrapping in both directions.
func (s *stateHandler) switchFocusNext(delta int) {
	t := &s.tags[s.activeTag]
	focused := t.focus
	if focused == 0 || len(t.windows) == 0 {
		return
	}
	pos := s.windowIndex(focused)
	if pos < 0 {
		return
	}
	pos = euclidMod(pos+delta, len(t.windows))
	t.focus = t.windows[pos].window
}

// moveFocused moves the focused window's record from the active tag to tag
// dst and re-seats the source tag's focus on its master. The returned record
// is the moved window; ok is false when there was nothing to move.
func (s *stateHandler) moveFocused(dst int) (windowState, bool) {
	focused := s.focus()
	if focused == 0 {
		return windowState{}, false
	}
	i := s.windowIndex(focused)
	if i < 0 {
		return windowState{}, false
	}
	w := s.tags[s.activeTag].windows[i]
	s.removeWindow(i)
	s.tags[dst].windows = append(s.tags[dst].windows, w)
	s.setTagFocusToMaster()
	return w, true
}

// changeRatio nudges the master/stack split, clamped to the usable range.
func (s *stateHandler) changeRatio(delta float64) {
	s.tiling.ratio = clampFloat(s.tiling.ratio+delta, 0.15, 0.85)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// euclidMod is the Euclidean remainder: the result is in [0, m) even for
// negative a.
func euclidMod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
