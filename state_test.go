// This file is part of the program "tagwm".
// Please see the LICENSE file for copyright information.

package main

import (
	"io"
	"log"
	"os"
	"reflect"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func testTiling() tilingInfo {
	return tilingInfo{width: 1000, height: 600, gap: 10, ratio: 0.5, barHeight: 20}
}

func addClient(s *stateHandler, id xproto.Window) {
	s.addWindow(windowState{window: id, frame: id + 1000, group: groupStack})
}

func clientIDs(windows []windowState) []xproto.Window {
	ids := make([]xproto.Window, len(windows))
	for i, w := range windows {
		ids[i] = w.window
	}
	return ids
}

func TestAddWindowBecomesMasterAndFocus(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	s.classify()

	if got := s.focus(); got != 101 {
		t.Errorf("focus = %d, want 101", got)
	}
	windows := s.activeWindows()
	if len(windows) != 1 || windows[0].group != groupMaster {
		t.Errorf("windows = %+v, want a single master", windows)
	}
}

func TestNewestWindowDemotesOldMaster(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	addClient(s, 102)
	s.classify()

	want := []xproto.Window{101, 102}
	if got := clientIDs(s.activeWindows()); !reflect.DeepEqual(got, want) {
		t.Fatalf("window order = %v, want %v", got, want)
	}
	windows := s.activeWindows()
	if windows[0].group != groupStack || windows[1].group != groupMaster {
		t.Errorf("groups = %v/%v, want stack/master", windows[0].group, windows[1].group)
	}
}

func TestMasterUniqueness(t *testing.T) {
	s := newStateHandler(testTiling())
	for _, id := range []xproto.Window{101, 102, 103, 104} {
		addClient(s, id)
		s.classify()

		masters := 0
		windows := s.activeWindows()
		for _, w := range windows {
			if w.group == groupMaster {
				masters++
			}
		}
		if masters != 1 {
			t.Fatalf("after adding %d: %d masters, want 1", id, masters)
		}
		if windows[len(windows)-1].group != groupMaster {
			t.Fatalf("after adding %d: master is not the list tail", id)
		}
	}
}

func TestClassifySkipsFloating(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	addClient(s, 102)
	s.windowByID(102).group = groupFloating
	s.classify()

	windows := s.activeWindows()
	if windows[1].group != groupFloating {
		t.Errorf("floating tail was reclassified to %v", windows[1].group)
	}
	if windows[0].group != groupStack {
		t.Errorf("windows[0].group = %v, want stack", windows[0].group)
	}
}

func TestMembershipUniqueness(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	addClient(s, 102)
	addClient(s, 103)
	s.moveFocused(4)
	s.moveFocused(7)
	s.activeTag = 4
	s.moveFocused(7)

	seen := map[xproto.Window]int{}
	for ti := range s.tags {
		for _, w := range s.tags[ti].windows {
			seen[w.window]++
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("client %d appears in %d tags", id, n)
		}
	}
	if len(seen) != 3 {
		t.Errorf("%d clients total, want 3", len(seen))
	}
}

func TestFocusValidity(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	addClient(s, 102)
	addClient(s, 103)

	check := func(op string) {
		t.Helper()
		for ti := range s.tags {
			focus := s.tags[ti].focus
			if focus == 0 {
				continue
			}
			found := false
			for _, w := range s.tags[ti].windows {
				if w.window == focus {
					found = true
				}
			}
			if !found {
				t.Errorf("after %s: tag %d focus %d is not a member", op, ti, focus)
			}
		}
	}

	s.swapMaster()
	check("swapMaster")
	s.switchFocusNext(1)
	check("switchFocusNext")
	s.moveFocused(3)
	check("moveFocused")
	if i := s.windowIndex(s.focus()); i >= 0 {
		s.removeWindow(i)
		s.setTagFocusToMaster()
	}
	check("remove")
}

func TestSwapMasterWithStackFocused(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	addClient(s, 102)
	addClient(s, 103)
	s.tags[0].focus = 101
	s.swapMaster()

	want := []xproto.Window{103, 102, 101}
	if got := clientIDs(s.activeWindows()); !reflect.DeepEqual(got, want) {
		t.Errorf("window order = %v, want %v", got, want)
	}
}

func TestSwapMasterWithMasterFocused(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	addClient(s, 102)
	addClient(s, 103)
	// 103 is both focused and master: swap with the penultimate entry.
	s.swapMaster()

	want := []xproto.Window{101, 103, 102}
	if got := clientIDs(s.activeWindows()); !reflect.DeepEqual(got, want) {
		t.Errorf("window order = %v, want %v", got, want)
	}
}

func TestSwapMasterEmptyTag(t *testing.T) {
	s := newStateHandler(testTiling())
	s.swapMaster() // must not panic
}

func TestSwitchFocusNextWraps(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	addClient(s, 102)
	addClient(s, 103)

	s.switchFocusNext(1)
	if got := s.focus(); got != 101 {
		t.Errorf("focus after +1 from master = %d, want 101", got)
	}
	s.switchFocusNext(-1)
	if got := s.focus(); got != 103 {
		t.Errorf("focus after -1 = %d, want 103", got)
	}
	s.switchFocusNext(-1)
	if got := s.focus(); got != 102 {
		t.Errorf("focus after another -1 = %d, want 102", got)
	}
}

func TestSwitchFocusNextEmptyTag(t *testing.T) {
	s := newStateHandler(testTiling())
	s.switchFocusNext(1) // must not panic
}

func TestMoveFocusedReseatsFocus(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	addClient(s, 102)
	addClient(s, 103)

	moved, ok := s.moveFocused(4)
	if !ok || moved.window != 103 {
		t.Fatalf("moveFocused = %+v/%v, want window 103", moved, ok)
	}
	if got := clientIDs(s.tags[4].windows); !reflect.DeepEqual(got, []xproto.Window{103}) {
		t.Errorf("tag 4 = %v, want [103]", got)
	}
	if got := clientIDs(s.activeWindows()); !reflect.DeepEqual(got, []xproto.Window{101, 102}) {
		t.Errorf("tag 0 = %v, want [101 102]", got)
	}
	if got := s.focus(); got != 102 {
		t.Errorf("source tag focus = %d, want the new master 102", got)
	}
}

func TestCloseFocusedFallsBackToMaster(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	addClient(s, 102)

	// ExitFocusedWindow leads to an UnmapNotify for 102; the record goes
	// away and focus falls back to the remaining master.
	i := s.windowIndex(102)
	if i < 0 {
		t.Fatal("102 not found")
	}
	s.removeWindow(i)
	s.setTagFocusToMaster()
	s.classify()
	tileWindows(s.activeWindows(), s.tiling)

	if got := s.focus(); got != 101 {
		t.Errorf("focus = %d, want 101", got)
	}
	w := s.windowByID(101)
	if w.x != 10 || w.y != 30 || w.width != 980 || w.height != 560 {
		t.Errorf("geometry = (%d,%d,%d,%d), want (10,30,980,560)", w.x, w.y, w.width, w.height)
	}
}

func TestTagSwitchRoundTripKeepsLayout(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	addClient(s, 102)
	addClient(s, 103)
	s.classify()
	tileWindows(s.activeWindows(), s.tiling)
	before := append([]windowState(nil), s.activeWindows()...)

	s.activeTag = 1
	s.classify()
	tileWindows(s.activeWindows(), s.tiling)
	if len(s.activeWindows()) != 0 {
		t.Fatal("tag 1 should be empty")
	}

	s.activeTag = 0
	s.classify()
	tileWindows(s.activeWindows(), s.tiling)
	if got := s.activeWindows(); !reflect.DeepEqual(got, before) {
		t.Errorf("round trip changed the layout:\n got %+v\nwant %+v", got, before)
	}
}

func TestFullscreenToggleRestoresTiling(t *testing.T) {
	s := newStateHandler(testTiling())
	addClient(s, 101)
	s.classify()
	tileWindows(s.activeWindows(), s.tiling)

	w := s.windowByID(101)
	w.group = groupFloating
	w.x, w.y, w.width, w.height = 0, 0, 1000, 600
	s.classify()
	tileWindows(s.activeWindows(), s.tiling)
	if w.x != 0 || w.y != 0 || w.width != 1000 || w.height != 600 {
		t.Errorf("fullscreen geometry disturbed: (%d,%d,%d,%d)", w.x, w.y, w.width, w.height)
	}

	w.group = groupStack
	s.classify()
	tileWindows(s.activeWindows(), s.tiling)
	if w.group != groupMaster {
		t.Errorf("group = %v, want master after leaving fullscreen", w.group)
	}
	if w.x != 10 || w.y != 30 || w.width != 980 || w.height != 560 {
		t.Errorf("geometry = (%d,%d,%d,%d), want (10,30,980,560)", w.x, w.y, w.width, w.height)
	}
}

func TestChangeRatioClamp(t *testing.T) {
	s := newStateHandler(testTiling())
	for i := 0; i < 10; i++ {
		s.changeRatio(1.0)
	}
	if s.tiling.ratio > 0.85 {
		t.Errorf("ratio = %v, want <= 0.85", s.tiling.ratio)
	}
	for i := 0; i < 10; i++ {
		s.changeRatio(-1.0)
	}
	if s.tiling.ratio < 0.15 {
		t.Errorf("ratio = %v, want >= 0.15", s.tiling.ratio)
	}
}

func TestNextTagWrapsEuclidean(t *testing.T) {
	for start := 0; start < numTags; start++ {
		tag := start
		for i := 0; i < numTags; i++ {
			tag = euclidMod(tag+1, numTags)
		}
		if tag != start {
			t.Errorf("nine +1 steps from %d landed on %d", start, tag)
		}
	}
	if got := euclidMod(0-1, numTags); got != 8 {
		t.Errorf("euclidMod(-1, 9) = %d, want 8", got)
	}
}
