// This file is part of the program "tagwm".
// Please see the LICENSE file for copyright information.

package main

import (
	"reflect"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

type rect struct {
	x, y int
	w, h int
}

func rectOf(w windowState) rect {
	return rect{int(w.x), int(w.y), int(w.width), int(w.height)}
}

func overlaps(a, b rect) bool {
	return a.x < b.x+b.w && b.x < a.x+a.w && a.y < b.y+b.h && b.y < a.y+a.h
}

// tiledTag builds a classified list of n tiled windows: n-1 stack entries
// followed by the master, the order the state handler produces.
func tiledTag(n int) []windowState {
	windows := make([]windowState, n)
	for i := range windows {
		windows[i] = windowState{window: xproto.Window(101 + i), group: groupStack}
	}
	windows[n-1].group = groupMaster
	return windows
}

func TestTileSingleWindow(t *testing.T) {
	windows := tiledTag(1)
	tileWindows(windows, testTiling())

	want := rect{10, 30, 980, 560}
	if got := rectOf(windows[0]); got != want {
		t.Errorf("geometry = %+v, want %+v", got, want)
	}
}

func TestTileMasterAndStack(t *testing.T) {
	windows := tiledTag(2)
	tileWindows(windows, testTiling())

	if got, want := rectOf(windows[1]), (rect{10, 30, 480, 560}); got != want {
		t.Errorf("master = %+v, want %+v", got, want)
	}
	if got, want := rectOf(windows[0]), (rect{500, 30, 490, 560}); got != want {
		t.Errorf("stack[0] = %+v, want %+v", got, want)
	}
}

func TestTileThreeWindows(t *testing.T) {
	windows := tiledTag(3)
	tileWindows(windows, testTiling())

	if got, want := rectOf(windows[2]), (rect{10, 30, 480, 560}); got != want {
		t.Errorf("master = %+v, want %+v", got, want)
	}
	if got, want := rectOf(windows[0]), (rect{500, 30, 490, 260}); got != want {
		t.Errorf("stack[0] = %+v, want %+v", got, want)
	}
	if got, want := rectOf(windows[1]), (rect{500, 300, 490, 290}); got != want {
		t.Errorf("stack[1] = %+v, want %+v", got, want)
	}
}

func TestTileDeterminism(t *testing.T) {
	a := tiledTag(4)
	b := append([]windowState(nil), a...)
	tileWindows(a, testTiling())
	tileWindows(b, testTiling())

	if !reflect.DeepEqual(a, b) {
		t.Errorf("identical inputs tiled differently:\n%+v\n%+v", a, b)
	}
}

func TestTileLeavesFloatingAlone(t *testing.T) {
	windows := tiledTag(3)
	windows[0].group = groupFloating
	windows[0].x, windows[0].y = 42, 43
	windows[0].width, windows[0].height = 44, 45
	tileWindows(windows, testTiling())

	if got := rectOf(windows[0]); got != (rect{42, 43, 44, 45}) {
		t.Errorf("floating geometry disturbed: %+v", got)
	}
}

func TestTileCoverage(t *testing.T) {
	ti := testTiling()
	gap := int(ti.gap)
	barH := int(ti.barHeight)
	maxX := int(ti.width) - gap
	maxY := int(ti.height) - gap

	for n := 1; n <= 6; n++ {
		windows := tiledTag(n)
		tileWindows(windows, ti)

		rects := make([]rect, len(windows))
		for i, w := range windows {
			rects[i] = rectOf(w)
		}
		for i, r := range rects {
			if r.w <= 0 || r.h <= 0 {
				t.Errorf("n=%d: rect %d degenerate: %+v", n, i, r)
			}
			if r.x < gap || r.y < gap+barH || r.x+r.w > maxX || r.y+r.h > maxY {
				t.Errorf("n=%d: rect %d out of bounds: %+v", n, i, r)
			}
			for j := i + 1; j < len(rects); j++ {
				if overlaps(r, rects[j]) {
					t.Errorf("n=%d: rects %d and %d overlap: %+v %+v", n, i, j, r, rects[j])
				}
			}
		}
	}
}
