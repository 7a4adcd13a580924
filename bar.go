// This file is part of the program "tagwm".
// Please see the LICENSE file for copyright information.

package main

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"
)

// createBar creates the status bar: a flat strip across the top of the root,
// as tall as the bar reservation the tiler leaves free. The returned record
// lives in the state handler for the lifetime of the process.
func (h *connHandler) createBar() (windowState, error) {
	win, err := xproto.NewWindowId(h.conn)
	if err != nil {
		return windowState{}, fmt.Errorf("failed to allocate bar id: %v", err)
	}
	bar := windowState{
		window: win,
		frame:  win,
		x:      0,
		y:      0,
		width:  h.screen.WidthInPixels,
		height: h.barHeight,
		group:  groupFloating,
	}
	err = xproto.CreateWindowChecked(h.conn, h.screen.RootDepth, win, h.root,
		bar.x, bar.y, bar.width, bar.height, 0,
		xproto.WindowClassInputOutput, h.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{h.mainPixel, xproto.EventMaskExposure}).Check()
	if err != nil {
		return windowState{}, fmt.Errorf("failed to create bar: %v", err)
	}
	xproto.MapWindow(h.conn, win)
	return bar, nil
}

// drawBar repaints the tag strip and the focused window title. The status
// segment on the right is painted separately by drawStatus so the 1 Hz tick
// does not have to touch the rest of the bar.
func (h *connHandler) drawBar(man *stateHandler) {
	bar := &man.bar
	cell := int16(h.barHeight)
	statusX := h.statusX(bar)

	// Everything left of the status segment is repainted from scratch.
	xproto.ClearArea(h.conn, false, bar.window, 0, 0, uint16(statusX), bar.height)

	for t := 0; t < numTags; t++ {
		x := int16(t) * cell
		switch {
		case t == man.activeTag:
			h.gcColors(h.accentPixel, h.mainPixel)
			xproto.PolyFillRectangle(h.conn, xproto.Drawable(bar.window), h.gc,
				[]xproto.Rectangle{{X: x, Y: 0, Width: uint16(cell), Height: uint16(cell)}})
			// Tag number in inverse on the accent cell.
			h.gcColors(h.mainPixel, h.accentPixel)
			h.barText(bar, x+(cell-h.charWidth)/2, strconv.Itoa(t+1))
		case len(man.tags[t].windows) > 0:
			h.gcColors(h.mainPixel, h.mainPixel)
			xproto.PolyFillRectangle(h.conn, xproto.Drawable(bar.window), h.gc,
				[]xproto.Rectangle{{X: x, Y: 0, Width: uint16(cell), Height: uint16(cell)}})
			// Small accent square marking an occupied tag.
			h.gcColors(h.accentPixel, h.mainPixel)
			xproto.PolyFillRectangle(h.conn, xproto.Drawable(bar.window), h.gc,
				[]xproto.Rectangle{{X: x + 1, Y: 1, Width: uint16(cell / 4), Height: uint16(cell / 4)}})
		}
	}

	if focus := man.focus(); focus != 0 {
		h.gcColors(h.accentPixel, h.mainPixel)
		h.barText(bar, int16(numTags)*cell+h.charWidth, h.windowTitle(focus))
	}

	h.drawStatus(man)
}

// drawStatus repaints only the right-justified status segment with the
// string a status program wrote to the root window's WM_NAME.
func (h *connHandler) drawStatus(man *stateHandler) {
	bar := &man.bar
	status, err := icccm.WmNameGet(h.xu, h.root)
	if err != nil {
		status = ""
	}
	x := h.statusX(bar)
	xproto.ClearArea(h.conn, false, bar.window, x, 0, uint16(int16(bar.width)-x), bar.height)
	if status == "" {
		return
	}
	h.gcColors(h.accentPixel, h.mainPixel)
	h.barText(bar, int16(bar.width)-int16(len(status))*h.charWidth-h.charWidth, status)
}

// statusX is the x coordinate where the status segment begins. The segment
// is sized for a generous status string; everything left of it belongs to
// the tag strip and the title.
func (h *connHandler) statusX(bar *windowState) int16 {
	width := int16(bar.width)
	x := width - 64*h.charWidth
	minX := int16(numTags) * int16(h.barHeight)
	if x < minX {
		x = minX
	}
	return x
}

func (h *connHandler) gcColors(fg, bg uint32) {
	xproto.ChangeGC(h.conn, h.gc, xproto.GcForeground|xproto.GcBackground, []uint32{fg, bg})
}

func (h *connHandler) barText(bar *windowState, x int16, text string) {
	if text == "" {
		return
	}
	if len(text) > 255 {
		text = text[:255]
	}
	y := (int16(bar.height) + h.fontAscent) / 2
	xproto.ImageText8(h.conn, byte(len(text)), xproto.Drawable(bar.window), h.gc, x, y, text)
}
