// This file is part of the program "tagwm".
// Please see the LICENSE file for copyright information.

package main

import (
	"fmt"
	"log"
	"os/exec"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Event mask selected on the root window at start-up.
const rootEventMask = xproto.EventMaskSubstructureRedirect |
	xproto.EventMaskSubstructureNotify |
	xproto.EventMaskKeyPress |
	xproto.EventMaskPropertyChange

// Event mask selected on every frame window.
const frameEventMask = xproto.EventMaskKeyPress |
	xproto.EventMaskSubstructureNotify |
	xproto.EventMaskEnterWindow |
	xproto.EventMaskPropertyChange |
	xproto.EventMaskResizeRedirect |
	xproto.EventMaskExposure

// Extra events observed on adopted client windows.
const clientEventMask = xproto.EventMaskKeyPress |
	xproto.EventMaskEnterWindow |
	xproto.EventMaskPropertyChange

// connHandler is the display adapter: a thin façade over the X connection
// that creates and destroys frames, maps, reparents, configures, focuses and
// draws. It holds no policy; every decision comes from the state handler.
type connHandler struct {
	conn   *xgb.Conn
	xu     *xgbutil.XUtil
	screen *xproto.ScreenInfo
	root   xproto.Window

	gc          xproto.Gcontext
	fontAscent  int16
	charWidth   int16
	barHeight   uint16
	mainPixel   uint32
	accentPixel uint32
	borderSize  uint16

	heartbeat xproto.Window

	atoms struct {
		wmProtocols          xproto.Atom
		wmDeleteWindow       xproto.Atom
		netWmState           xproto.Atom
		netWmStateFullscreen xproto.Atom
	}
}

// newConnHandler resolves atoms, allocates the two configured colors and
// builds the graphics context used for bar drawing. A font that fails to
// open falls back to the server's built-in "fixed".
func newConnHandler(conn *xgb.Conn, xu *xgbutil.XUtil, cfg config) (*connHandler, error) {
	h := &connHandler{
		conn:       conn,
		xu:         xu,
		screen:     xproto.Setup(conn).DefaultScreen(conn),
		borderSize: cfg.borderSize,
	}
	h.root = h.screen.Root

	var err error
	if h.atoms.wmProtocols, err = xprop.Atm(xu, "WM_PROTOCOLS"); err != nil {
		return nil, fmt.Errorf("failed to intern WM_PROTOCOLS: %v", err)
	}
	if h.atoms.wmDeleteWindow, err = xprop.Atm(xu, "WM_DELETE_WINDOW"); err != nil {
		return nil, fmt.Errorf("failed to intern WM_DELETE_WINDOW: %v", err)
	}
	if h.atoms.netWmState, err = xprop.Atm(xu, "_NET_WM_STATE"); err != nil {
		return nil, fmt.Errorf("failed to intern _NET_WM_STATE: %v", err)
	}
	if h.atoms.netWmStateFullscreen, err = xprop.Atm(xu, "_NET_WM_STATE_FULLSCREEN"); err != nil {
		return nil, fmt.Errorf("failed to intern _NET_WM_STATE_FULLSCREEN: %v", err)
	}

	h.mainPixel = h.allocColor(cfg.mainColor, h.screen.BlackPixel)
	h.accentPixel = h.allocColor(cfg.secondaryColor, h.screen.WhitePixel)

	if err := h.createGC(cfg.font); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *connHandler) allocColor(c rgb, fallback uint32) uint32 {
	reply, err := xproto.AllocColor(h.conn, h.screen.DefaultColormap, c.r, c.g, c.b).Reply()
	if err != nil {
		log.Printf("Couldn't allocate color (%d,%d,%d): %v\n", c.r, c.g, c.b, err)
		return fallback
	}
	return reply.Pixel
}

func (h *connHandler) createGC(fontName string) error {
	fid, err := xproto.NewFontId(h.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate font id: %v", err)
	}
	if err := xproto.OpenFontChecked(h.conn, fid, uint16(len(fontName)), fontName).Check(); err != nil {
		log.Printf("Couldn't open font %q, falling back to fixed: %v\n", fontName, err)
		fontName = "fixed"
		if err := xproto.OpenFontChecked(h.conn, fid, uint16(len(fontName)), fontName).Check(); err != nil {
			return fmt.Errorf("failed to open fallback font: %v", err)
		}
	}
	fontInfo, err := xproto.QueryFont(h.conn, xproto.Fontable(fid)).Reply()
	if err != nil {
		return fmt.Errorf("failed to query font: %v", err)
	}
	h.fontAscent = fontInfo.FontAscent
	h.charWidth = fontInfo.MaxBounds.CharacterWidth
	// The bar is 1.5x the font ascent, rounded up.
	h.barHeight = uint16((int(h.fontAscent)*3 + 1) / 2)

	gc, err := xproto.NewGcontextId(h.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate gc id: %v", err)
	}
	err = xproto.CreateGCChecked(h.conn, gc, xproto.Drawable(h.root),
		xproto.GcForeground|xproto.GcBackground|xproto.GcFont|xproto.GcGraphicsExposures,
		[]uint32{h.accentPixel, h.mainPixel, uint32(fid), 0}).Check()
	if err != nil {
		return fmt.Errorf("failed to create gc: %v", err)
	}
	h.gc = gc
	xproto.CloseFont(h.conn, fid)
	return nil
}

// becomeWM selects the manager event mask on the root window. Receiving an
// Access error here means another window manager already owns the
// substructure-redirect selection.
func (h *connHandler) becomeWM() error {
	err := xproto.ChangeWindowAttributesChecked(h.conn, h.root,
		xproto.CwEventMask, []uint32{uint32(rootEventMask)}).Check()
	if err != nil {
		if _, ok := err.(xproto.AccessError); ok {
			return fmt.Errorf("could not become WM, is another WM already running?")
		}
		return fmt.Errorf("could not become WM: %v", err)
	}
	return h.setFocusToRoot()
}

// advertiseEWMH creates the 1x1 input-only heartbeat window and publishes
// the supported atoms on the root.
func (h *connHandler) advertiseEWMH(name string) error {
	win, err := xproto.NewWindowId(h.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate heartbeat window id: %v", err)
	}
	err = xproto.CreateWindowChecked(h.conn, 0, win, h.root,
		-1, -1, 1, 1, 0,
		xproto.WindowClassInputOnly, h.screen.RootVisual,
		0, []uint32{}).Check()
	if err != nil {
		return fmt.Errorf("failed to create heartbeat window: %v", err)
	}
	h.heartbeat = win
	if err := ewmh.SupportingWmCheckSet(h.xu, h.root, win); err != nil {
		return err
	}
	if err := ewmh.SupportingWmCheckSet(h.xu, win, win); err != nil {
		return err
	}
	if err := ewmh.WmNameSet(h.xu, win, name); err != nil {
		return err
	}
	return ewmh.SupportedSet(h.xu, []string{
		"_NET_SUPPORTING_WM_CHECK",
		"_NET_WM_NAME",
		"_NET_WM_STATE",
		"_NET_WM_STATE_FULLSCREEN",
		"_NET_WM_ALLOWED_ACTIONS",
	})
}

// createFrame allocates a frame id, creates the frame window and adopts the
// client into it. The save-set insert and reparent run under a server grab
// so no other client can observe the half-created frame; a failure inside
// the grab aborts the adoption and tears the frame down again.
func (h *connHandler) createFrame(w *windowState) error {
	frame, err := xproto.NewWindowId(h.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate frame id: %v", err)
	}
	w.frame = frame

	err = xproto.CreateWindowChecked(h.conn, h.screen.RootDepth, frame, h.root,
		w.x, w.y, max16(w.width, 1), max16(w.height, 1), h.borderSize,
		xproto.WindowClassInputOutput, h.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwEventMask,
		[]uint32{h.mainPixel, h.mainPixel, uint32(frameEventMask)}).Check()
	if err != nil {
		return fmt.Errorf("failed to create frame: %v", err)
	}

	err = xproto.ChangeWindowAttributesChecked(h.conn, w.window,
		xproto.CwEventMask, []uint32{uint32(clientEventMask)}).Check()
	if err != nil {
		xproto.DestroyWindow(h.conn, frame)
		return fmt.Errorf("failed to select client events: %v", err)
	}

	xproto.GrabServer(h.conn)
	defer xproto.UngrabServer(h.conn)

	if err := xproto.ChangeSaveSetChecked(h.conn, xproto.SetModeInsert, w.window).Check(); err != nil {
		xproto.DestroyWindow(h.conn, frame)
		return fmt.Errorf("failed to add client to save-set: %v", err)
	}
	if err := xproto.ReparentWindowChecked(h.conn, w.window, frame, 0, 0).Check(); err != nil {
		xproto.ChangeSaveSet(h.conn, xproto.SetModeDelete, w.window)
		xproto.DestroyWindow(h.conn, frame)
		return fmt.Errorf("failed to reparent client: %v", err)
	}
	xproto.MapWindow(h.conn, frame)
	xproto.MapWindow(h.conn, w.window)
	return nil
}

// destroyFrame releases the client: it is removed from the save-set,
// reparented back to the root at its last known coordinates, and the frame
// window is destroyed.
func (h *connHandler) destroyFrame(w *windowState) {
	xproto.ChangeSaveSet(h.conn, xproto.SetModeDelete, w.window)
	xproto.ReparentWindow(h.conn, w.window, h.root, w.x, w.y)
	xproto.DestroyWindow(h.conn, w.frame)
}

func (h *connHandler) mapWindow(w *windowState) {
	xproto.MapWindow(h.conn, w.frame)
	xproto.MapWindow(h.conn, w.window)
}

func (h *connHandler) unmapWindow(w *windowState) {
	xproto.UnmapWindow(h.conn, w.window)
	xproto.UnmapWindow(h.conn, w.frame)
}

// configWindowFromState pushes a record's geometry to the server: the frame
// gets the outer rectangle, the client fills the frame.
func (h *connHandler) configWindowFromState(w *windowState) {
	const mask = xproto.ConfigWindowX | xproto.ConfigWindowY |
		xproto.ConfigWindowWidth | xproto.ConfigWindowHeight
	xproto.ConfigureWindow(h.conn, w.frame, mask, []uint32{
		uint32(uint16(w.x)), uint32(uint16(w.y)), uint32(w.width), uint32(w.height),
	})
	xproto.ConfigureWindow(h.conn, w.window, mask, []uint32{
		0, 0, uint32(w.width), uint32(w.height),
	})
}

// configureRequest forwards a client's ConfigureRequest. For managed windows
// sibling and stack-mode are always stripped; unmanaged windows pass through
// unchanged.
func (h *connHandler) configureRequest(ev xproto.ConfigureRequestEvent, managed bool) {
	mask := ev.ValueMask
	if managed {
		mask &^= xproto.ConfigWindowSibling | xproto.ConfigWindowStackMode
	}
	values := make([]uint32, 0, 7)
	if mask&xproto.ConfigWindowX != 0 {
		values = append(values, uint32(uint16(ev.X)))
	}
	if mask&xproto.ConfigWindowY != 0 {
		values = append(values, uint32(uint16(ev.Y)))
	}
	if mask&xproto.ConfigWindowWidth != 0 {
		values = append(values, uint32(ev.Width))
	}
	if mask&xproto.ConfigWindowHeight != 0 {
		values = append(values, uint32(ev.Height))
	}
	if mask&xproto.ConfigWindowBorderWidth != 0 {
		values = append(values, uint32(ev.BorderWidth))
	}
	if mask&xproto.ConfigWindowSibling != 0 {
		values = append(values, uint32(ev.Sibling))
	}
	if mask&xproto.ConfigWindowStackMode != 0 {
		values = append(values, uint32(ev.StackMode))
	}
	xproto.ConfigureWindow(h.conn, ev.Window, mask, values)
}

// setFocusWindow gives the client the input focus and repaints every frame
// border: the focused frame gets the accent pixel, all others the base
// pixel. Border widths are re-applied here so a window leaving fullscreen
// gets its border back.
func (h *connHandler) setFocusWindow(windows []windowState, focused *windowState) {
	xproto.SetInputFocus(h.conn, xproto.InputFocusParent, focused.window, xproto.TimeCurrentTime)
	for i := range windows {
		w := &windows[i]
		border := uint32(h.borderSize)
		if w.group == groupFloating {
			border = 0
		}
		xproto.ConfigureWindow(h.conn, w.frame, xproto.ConfigWindowBorderWidth, []uint32{border})
		pixel := h.mainPixel
		if w.window == focused.window {
			pixel = h.accentPixel
		}
		xproto.ChangeWindowAttributes(h.conn, w.frame, xproto.CwBorderPixel, []uint32{pixel})
	}
}

// setFocusToRoot parks the input focus on the PointerRoot sentinel; used
// when the active tag has no focusable window.
func (h *connHandler) setFocusToRoot() error {
	return xproto.SetInputFocusChecked(h.conn, xproto.InputFocusNone,
		xproto.Window(xproto.InputFocusPointerRoot), xproto.TimeCurrentTime).Check()
}

// killWindow asks a client to close itself via WM_DELETE_WINDOW on
// WM_PROTOCOLS.
func (h *connHandler) killWindow(win xproto.Window) error {
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   h.atoms.wmProtocols,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(h.atoms.wmDeleteWindow),
			uint32(xproto.TimeCurrentTime),
			0, 0, 0,
		}),
	}
	return xproto.SendEventChecked(h.conn, false, win,
		xproto.EventMaskNoEvent, string(ev.Bytes())).Check()
}

// setFullscreen stretches the record over the whole screen with no border
// and publishes _NET_WM_STATE_FULLSCREEN on the client.
func (h *connHandler) setFullscreen(w *windowState) {
	const mask = xproto.ConfigWindowX | xproto.ConfigWindowY |
		xproto.ConfigWindowWidth | xproto.ConfigWindowHeight |
		xproto.ConfigWindowBorderWidth
	xproto.ConfigureWindow(h.conn, w.frame, mask, []uint32{
		0, 0, uint32(w.width), uint32(w.height), 0,
	})
	xproto.ConfigureWindow(h.conn, w.window,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{0, 0, uint32(w.width), uint32(w.height)})

	data := make([]byte, 4)
	xgb.Put32(data, uint32(h.atoms.netWmStateFullscreen))
	xproto.ChangeProperty(h.conn, xproto.PropModeReplace, w.window,
		h.atoms.netWmState, xproto.AtomAtom, 32, 1, data)
}

// clearFullscreen removes the fullscreen state atom; the next refresh
// retiles the window.
func (h *connHandler) clearFullscreen(w *windowState) {
	xproto.DeleteProperty(h.conn, w.window, h.atoms.netWmState)
}

// windowTitle reads a client's title: _NET_WM_NAME (UTF-8) first, WM_NAME
// (Latin-1) as fallback, empty when neither is set.
func (h *connHandler) windowTitle(win xproto.Window) string {
	if name, err := ewmh.WmNameGet(h.xu, win); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(h.xu, win); err == nil {
		return name
	}
	return ""
}

// windowGeometry fetches a client's current geometry; used to seed the
// record at adoption so a failed or released client lands back where it was.
func (h *connHandler) windowGeometry(win xproto.Window) (x, y int16, width, height uint16, err error) {
	geom, err := xproto.GetGeometry(h.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to get geometry of %d: %v", win, err)
	}
	return geom.X, geom.Y, geom.Width, geom.Height, nil
}

// unmanagedWindows lists the mapped, non-override-redirect children of the
// root present before we became the WM; they get adopted at start-up.
func (h *connHandler) unmanagedWindows() ([]xproto.Window, error) {
	tree, err := xproto.QueryTree(h.conn, h.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %v", err)
	}
	var windows []xproto.Window
	for _, child := range tree.Children {
		attr, err := xproto.GetWindowAttributes(h.conn, child).Reply()
		if err != nil {
			continue
		}
		if !attr.OverrideRedirect && attr.MapState == xproto.MapStateViewable {
			windows = append(windows, child)
		}
	}
	return windows, nil
}

// spawnCommand runs cmd through the shell, fire-and-forget.
func spawnCommand(cmd string) {
	c := exec.Command("/bin/sh", "-c", cmd)
	if err := c.Start(); err != nil {
		log.Printf("Couldn't spawn %q: %v\n", cmd, err)
		return
	}
	go func() {
		_ = c.Wait()
	}()
}

func max16(v, min uint16) uint16 {
	if v < min {
		return min
	}
	return v
}
