// This file is part of the program "tagwm".
// Please see the LICENSE file for copyright information.

package main

import (
	"log"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// eventHandler routes each X event variant to its handler. Handlers mutate
// the state handler first and issue side effects through the connection
// handler; every branch that changes visible state ends in refresh.
type eventHandler struct {
	conn *connHandler
	man  *stateHandler
	keys *keyHandler
}

// dispatch handles one event; a handler error is logged and dropped so the
// loop keeps running.
func (e *eventHandler) dispatch(ev xgb.Event) {
	if err := e.handleEvent(ev); err != nil {
		log.Printf("Couldn't handle %T: %v\n", ev, err)
	}
}

func (e *eventHandler) handleEvent(ev xgb.Event) error {
	switch event := ev.(type) {
	case xproto.MapRequestEvent:
		return e.handleMapRequest(event)
	case xproto.UnmapNotifyEvent:
		return e.handleUnmapNotify(event)
	case xproto.ConfigureRequestEvent:
		e.handleConfigureRequest(event)
		return nil
	case xproto.EnterNotifyEvent:
		return e.handleEnterNotify(event)
	case xproto.KeyPressEvent:
		return e.handleKeyPress(event)
	case xproto.ClientMessageEvent:
		return e.handleClientMessage(event)
	case xproto.ExposeEvent:
		if event.Window == e.man.bar.window && event.Count == 0 {
			e.conn.drawBar(e.man)
		}
		return nil
	case xproto.PropertyNotifyEvent:
		// A status program updates the root's WM_NAME; pick it up without
		// waiting for the next tick.
		if event.Window == e.conn.root {
			e.conn.drawStatus(e.man)
		}
		return nil
	default:
		return nil
	}
}

// handleMapRequest adopts an unknown client: frame it, append it to the
// active tag as the new master, focus it. Requests for clients we already
// manage are ignored.
func (e *eventHandler) handleMapRequest(ev xproto.MapRequestEvent) error {
	if e.man.windowByID(ev.Window) != nil {
		return nil
	}
	log.Printf("map request for window %d\n", ev.Window)

	w := windowState{window: ev.Window, group: groupStack}
	x, y, width, height, err := e.conn.windowGeometry(ev.Window)
	if err == nil {
		w.x, w.y, w.width, w.height = x, y, width, height
	}
	if err := e.conn.createFrame(&w); err != nil {
		// The client may already be gone; leave it unmanaged.
		return err
	}
	e.man.addWindow(w)
	return e.refresh()
}

// handleUnmapNotify releases a known client of the active tag: the frame is
// destroyed, the record removed and focus falls back to the master. Unmaps
// of unknown windows (foreign, or our own tag-switch unmaps arriving late)
// are ignored.
func (e *eventHandler) handleUnmapNotify(ev xproto.UnmapNotifyEvent) error {
	i := e.man.windowIndex(ev.Window)
	if i < 0 {
		return nil
	}
	w := e.man.activeWindows()[i]
	log.Printf("unmapping window %d\n", w.window)
	e.conn.destroyFrame(&w)
	e.man.removeWindow(i)
	e.man.setTagFocusToMaster()
	return e.refresh()
}

func (e *eventHandler) handleConfigureRequest(ev xproto.ConfigureRequestEvent) {
	managed := e.man.windowByID(ev.Window) != nil
	e.conn.configureRequest(ev, managed)
}

func (e *eventHandler) handleEnterNotify(ev xproto.EnterNotifyEvent) error {
	w := e.man.windowByID(ev.Event)
	if w == nil {
		w = e.man.windowByID(ev.Child)
	}
	if w == nil {
		return nil
	}
	e.man.tags[e.man.activeTag].focus = w.window
	return e.refresh()
}

func (e *eventHandler) handleKeyPress(ev xproto.KeyPressEvent) error {
	action, ok := e.keys.lookup(ev.State, ev.Detail)
	if !ok {
		return nil
	}
	if err := e.runAction(action); err != nil {
		return err
	}
	return e.refresh()
}

func (e *eventHandler) runAction(a hotkeyAction) error {
	switch a.kind {
	case actionSpawn:
		spawnCommand(a.cmd)
	case actionExitFocused:
		focus := e.man.focus()
		if focus == 0 {
			return nil
		}
		return e.conn.killWindow(focus)
	case actionSwitchTag:
		e.changeActiveTag(a.num - 1)
	case actionMoveWindow:
		e.moveWindow(a.num - 1)
	case actionChangeRatio:
		e.man.changeRatio(a.ratio)
	case actionNextFocus:
		e.man.switchFocusNext(a.num)
	case actionNextTag:
		e.changeActiveTag(euclidMod(e.man.activeTag+a.num, numTags))
	case actionSwapMaster:
		e.man.swapMaster()
	}
	return nil
}

// handleClientMessage accepts _NET_WM_STATE fullscreen transitions: 1 adds,
// 0 removes, 2 toggles to the opposite of the current group.
func (e *eventHandler) handleClientMessage(ev xproto.ClientMessageEvent) error {
	if ev.Type != e.conn.atoms.netWmState || ev.Format != 32 {
		return nil
	}
	data := ev.Data.Data32
	if xproto.Atom(data[1]) != e.conn.atoms.netWmStateFullscreen {
		return nil
	}
	w := e.man.windowByID(ev.Window)
	if w == nil {
		return nil
	}

	action := data[0]
	if action == 2 {
		if w.group == groupFloating {
			action = 0
		} else {
			action = 1
		}
	}
	switch action {
	case 0:
		w.group = groupStack
		e.conn.clearFullscreen(w)
	case 1:
		w.group = groupFloating
		w.x = 0
		w.y = 0
		w.width = e.conn.screen.WidthInPixels
		w.height = e.conn.screen.HeightInPixels
		e.conn.setFullscreen(w)
	default:
		return nil
	}
	return e.refresh()
}

// changeActiveTag unmaps the old tag, switches, and maps the new one.
// Switching to the already active tag is a no-op.
func (e *eventHandler) changeActiveTag(t int) {
	if t == e.man.activeTag {
		return
	}
	log.Printf("changing tag %d -> %d\n", e.man.activeTag, t)
	windows := e.man.activeWindows()
	for i := range windows {
		e.conn.unmapWindow(&windows[i])
	}
	e.man.activeTag = t
	windows = e.man.activeWindows()
	for i := range windows {
		e.conn.mapWindow(&windows[i])
	}
}

// moveWindow sends the focused window to tag t; the window is unmapped and
// the source tag's focus falls back to its master.
func (e *eventHandler) moveWindow(t int) {
	if t == e.man.activeTag {
		return
	}
	focus := e.man.focus()
	w := e.man.windowByID(focus)
	if w == nil {
		return
	}
	log.Printf("moving window %d to tag %d\n", w.window, t)
	e.conn.unmapWindow(w)
	e.man.moveFocused(t)
}

// refresh is the single point where state becomes visible: classify the
// active tag, run the tiler, push the geometry, re-apply focus and borders,
// redraw the bar.
func (e *eventHandler) refresh() error {
	e.man.classify()
	tileWindows(e.man.activeWindows(), e.man.tiling)

	windows := e.man.activeWindows()
	for i := range windows {
		e.conn.configWindowFromState(&windows[i])
	}

	if focus := e.man.focus(); focus != 0 {
		if w := e.man.windowByID(focus); w != nil {
			e.conn.setFocusWindow(windows, w)
		}
	} else {
		if err := e.conn.setFocusToRoot(); err != nil {
			return err
		}
	}

	e.conn.drawBar(e.man)
	return nil
}

// adoptExisting frames the clients that were already mapped when we became
// the WM.
func (e *eventHandler) adoptExisting() {
	windows, err := e.conn.unmanagedWindows()
	if err != nil {
		log.Printf("Couldn't scan existing windows: %v\n", err)
		return
	}
	for _, win := range windows {
		if win == e.man.bar.window || win == e.conn.heartbeat {
			continue
		}
		if err := e.handleMapRequest(xproto.MapRequestEvent{Window: win}); err != nil {
			log.Printf("Couldn't adopt window %d: %v\n", win, err)
		}
	}
}
