// This file is part of the program "tagwm".
// Please see the LICENSE file for copyright information.

package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// Hotkey action kinds. A hotkeyAction is a tagged value: kind selects the
// variant, the other fields carry its argument.
type actionKind uint8

const (
	actionSpawn actionKind = iota
	actionExitFocused
	actionSwitchTag
	actionMoveWindow
	actionChangeRatio
	actionNextFocus
	actionNextTag
	actionSwapMaster
)

type hotkeyAction struct {
	kind  actionKind
	cmd   string  // actionSpawn
	num   int     // actionSwitchTag, actionMoveWindow, actionNextFocus, actionNextTag
	ratio float64 // actionChangeRatio
}

// UnmarshalTOML accepts either a bare string for argument-less actions
// ("exit_focused_window", "swap_master") or a one-key table for the rest:
// { spawn = "alacritty" }, { switch_tag = 3 }, { move_window = 3 },
// { next_focus = 1 }, { next_tag = -1 }, { change_ratio = 0.05 }.
func (a *hotkeyAction) UnmarshalTOML(v interface{}) error {
	switch val := v.(type) {
	case string:
		switch val {
		case "exit_focused_window":
			a.kind = actionExitFocused
		case "swap_master":
			a.kind = actionSwapMaster
		default:
			return fmt.Errorf("unknown hotkey action %q", val)
		}
		return nil
	case map[string]interface{}:
		for name, arg := range val {
			switch name {
			case "spawn":
				cmd, ok := arg.(string)
				if !ok {
					return fmt.Errorf("spawn action wants a string, got %T", arg)
				}
				a.kind = actionSpawn
				a.cmd = cmd
			case "switch_tag":
				a.kind = actionSwitchTag
				a.num = int(toInt64(arg))
			case "move_window":
				a.kind = actionMoveWindow
				a.num = int(toInt64(arg))
			case "next_focus":
				a.kind = actionNextFocus
				a.num = int(toInt64(arg))
			case "next_tag":
				a.kind = actionNextTag
				a.num = int(toInt64(arg))
			case "change_ratio":
				a.kind = actionChangeRatio
				a.ratio = toFloat64(arg)
			default:
				return fmt.Errorf("unknown hotkey action %q", name)
			}
			return nil
		}
		return fmt.Errorf("empty hotkey action table")
	}
	return fmt.Errorf("hotkey action wants a string or a table, got %T", v)
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

// hotkey is one built table entry: the exact modifier state and keycode the
// X server will report, plus the action to run.
type hotkey struct {
	mask   uint16
	code   xproto.Keycode
	action hotkeyAction
}

// keyHandler resolves KeyPress events into actions via a table built once at
// start-up from the configured bindings and the server's keyboard mapping.
type keyHandler struct {
	hotkeys []hotkey
}

// Named keysym aliases recognized in hotkey configuration. Anything else is
// taken as a Latin-1 keysym from the first character of the key string.
var namedKeysyms = map[string]xproto.Keysym{
	"Return":                0xff0d,
	"Left":                  0xff51,
	"Right":                 0xff53,
	"XF86AudioRaiseVolume":  0x1008ff13,
	"XF86AudioLowerVolume":  0x1008ff11,
	"XF86AudioMute":         0x1008ff12,
	"XF86MonBrightnessUp":   0x1008ff02,
	"XF86MonBrightnessDown": 0x1008ff03,
}

// parseModifiers turns a "|"-separated modifier string from the config into
// an X modifier bitmask. MOD is the Super (Mod4) key. Unknown tokens are
// ignored.
func parseModifiers(s string) uint16 {
	var mask uint16
	for _, tok := range strings.Split(s, "|") {
		switch strings.TrimSpace(tok) {
		case "CONTROL":
			mask |= xproto.ModMaskControl
		case "SHIFT":
			mask |= xproto.ModMaskShift
		case "MOD":
			mask |= xproto.ModMask4
		}
	}
	return mask
}

// parseKeysym resolves a configured key name to a keysym: named aliases
// first (with or without the XK_/XF86_ prefix spelling), otherwise the
// first character as a Latin-1 keysym.
func parseKeysym(name string) (xproto.Keysym, bool) {
	alias := strings.TrimPrefix(name, "XK_")
	alias = strings.Replace(alias, "XF86_", "XF86", 1)
	if sym, ok := namedKeysyms[alias]; ok {
		return sym, true
	}
	for _, r := range name {
		if r > 0xff {
			return 0, false
		}
		return xproto.Keysym(r), true
	}
	return 0, false
}

// buildHotkeys resolves each configured binding through symToCode. Bindings
// whose keysym has no keycode in the current mapping are dropped with a log
// line.
func buildHotkeys(cfgs []hotkeyConfig, symToCode func(xproto.Keysym) (xproto.Keycode, bool)) []hotkey {
	hotkeys := make([]hotkey, 0, len(cfgs))
	for _, c := range cfgs {
		sym, ok := parseKeysym(c.Key)
		if !ok {
			log.Printf("dropping hotkey %q: no keysym\n", c.Key)
			continue
		}
		code, ok := symToCode(sym)
		if !ok {
			log.Printf("dropping hotkey %q: keysym %#x has no keycode\n", c.Key, sym)
			continue
		}
		hotkeys = append(hotkeys, hotkey{
			mask:   parseModifiers(c.Modifiers),
			code:   code,
			action: c.Action,
		})
	}
	return hotkeys
}

// newKeyHandler fetches the server's keyboard mapping, builds the hotkey
// table and passively grabs each surviving entry on the root window so the
// server routes matching presses to us.
func newKeyHandler(conn *xgb.Conn, root xproto.Window, cfgs []hotkeyConfig) (*keyHandler, error) {
	setup := xproto.Setup(conn)
	minCode := setup.MinKeycode
	count := byte(setup.MaxKeycode - minCode + 1)
	mapping, err := xproto.GetKeyboardMapping(conn, minCode, count).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch keyboard mapping: %v", err)
	}
	if mapping == nil {
		return nil, fmt.Errorf("empty keyboard mapping reply")
	}

	symToCode := func(sym xproto.Keysym) (xproto.Keycode, bool) {
		per := int(mapping.KeysymsPerKeycode)
		for i := 0; i < int(count); i++ {
			for col := 0; col < per; col++ {
				if mapping.Keysyms[i*per+col] == sym {
					return minCode + xproto.Keycode(i), true
				}
			}
		}
		return 0, false
	}

	kh := &keyHandler{hotkeys: buildHotkeys(cfgs, symToCode)}
	for _, hk := range kh.hotkeys {
		err := xproto.GrabKeyChecked(
			conn,
			false,
			root,
			hk.mask,
			hk.code,
			xproto.GrabModeAsync,
			xproto.GrabModeAsync,
		).Check()
		if err != nil {
			return nil, fmt.Errorf("failed to grab key %d: %v", hk.code, err)
		}
	}
	return kh, nil
}

// lookup finds the first table entry matching the event's exact modifier
// state and keycode.
func (kh *keyHandler) lookup(state uint16, code xproto.Keycode) (hotkeyAction, bool) {
	for _, hk := range kh.hotkeys {
		if hk.mask == state && hk.code == code {
			return hk.action, true
		}
	}
	return hotkeyAction{}, false
}
