// This file is part of the program "tagwm".
// Please see the LICENSE file for copyright information.

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

const configFile = "config.toml"

type rgb struct {
	r, g, b uint16
}

// config is the resolved configuration: clamped values, parsed colors.
type config struct {
	spacing        uint16
	ratio          float64
	borderSize     uint16
	mainColor      rgb
	secondaryColor rgb
	font           string
	hotkeys        []hotkeyConfig
}

// tomlConfig mirrors the on-disk layout.
type tomlConfig struct {
	Sizing  sizingConfig   `toml:"sizing"`
	Colors  colorsConfig   `toml:"colors"`
	Font    fontConfig     `toml:"font"`
	Hotkeys []hotkeyConfig `toml:"hotkeys"`
}

type sizingConfig struct {
	Spacing    uint32  `toml:"spacing"`
	Ratio      float64 `toml:"ratio"`
	BorderSize uint32  `toml:"border_size"`
}

type colorsConfig struct {
	MainColor      string `toml:"main_color"`
	SecondaryColor string `toml:"secondary_color"`
}

type fontConfig struct {
	Font string `toml:"font"`
}

type hotkeyConfig struct {
	Modifiers string       `toml:"modifiers"`
	Key       string       `toml:"key"`
	Action    hotkeyAction `toml:"action"`
}

var defaultMainColor = rgb{0x11 * 257, 0x11 * 257, 0x1b * 257}      // #11111b
var defaultSecondaryColor = rgb{0x74 * 257, 0xc7 * 257, 0xec * 257} // #74c7ec

// readConfig loads the TOML configuration from the XDG config directory,
// falling back to the compiled-in defaults if the file is missing or does
// not parse.
func readConfig() config {
	return loadConfig(filepath.Join(configDir(), configFile))
}

func loadConfig(path string) config {
	var raw tomlConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		log.Printf("Couldn't read config file, using defaults: %v\n", err)
		raw = defaultTomlConfig()
	}
	return resolveConfig(raw)
}

func resolveConfig(raw tomlConfig) config {
	main, err := hexColorToRGB(raw.Colors.MainColor)
	if err != nil {
		log.Printf("Bad main_color %q: %v\n", raw.Colors.MainColor, err)
		main = defaultMainColor
	}
	secondary, err := hexColorToRGB(raw.Colors.SecondaryColor)
	if err != nil {
		log.Printf("Bad secondary_color %q: %v\n", raw.Colors.SecondaryColor, err)
		secondary = defaultSecondaryColor
	}
	font := raw.Font.Font
	if font == "" {
		font = "fixed"
	}
	return config{
		spacing:        uint16(clampUint32(raw.Sizing.Spacing, 0, 1000)),
		ratio:          clampFloat(raw.Sizing.Ratio, 0.0, 1.0),
		borderSize:     uint16(clampUint32(raw.Sizing.BorderSize, 0, 1000)),
		mainColor:      main,
		secondaryColor: secondary,
		font:           font,
		hotkeys:        raw.Hotkeys,
	}
}

// hexColorToRGB parses "#RRGGBB" and scales each channel by 257 to produce
// the 16-bit values the X server's AllocColor wants.
func hexColorToRGB(hex string) (rgb, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return rgb{}, fmt.Errorf("want #RRGGBB, got %q", hex)
	}
	r, err := strconv.ParseUint(hex[1:3], 16, 8)
	if err != nil {
		return rgb{}, err
	}
	g, err := strconv.ParseUint(hex[3:5], 16, 8)
	if err != nil {
		return rgb{}, err
	}
	b, err := strconv.ParseUint(hex[5:7], 16, 8)
	if err != nil {
		return rgb{}, err
	}
	return rgb{uint16(r) * 257, uint16(g) * 257, uint16(b) * 257}, nil
}

func clampUint32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func defaultTomlConfig() tomlConfig {
	hotkeys := []hotkeyConfig{
		{Modifiers: "CONTROL|MOD", Key: "Return", Action: hotkeyAction{kind: actionSpawn, cmd: "alacritty"}},
		{Modifiers: "MOD", Key: "q", Action: hotkeyAction{kind: actionExitFocused}},
		{Modifiers: "MOD", Key: "c", Action: hotkeyAction{kind: actionSpawn, cmd: "rofi -show drun"}},
		{Modifiers: "MOD", Key: "u", Action: hotkeyAction{kind: actionSpawn, cmd: "maim --select | xclip -selection clipboard -t image/png"}},
		{Modifiers: "MOD", Key: "m", Action: hotkeyAction{kind: actionSwapMaster}},
		{Modifiers: "MOD", Key: "j", Action: hotkeyAction{kind: actionNextFocus, num: 1}},
		{Modifiers: "MOD", Key: "k", Action: hotkeyAction{kind: actionNextFocus, num: -1}},
		{Modifiers: "MOD", Key: "h", Action: hotkeyAction{kind: actionChangeRatio, ratio: -0.05}},
		{Modifiers: "MOD", Key: "l", Action: hotkeyAction{kind: actionChangeRatio, ratio: 0.05}},
		{Modifiers: "MOD", Key: "Left", Action: hotkeyAction{kind: actionNextTag, num: -1}},
		{Modifiers: "MOD", Key: "Right", Action: hotkeyAction{kind: actionNextTag, num: 1}},
	}
	for n := 1; n <= numTags; n++ {
		key := strconv.Itoa(n)
		hotkeys = append(hotkeys,
			hotkeyConfig{Modifiers: "MOD", Key: key, Action: hotkeyAction{kind: actionSwitchTag, num: n}},
			hotkeyConfig{Modifiers: "MOD|SHIFT", Key: key, Action: hotkeyAction{kind: actionMoveWindow, num: n}},
		)
	}
	return tomlConfig{
		Sizing:  sizingConfig{Spacing: 10, Ratio: 0.5, BorderSize: 1},
		Colors:  colorsConfig{MainColor: "#11111b", SecondaryColor: "#74c7ec"},
		Font:    fontConfig{Font: "fixed"},
		Hotkeys: hotkeys,
	}
}

func configDir() string {
	return filepath.Join(xdgOrFallback("XDG_CONFIG_HOME", filepath.Join(os.Getenv("HOME"), ".config")), "tagwm")
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func xdgOrFallback(xdg string, fallback string) string {
	dir := os.Getenv(xdg)
	if dir != "" {
		if ok, err := exists(dir); ok && err == nil {
			log.Printf("Resolved $%s to '%s'\n", xdg, dir)
			return dir
		}
	}

	log.Printf("Couldn't resolve $%s falling back to '%s'\n", xdg, fallback)
	return fallback
}
