// This file is part of the program "tagwm".
// Please see the LICENSE file for copyright information.

package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgbutil"
)

var appName = "tagwm"

var version = "unknown" // will be changed by build

func main() {
	opt := parseCLIOpts()

	if opt.verbose {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}
	log.Printf("%s starting. Version: %s\n", appName, version)

	cfg := readConfig()

	conn, err := xgb.NewConn()
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Couldn't connect to the X server: %v\n", err)
	}
	defer conn.Close()

	xu, err := xgbutil.NewConnXgb(conn)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Couldn't wrap the X connection: %v\n", err)
	}

	ch, err := newConnHandler(conn, xu, cfg)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Couldn't initialize the display adapter: %v\n", err)
	}

	if err := ch.becomeWM(); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("%v\n", err)
	}
	log.Println("became wm")

	if err := ch.advertiseEWMH(appName); err != nil {
		log.Printf("Couldn't advertise EWMH support: %v\n", err)
	}

	man := newStateHandler(tilingInfo{
		width:     ch.screen.WidthInPixels,
		height:    ch.screen.HeightInPixels,
		gap:       cfg.spacing,
		ratio:     cfg.ratio,
		barHeight: ch.barHeight,
	})

	keys, err := newKeyHandler(conn, ch.root, cfg.hotkeys)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Couldn't build the hotkey table: %v\n", err)
	}

	bar, err := ch.createBar()
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Couldn't create the bar: %v\n", err)
	}
	man.bar = bar

	handler := &eventHandler{conn: ch, man: man, keys: keys}
	handler.adoptExisting()
	if err := handler.refresh(); err != nil {
		log.Printf("Initial refresh failed: %v\n", err)
	}

	run(conn, ch, handler)
}

// run is the event loop: one goroutine blocks on the connection and feeds a
// channel; the loop drains every pending event between selects and checks a
// 1 Hz tick that refreshes the status segment of the bar. Handler errors are
// logged and discarded; only a dead connection ends the process.
func run(conn *xgb.Conn, ch *connHandler, handler *eventHandler) {
	events := make(chan xgb.Event, 64)
	go func() {
		defer close(events)
		for {
			ev, xerr := conn.WaitForEvent()
			if ev == nil && xerr == nil {
				return
			}
			if xerr != nil {
				log.Printf("X error: %v\n", xerr)
				continue
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				log.SetOutput(os.Stderr)
				log.Fatalf("Connection to the X server lost\n")
			}
			handler.dispatch(ev)
		drain:
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						log.SetOutput(os.Stderr)
						log.Fatalf("Connection to the X server lost\n")
					}
					handler.dispatch(ev)
				default:
					break drain
				}
			}
		case <-ticker.C:
			ch.drawStatus(handler.man)
		}
	}
}
