// This file is part of the program "tagwm".
// Please see the LICENSE file for copyright information.

package main

// tileWindows computes the master/stack geometry for one tag's window list
// and writes it into the records in place. It is deterministic: the output
// depends only on the list and the tiling parameters. Floating windows keep
// whatever geometry they already have.
//
// The first stack cell shares the bar reservation and the top gap with the
// master column, so its y and height are adjusted once; the cells below it
// do not re-pay that allowance.
func tileWindows(windows []windowState, ti tilingInfo) {
	gap := int(ti.gap)
	barH := int(ti.barHeight)
	maxW := int(ti.width)
	maxH := int(ti.height)

	stackCount := 0
	for i := range windows {
		if windows[i].group == groupStack {
			stackCount++
		}
	}

	stackIndex := 0
	for i := range windows {
		w := &windows[i]
		switch w.group {
		case groupMaster:
			w.x = int16(gap)
			w.y = int16(gap + barH)
			if stackCount == 0 {
				w.width = uint16(maxW - gap*2)
			} else {
				w.width = uint16(int(float64(maxW)*(1.0-ti.ratio)) - gap*2)
			}
			w.height = uint16(maxH - gap*2 - barH)
		case groupStack:
			slot := maxH / stackCount
			w.x = int16(int(float64(maxW) * (1.0 - ti.ratio)))
			w.width = uint16(int(float64(maxW)*ti.ratio) - gap)
			if stackIndex == 0 {
				w.y = int16(gap + barH)
				w.height = uint16(slot - gap*2 - barH)
			} else {
				w.y = int16(stackIndex * slot)
				w.height = uint16(slot - gap)
			}
			stackIndex++
		}
	}
}
