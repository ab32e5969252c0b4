package main

import (
	"image"
	"image/draw"
	"log"
	"time"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/nf/hwbus/device"
	"github.com/nf/hwbus/machine"
)

// runGUI shows the VDP's display until the window is closed or the runner
// finishes. Key presses are latched on the PPI: the buttons of a joypad on
// port A and the last character typed on port B.
func runGUI(r *machine.Runner) (err error) {
	driver.Main(func(s screen.Screen) {
		var w screen.Window
		w, err = s.NewWindow(&screen.NewWindowOptions{
			Title:  "hwbus",
			Width:  device.FrameWidth * 2,
			Height: device.FrameHeight * 2,
		})
		if err != nil {
			return
		}
		defer w.Release()

		type update struct{}
		go func() {
			t := time.NewTicker(time.Second / 60)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					w.Send(update{})
				case <-r.Dead():
					w.Send(update{})
					return
				}
			}
		}()

		fsz := image.Pt(device.FrameWidth, device.FrameHeight)
		var (
			buf screen.Buffer
			tex screen.Texture
		)
		if buf, err = s.NewBuffer(fsz); err != nil {
			return
		}
		defer buf.Release()
		if tex, err = s.NewTexture(fsz); err != nil {
			return
		}
		defer tex.Release()

		var (
			sz  size.Event
			pad joypad
		)
		for {
			e := w.NextEvent()

			select {
			case <-r.Dead():
				return
			default:
			}

			switch e := e.(type) {
			case size.Event:
				sz = e
				if sz.WidthPx+sz.HeightPx == 0 {
					return
				}

			case lifecycle.Event:
				if e.To == lifecycle.StageDead {
					return
				}

			case key.Event:
				if pad.set(e) {
					buttons, char := pad.buttons, pad.char
					r.Do(func(m *machine.Machine) {
						m.SetInput(device.PPIPortA, buttons)
						m.SetInput(device.PPIPortB, char)
					})
				}

			case update, paint.Event:
				var frame *image.RGBA
				r.Do(func(m *machine.Machine) { frame = m.Frame() })
				if frame == nil {
					break
				}
				copy(buf.RGBA().Pix, frame.Pix)
				tex.Upload(image.Point{}, buf, buf.Bounds())
				w.Scale(sz.Bounds(), tex, tex.Bounds(), draw.Src, nil)
				w.Publish()

			case error:
				log.Print(e)
			}
		}
	})
	return err
}

// joypad tracks the keyboard as a set of buttons and a character.
type joypad struct {
	buttons byte
	char    byte
}

var joypadButtons = map[key.Code]byte{
	key.CodeLeftControl: 0x01,
	key.CodeLeftAlt:     0x02,
	key.CodeLeftShift:   0x04,
	key.CodeHome:        0x08,
	key.CodeUpArrow:     0x10,
	key.CodeDownArrow:   0x20,
	key.CodeLeftArrow:   0x40,
	key.CodeRightArrow:  0x80,
}

// set applies e and reports whether the pad changed.
func (p *joypad) set(e key.Event) bool {
	old := *p
	if bit, ok := joypadButtons[e.Code]; ok {
		switch e.Direction {
		case key.DirPress:
			p.buttons |= bit
		case key.DirRelease:
			p.buttons &^= bit
		}
	} else if e.Rune > 0 && e.Rune < 0x80 {
		switch e.Direction {
		case key.DirPress:
			p.char = byte(e.Rune)
		case key.DirRelease:
			p.char = 0
		}
	}
	return *p != old
}
