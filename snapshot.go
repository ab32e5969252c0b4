package main

import (
	"errors"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// writeSnapshot writes frame, scaled up by scale, to file as a PNG.
func writeSnapshot(file string, frame *image.RGBA, scale int) error {
	if frame == nil {
		return errors.New("snapshot: machine has no display")
	}
	img := scaleFrame(frame, scale)
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func scaleFrame(frame *image.RGBA, scale int) *image.RGBA {
	if scale <= 1 {
		return frame
	}
	b := frame.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(img, img.Bounds(), frame, b, draw.Src, nil)
	return img
}
