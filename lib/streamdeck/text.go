package streamdeck

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const labelMargin = 4

var labelFace = basicfont.Face7x13

// wrapLabel breaks text into lines no wider than width, splitting on
// newlines and then on spaces. A word that is still too wide is cut.
func wrapLabel(text string, width int) []string {
	fits := func(s string) bool {
		return font.MeasureString(labelFace, s).Ceil() <= width
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			for !fits(word) && len(word) > 1 {
				word = word[:len(word)-1]
			}
			switch {
			case line == "":
				line = word
			case fits(line + " " + word):
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// TextImage renders text centred on a size x size key face. Lines that do
// not fit vertically are dropped from the bottom.
func TextImage(size int, bg color.Color, fg color.Color, text string) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)

	m := labelFace.Metrics()
	lineHeight := m.Height.Ceil()
	lines := wrapLabel(text, size-2*labelMargin)
	if rows := (size - 2*labelMargin) / lineHeight; len(lines) > rows {
		lines = lines[:rows]
	}

	top := (size-lineHeight*len(lines))/2 + m.Ascent.Ceil()
	d := &font.Drawer{Dst: img, Src: &image.Uniform{fg}, Face: labelFace}
	for i, line := range lines {
		x := (size - d.MeasureString(line).Ceil()) / 2
		d.Dot = fixed.P(x, top+i*lineHeight)
		d.DrawString(line)
	}
	return img
}

func (d *Device) SetKeyText(key int, bg color.Color, fg color.Color, text string) error {
	return d.SetKeyImage(key, TextImage(d.model.KeySize, bg, fg, text))
}
