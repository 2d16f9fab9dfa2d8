package streamdeck

import (
	"image/color"
	"testing"
)

func TestWrapLabel(t *testing.T) {
	// basicfont 7x13 advances 7px per glyph.
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"ORGAN", 64, []string{"ORGAN"}},
		{"choir left", 64, []string{"choir", "left"}},
		{"a b", 64, []string{"a b"}},
		{"PRESET3\nslot 3", 64, []string{"PRESET3", "slot 3"}},
		{"ABCDEFGHIJKL", 28, []string{"ABCD"}},
	}
	for _, tt := range tests {
		got := wrapLabel(tt.text, tt.width)
		if len(got) != len(tt.want) {
			t.Errorf("%q: got %q, want %q", tt.text, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%q: got %q, want %q", tt.text, got, tt.want)
				break
			}
		}
	}
}

func TestTextImageSizeAndBackground(t *testing.T) {
	bg := color.RGBA{0x10, 0x20, 0x30, 0xff}
	img := TextImage(72, bg, color.White, "ORGAN")
	if b := img.Bounds(); b.Dx() != 72 || b.Dy() != 72 {
		t.Fatalf("got %v, want 72x72", b)
	}
	if got := color.RGBAModel.Convert(img.At(0, 0)); got != bg {
		t.Errorf("corner is %v, want background %v", got, bg)
	}
}
