package engine

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// twoTonePNG draws dark glyph-like blocks on a light background.
func twoTonePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 235, G: 235, B: 230, A: 255}
			if x > w/4 && x < w/2 && y > h/4 && y < h/2 {
				c = color.RGBA{R: 20, G: 20, B: 25, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func TestPreprocessImageProducesPNG(t *testing.T) {
	out, err := preprocessImage(twoTonePNG(t, 40, 30))
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if format != "png" {
		t.Errorf("expected png output, got %s", format)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("dimensions changed: %v", img.Bounds())
	}
}

func TestPreprocessImageRejectsGarbage(t *testing.T) {
	if _, err := preprocessImage([]byte("definitely not an image")); err == nil {
		t.Error("expected a decode error")
	}
}

func TestOtsuThresholdSeparatesTwoClasses(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			v := uint8(230)
			if x < 5 {
				v = 30
			}
			gray.SetGray(x, y, color.Gray{Y: v})
		}
	}

	threshold := otsuThreshold(gray)
	if threshold < 30 || threshold >= 230 {
		t.Errorf("threshold %d does not separate the two classes", threshold)
	}
}

func TestApplyThresholdBinarizes(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 1))
	for i, v := range []uint8{10, 90, 170, 250} {
		gray.SetGray(i, 0, color.Gray{Y: v})
	}

	out := applyThreshold(gray, 128)
	want := []uint8{0, 0, 255, 255}
	for i, w := range want {
		if got := out.GrayAt(i, 0).Y; got != w {
			t.Errorf("pixel %d: got %d, want %d", i, got, w)
		}
	}
}
