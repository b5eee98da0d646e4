package render

import (
	"bytes"
	"encoding/xml"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

var (
	red   = color.RGBA{0xff, 0, 0, 0xff}
	black = color.RGBA{0, 0, 0, 0xff}
)

func drawAll(s Sink) {
	s.Line(r2.Vec{X: 10, Y: 10}, r2.Vec{X: 90, Y: 90}, red, 1.5)
	s.Point(r2.Vec{X: 20, Y: 20}, red, Circle, 5)
	s.Point(r2.Vec{X: 50, Y: 50}, red, Square, 4)
	s.Point(r2.Vec{X: 80, Y: 80}, red, Diamond, 6)
	s.Text(r2.Vec{X: 50, Y: 40}, black, "a <b> & c")
}

func TestSVG(t *testing.T) {
	var buf bytes.Buffer
	c, err := New(FormatSVG, &buf, 100, 100, black)
	if err != nil {
		t.Fatal(err)
	}
	drawAll(c)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	var doc interface{}
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid XML: %v\n%s", err, buf.String())
	}
	out := buf.String()
	for _, want := range []string{"<svg", "<circle", "<rect", "<polygon", "<line", "<text", "#ff0000", "a &lt;b&gt; &amp; c"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestSVG_TranslucentFill(t *testing.T) {
	var buf bytes.Buffer
	c := NewSVG(&buf, 10, 10, black)
	// Red at quarter alpha, premultiplied.
	c.Point(r2.Vec{X: 5, Y: 5}, color.RGBA{0x40, 0, 0, 0x40}, Circle, 2)
	c.Point(r2.Vec{X: 5, Y: 5}, color.RGBA{}, Circle, 2)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"fill:#ff0000;fill-opacity:0.25", "fill:#000000;fill-opacity:0.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	c, err := New(FormatPNG, &buf, 100, 80, black)
	if err != nil {
		t.Fatal(err)
	}
	drawAll(c)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 80 {
		t.Errorf("bounds = %v", b)
	}
	r, _, _, _ := img.At(20, 20).RGBA()
	if r>>8 != 0xff {
		t.Errorf("circle center not filled: r=%d", r>>8)
	}
	r, _, _, _ = img.At(2, 78).RGBA()
	if r != 0 {
		t.Errorf("background not black: r=%d", r)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	drawAll(&r)
	if len(r.Ops) != 5 {
		t.Fatalf("ops = %d", len(r.Ops))
	}
	points := r.Filter(OpPoint)
	if len(points) != 3 || points[2].Shape != Diamond || points[2].Size != 6 {
		t.Errorf("points = %+v", points)
	}
	if texts := r.Filter(OpText); len(texts) != 1 || texts[0].Label != "a <b> & c" {
		t.Errorf("texts = %+v", texts)
	}
	r.Reset()
	if len(r.Ops) != 0 {
		t.Error("Reset kept ops")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("PNG"); err != nil || f != FormatPNG || f.ContentType() != "image/png" {
		t.Errorf("ParseFormat(PNG) = %q, %v", f, err)
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Error("expected error for gif")
	}
	if _, err := New("gif", &bytes.Buffer{}, 1, 1, black); err == nil {
		t.Error("New should reject unknown formats")
	}
}
