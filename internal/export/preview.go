package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/layer"
	"github.com/kidonaru/COM3D2.MotionTimelineEditor.Plugin-sub004/internal/system"
)

// PreviewOptions sizes a curve preview.
type PreviewOptions struct {
	Width, Height int
	// LineWidth is the stroke width of each channel curve in pixels.
	LineWidth float32
}

const previewMargin = 20

var (
	previewBackground = color.RGBA{24, 24, 28, 255}
	previewGrid       = color.RGBA{60, 60, 68, 255}
	previewKey        = color.RGBA{240, 240, 240, 255}
	previewText       = color.RGBA{200, 200, 200, 255}

	channelColors = []color.RGBA{
		{230, 80, 80, 255},
		{90, 200, 90, 255},
		{80, 140, 240, 255},
		{230, 190, 60, 255},
		{190, 100, 220, 255},
		{70, 200, 200, 255},
	}
)

// RenderCurves plots every numeric channel of bone, sampled once per frame
// over the layer length, with a marker at each key. The canvas comes from
// the shared pool; hand it back with system.Release when done.
func RenderCurves(l *layer.Layer, bone string, opts PreviewOptions) (*image.RGBA, error) {
	keys := l.BoneKeys(bone)
	if len(keys) == 0 {
		return nil, fmt.Errorf("export: %s has no keys in layer %s", bone, l.Name())
	}
	if opts.Width <= 2*previewMargin || opts.Height <= 2*previewMargin {
		return nil, fmt.Errorf("export: preview size %dx%d too small", opts.Width, opts.Height)
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = 1.5
	}

	length := l.Length()
	if length < 1 {
		length = 1
	}
	samples := make([][]float64, length+1)
	lo, hi := math.Inf(1), math.Inf(-1)
	for f := 0; f <= length; f++ {
		v, err := l.ValueAt(bone, float64(f))
		if err != nil {
			return nil, fmt.Errorf("export: sample %s at %d: %w", bone, f, err)
		}
		samples[f] = v.Channels()
		for _, c := range samples[f] {
			lo = math.Min(lo, c)
			hi = math.Max(hi, c)
		}
	}
	if math.IsInf(lo, 0) {
		lo, hi = 0, 1
	}
	if hi-lo < 1e-9 {
		lo, hi = lo-0.5, hi+0.5
	}

	img := system.Canvas(opts.Width, opts.Height, previewBackground)

	plotW := float32(opts.Width - 2*previewMargin)
	plotH := float32(opts.Height - 2*previewMargin)
	px := func(frame float64) float32 {
		return previewMargin + float32(frame/float64(length))*plotW
	}
	py := func(v float64) float32 {
		return previewMargin + plotH - float32((v-lo)/(hi-lo))*plotH
	}

	for i := 0; i <= 4; i++ {
		y := previewMargin + plotH*float32(i)/4
		strokeLine(img, previewGrid, previewMargin, y, previewMargin+plotW, y, 1)
	}

	channels := len(samples[0])
	for c := 0; c < channels; c++ {
		col := channelColors[c%len(channelColors)]
		for f := 1; f <= length; f++ {
			if c >= len(samples[f]) || c >= len(samples[f-1]) {
				continue
			}
			strokeLine(img, col,
				px(float64(f-1)), py(samples[f-1][c]),
				px(float64(f)), py(samples[f][c]), opts.LineWidth)
		}
	}

	for _, k := range keys {
		x := px(float64(k.FrameNo()))
		fillRect(img, previewKey, x-2, previewMargin+plotH-2, x+2, previewMargin+plotH+2)
	}

	label := fmt.Sprintf("%s/%s  %s  [%.3g, %.3g]", l.Name(), bone, keys[0].Type(), lo, hi)
	drawLabel(img, previewText, 4, 14, label)
	return img, nil
}

// strokeLine draws a segment of width w as a filled quad.
func strokeLine(dst *image.RGBA, c color.Color, x0, y0, x1, y1, w float32) {
	dx, dy := x1-x0, y1-y0
	n := float32(math.Hypot(float64(dx), float64(dy)))
	if n == 0 {
		return
	}
	ox, oy := -dy/n*w/2, dx/n*w/2

	r := vector.NewRasterizer(dst.Bounds().Dx(), dst.Bounds().Dy())
	r.DrawOp = draw.Over
	r.MoveTo(x0+ox, y0+oy)
	r.LineTo(x1+ox, y1+oy)
	r.LineTo(x1-ox, y1-oy)
	r.LineTo(x0-ox, y0-oy)
	r.ClosePath()
	r.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func fillRect(dst *image.RGBA, c color.Color, x0, y0, x1, y1 float32) {
	r := vector.NewRasterizer(dst.Bounds().Dx(), dst.Bounds().Dy())
	r.DrawOp = draw.Over
	r.MoveTo(x0, y0)
	r.LineTo(x1, y0)
	r.LineTo(x1, y1)
	r.LineTo(x0, y1)
	r.ClosePath()
	r.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func drawLabel(dst *image.RGBA, c color.Color, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// ImageFormat selects the preview encoding.
type ImageFormat string

const (
	PNG  ImageFormat = "png"
	WebP ImageFormat = "webp"
)

// ParseImageFormat accepts png or webp, ignoring case.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch ImageFormat(strings.ToLower(s)) {
	case PNG, "":
		return PNG, nil
	case WebP:
		return WebP, nil
	}
	return PNG, fmt.Errorf("export: unknown image format %s", s)
}

// EncodeImage writes img in format f.
func EncodeImage(w io.Writer, img image.Image, f ImageFormat) error {
	if f == WebP {
		return nativewebp.Encode(w, img, nil)
	}
	return png.Encode(w, img)
}
