package system

import (
	"image"
	"image/color"
	"sync"
)

// CanvasPool hands out preview canvases already filled with a background
// colour, keeping released ones for later renders of the same size.
type CanvasPool struct {
	mu    sync.Mutex
	sizes map[image.Point]*sync.Pool
}

func NewCanvasPool() *CanvasPool {
	return &CanvasPool{sizes: make(map[image.Point]*sync.Pool)}
}

var canvases = NewCanvasPool()

// Canvas returns a w by h canvas from the shared pool, filled with bg.
func Canvas(w, h int, bg color.Color) *image.RGBA {
	return canvases.Get(w, h, bg)
}

// Release hands a canvas from Canvas back to the shared pool.
func Release(img *image.RGBA) {
	canvases.Put(img)
}

func (p *CanvasPool) pool(size image.Point) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp := p.sizes[size]
	if sp == nil {
		sp = &sync.Pool{
			New: func() any {
				return image.NewRGBA(image.Rectangle{Max: size})
			},
		}
		p.sizes[size] = sp
	}
	return sp
}

// Get returns a w by h canvas anchored at the origin with every pixel set
// to bg.
func (p *CanvasPool) Get(w, h int, bg color.Color) *image.RGBA {
	img := p.pool(image.Pt(w, h)).Get().(*image.RGBA)
	fill(img, bg)
	return img
}

// Put keeps img for reuse. Canvases not anchored at the origin are dropped.
func (p *CanvasPool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) || img.Rect.Empty() {
		return
	}
	p.pool(img.Rect.Size()).Put(img)
}

func fill(img *image.RGBA, bg color.Color) {
	c := color.RGBAModel.Convert(bg).(color.RGBA)
	px := img.Pix
	if len(px) < 4 {
		return
	}
	px[0], px[1], px[2], px[3] = c.R, c.G, c.B, c.A
	for n := 4; n < len(px); n *= 2 {
		copy(px[n:], px[:n])
	}
}
