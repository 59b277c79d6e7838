package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/zenith3d/zenith/rt/bvh"
	"github.com/zenith3d/zenith/rt/core"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Projection selects the two world axes mapped onto the image.
type Projection uint8

const (
	ProjectXZ Projection = iota // top-down
	ProjectXY                   // front
	ProjectZY                   // side
)

func (p Projection) axes() (int, int) {
	switch p {
	case ProjectXY:
		return 0, 1
	case ProjectZY:
		return 2, 1
	}
	return 0, 2
}

type ImageOptions struct {
	Width, Height int
	Projection    Projection
	Margin        int
	// MaxDepth limits which levels are outlined; 0 draws all.
	MaxDepth int
	Labels   bool
}

func DefaultImageOptions() ImageOptions {
	return ImageOptions{Width: 512, Height: 512, Margin: 16, Labels: true}
}

var (
	background = color.RGBA{R: 18, G: 18, B: 24, A: 255}
	leafFill   = color.RGBA{R: 80, G: 160, B: 90, A: 255}
	textColor  = color.RGBA{R: 230, G: 230, B: 230, A: 255}

	// Interior outlines cycle through these by depth.
	depthPalette = []color.RGBA{
		{R: 240, G: 80, B: 80, A: 255},
		{R: 240, G: 170, B: 60, A: 255},
		{R: 220, G: 220, B: 70, A: 255},
		{R: 90, G: 200, B: 230, A: 255},
		{R: 150, G: 110, B: 240, A: 255},
	}
)

// RenderBVH draws the node bounds of b projected onto an axis plane.
// Leaves are filled, interior nodes outlined in a colour per depth.
func RenderBVH(b *bvh.BVH, opts ImageOptions) *image.RGBA {
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultImageOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	// At least one pixel of drawing area is left inside the margins.
	opts.Margin = max(0, min(opts.Margin, (min(opts.Width, opts.Height)-1)/2))
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	nodes := b.Nodes()
	if len(nodes) == 0 {
		if opts.Labels {
			drawLabel(img, 4, 14, "empty bvh")
		}
		return img
	}

	ax, ay := opts.Projection.axes()
	root := nodes[0].Bounds
	toPixel := viewport(root, ax, ay, opts)

	type item struct{ index, depth int }
	stack := []item{{0, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &nodes[it.index]
		r := toPixel(n.Bounds)
		if n.IsLeaf() {
			fillRect(img, r, leafFill)
			continue
		}
		if opts.MaxDepth == 0 || it.depth < opts.MaxDepth {
			strokeRect(img, r, depthPalette[it.depth%len(depthPalette)])
		}
		stack = append(stack, item{n.SecondChild(), it.depth + 1}, item{it.index + 1, it.depth + 1})
	}

	if opts.Labels {
		st := b.Stats()
		drawLabel(img, 4, 14, fmt.Sprintf("nodes %d  leaves %d  depth %d", st.Nodes, st.Leaves, st.Depth))
	}
	return img
}

// viewport returns a mapping from world boxes to pixel rectangles that fits
// root inside the image margins, preserving aspect ratio. Image Y grows down.
func viewport(root core.AABBox, ax, ay int, opts ImageOptions) func(core.AABBox) image.Rectangle {
	w := float32(opts.Width - 2*opts.Margin)
	h := float32(opts.Height - 2*opts.Margin)
	spanX := root.Maximum[ax] - root.Minimum[ax]
	spanY := root.Maximum[ay] - root.Minimum[ay]

	scale := float32(1)
	switch {
	case spanX > 0 && spanY > 0:
		scale = min(w/spanX, h/spanY)
	case spanX > 0:
		scale = w / spanX
	case spanY > 0:
		scale = h / spanY
	}

	px := func(v float32) int { return opts.Margin + int((v-root.Minimum[ax])*scale) }
	py := func(v float32) int { return opts.Height - opts.Margin - int((v-root.Minimum[ay])*scale) }

	return func(b core.AABBox) image.Rectangle {
		return image.Rect(px(b.Minimum[ax]), py(b.Maximum[ay]), px(b.Maximum[ax])+1, py(b.Minimum[ay])+1)
	}
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Over)
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

func drawLabel(img *image.RGBA, x, y int, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode bvh image: %w", err)
	}
	return nil
}
