package scope

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"

	"github.com/itohio/gowheel/pkg/history"
)

const (
	marginLeft   = float32(50)
	marginRight  = float32(10)
	marginTop    = float32(24)
	marginBottom = float32(10)
	gridLines    = 4
)

var (
	gridColor  = color.RGBA{R: 224, G: 224, B: 224, A: 255}
	labelColor = color.RGBA{R: 80, G: 80, B: 80, A: 255}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope   *ScopeWidget
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 160)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the trace for the current data and size.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	values := append([]float64(nil), r.scope.values...)
	rng := r.scope.rng
	hasData := r.scope.hasData
	r.scope.mu.RUnlock()

	r.objects = []fyne.CanvasObject{r.bg}

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	plot := fyne.NewSize(
		math32.Max(size.Width-marginLeft-marginRight, 1),
		math32.Max(size.Height-marginTop-marginBottom, 1),
	)
	origin := fyne.NewPos(marginLeft, marginTop)

	r.drawGrid(origin, plot)
	r.addText(r.scope.title, fyne.NewPos(size.Width/2, 4), fyne.TextAlignCenter, true)

	// Fewer than two samples have no meaningful range
	if !hasData {
		return
	}

	r.addText(formatValue(rng.Max, r.scope.unit), fyne.NewPos(marginLeft-4, origin.Y-6), fyne.TextAlignTrailing, false)
	r.addText(formatValue(rng.Min, r.scope.unit), fyne.NewPos(marginLeft-4, origin.Y+plot.Height-6), fyne.TextAlignTrailing, false)

	points := project(values, rng, origin, plot)
	for i := range len(points) - 1 {
		line := canvas.NewLine(r.scope.color)
		line.Position1 = points[i]
		line.Position2 = points[i+1]
		line.StrokeWidth = 2
		r.objects = append(r.objects, line)
	}
}

func (r *scopeRenderer) drawGrid(origin fyne.Position, plot fyne.Size) {
	for i := range gridLines + 1 {
		y := origin.Y + float32(i)*plot.Height/gridLines
		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(origin.X, y)
		line.Position2 = fyne.NewPos(origin.X+plot.Width, y)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)
	}
}

func (r *scopeRenderer) addText(s string, pos fyne.Position, align fyne.TextAlign, bold bool) {
	text := canvas.NewText(s, labelColor)
	text.TextSize = 10
	text.Alignment = align
	text.TextStyle = fyne.TextStyle{Bold: bold}
	text.Move(pos)
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

// project maps values onto the plot area: oldest on the left, Max at the
// top. rng.Span is never zero.
func project(values []float64, rng history.Range, origin fyne.Position, plot fyne.Size) []fyne.Position {
	if len(values) < 2 {
		return nil
	}

	step := plot.Width / float32(len(values)-1)
	points := make([]fyne.Position, len(values))
	for i, v := range values {
		norm := math32.Min(math32.Max(float32(rng.Normalize(v)), 0), 1)
		points[i] = fyne.NewPos(
			origin.X+float32(i)*step,
			origin.Y+plot.Height-norm*plot.Height,
		)
	}
	return points
}

func formatValue(v float64, unit string) string {
	return fmt.Sprintf("%.1f%s", v, unit)
}
