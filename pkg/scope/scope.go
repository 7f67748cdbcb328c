// Package scope provides a Fyne widget plotting a bounded history trace.
package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gowheel/pkg/history"
)

const defaultMaxPoints = 400

// ScopeWidget draws one history trace auto-scaled to its min/max.
type ScopeWidget struct {
	widget.BaseWidget

	title string
	unit  string
	color color.Color

	// Data (protected by mu)
	mu      sync.RWMutex
	values  []float64 // Display buffer, reused between updates
	rng     history.Range
	hasData bool

	maxDisplayPoints int
}

// New creates a scope titled title, labelling values with unit.
func New(title, unit string, c color.Color) *ScopeWidget {
	s := &ScopeWidget{
		title:            title,
		unit:             unit,
		color:            c,
		values:           make([]float64, 0, defaultMaxPoints),
		maxDisplayPoints: defaultMaxPoints,
	}
	s.ExtendBaseWidget(s)
	return s
}

// UpdateData replaces the plotted values.
// This should be called on the Fyne thread, e.g. via fyne.Do().
func (s *ScopeWidget) UpdateData(values []float64) {
	s.mu.Lock()
	s.values = Downsample(s.values, values, s.maxDisplayPoints)
	rng, err := history.RangeOf(values)
	s.rng = rng
	s.hasData = err == nil
	s.mu.Unlock()

	s.Refresh()
}

// Range returns the current plotting range and whether enough data is held.
func (s *ScopeWidget) Range() (history.Range, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rng, s.hasData
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 250, G: 250, B: 250, A: 255})
	return &scopeRenderer{
		scope:   s,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}
