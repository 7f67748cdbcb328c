package main

import (
	"fmt"
	"sync/atomic"

	"fyne.io/fyne/v2"

	"github.com/itohio/gowheel/pkg/session"
)

// UpdateWidgetOnMainThread schedules a widget update function to run on the main Fyne thread.
// Fyne widgets cannot be updated directly from goroutines.
// The callback should copy data quickly and return as fast as possible.
func UpdateWidgetOnMainThread(callback func()) {
	if callback == nil {
		return
	}
	fyne.Do(callback)
}

// registerUpdates refreshes readouts and scopes on every session update.
// At most one refresh is queued on the main thread at a time.
func registerUpdates(state *appState) {
	var pending atomic.Bool
	var angles, resistances []float64

	state.session.OnUpdate(func(snap session.Snapshot) {
		if !pending.CompareAndSwap(false, true) {
			return
		}
		UpdateWidgetOnMainThread(func() {
			defer pending.Store(false)

			angles = state.session.Angles().AppendTo(angles[:0])
			resistances = state.session.Resistances().AppendTo(resistances[:0])
			applySnapshot(state, snap)
			state.angleScope.UpdateData(angles)
			state.resistanceScope.UpdateData(resistances)
		})
	})
}

// applySnapshot updates readout labels from snap.
func applySnapshot(state *appState, snap session.Snapshot) {
	if snap.HasAngle {
		state.angleLabel.SetText(fmt.Sprintf("%.2f° (axis %d)", snap.Angle, snap.Axis))
	} else {
		state.angleLabel.SetText("-")
	}

	if snap.HasResistance {
		state.resistanceLabel.SetText(fmt.Sprintf("%.1f %%", snap.Resistance))
	}

	if snap.BridgeDisabled {
		state.forceLabel.SetText("unavailable")
	} else {
		state.forceLabel.SetText(fmt.Sprintf("%.2f (master gain %d)", snap.Force, snap.MasterGain))
	}

	if snap.Connected {
		updateConnectionWidgets(state, true, snap.Port)
	} else {
		updateConnectionWidgets(state, false, "")
	}
}
