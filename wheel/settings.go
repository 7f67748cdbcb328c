package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/itohio/gowheel/pkg/config"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createForceFeedbackTab(state),
		createGameTab(state),
		createSerialTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(560, 420))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(560, 420))
	d.Show()
}

// saveConfig persists the configuration, reporting failures in a dialog.
func saveConfig(state *appState) {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return
	}
	state.logger.Debug("Configuration saved", zap.String("path", state.configPath))
}

// createForceFeedbackTab creates the force feedback tuning tab.
// Gain and deadzone apply to the running bridge on submit.
func createForceFeedbackTab(state *appState) *container.TabItem {
	c := state.session.Controls()

	gainLabel := widget.NewLabel(fmt.Sprintf("%.1f", c.Gain))
	gainSlider := widget.NewSlider(config.MinGain, config.MaxGain)
	gainSlider.Step = 0.1
	gainSlider.SetValue(c.Gain)
	gainSlider.OnChanged = func(v float64) {
		gainLabel.SetText(fmt.Sprintf("%.1f", v))
	}

	deadzoneLabel := widget.NewLabel(fmt.Sprintf("%.0f", c.Deadzone))
	deadzoneSlider := widget.NewSlider(0, config.MaxDeadzone)
	deadzoneSlider.Step = 1
	deadzoneSlider.SetValue(c.Deadzone)
	deadzoneSlider.OnChanged = func(v float64) {
		deadzoneLabel.SetText(fmt.Sprintf("%.0f", v))
	}

	enabledCheck := widget.NewCheck("", nil)
	enabledCheck.SetChecked(c.Enabled)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Gain", Widget: container.NewBorder(nil, nil, nil, gainLabel, gainSlider)},
			{Text: "Deadzone (%)", Widget: container.NewBorder(nil, nil, nil, deadzoneLabel, deadzoneSlider)},
			{Text: "Enabled", Widget: enabledCheck},
		},
		OnSubmit: func() {
			if err := state.session.SetTuning(gainSlider.Value, deadzoneSlider.Value); err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			if err := state.session.SetEnabled(enabledCheck.Checked); err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			state.enableCheck.SetChecked(enabledCheck.Checked)

			state.cfg.ForceFeedback.Gain = gainSlider.Value
			state.cfg.ForceFeedback.Deadzone = deadzoneSlider.Value
			state.cfg.ForceFeedback.Enabled = enabledCheck.Checked
			saveConfig(state)
		},
	}

	return container.NewTabItem("Force Feedback", form)
}

// createGameTab creates the game profile tab.
func createGameTab(state *appState) *container.TabItem {
	gameRadio := widget.NewRadioGroup(config.Games, nil)
	gameRadio.SetSelected(state.cfg.Game.Name)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Game", Widget: gameRadio},
		},
		OnSubmit: func() {
			if gameRadio.Selected == "" {
				return
			}
			state.cfg.Game.Name = gameRadio.Selected
			state.logger.Info("Game selected", zap.String("game", gameRadio.Selected))
			saveConfig(state)
		},
	}

	return container.NewTabItem("Game", form)
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	options, portMap := portOptions(state.cfg.Serial.Port, state.useMock, state.logger)

	portSelect := widget.NewSelect(options, nil)
	for display, name := range portMap {
		if name == state.cfg.Serial.Port {
			portSelect.SetSelected(display)
			break
		}
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected == "" {
				return
			}
			selectedPort := portMap[portSelect.Selected]
			if selectedPort == "" {
				selectedPort = portSelect.Selected
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				state.cfg.Serial.BaudRate = baud
			}

			portChanged := state.cfg.Serial.Port != selectedPort
			state.cfg.Serial.Port = selectedPort
			saveConfig(state)
			refreshPorts(state)

			// Reconnect on the new port if connected
			if portChanged && state.session.Snapshot().Connected {
				ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
				defer cancel()
				if err := state.session.Disconnect(ctx); err != nil {
					state.logger.Warn("Disconnect failed", zap.Error(err))
				}
				if err := state.session.Connect(ctx, selectedPort); err != nil {
					dialog.ShowError(err, state.window)
					updateConnectionWidgets(state, false, "")
					return
				}
				updateConnectionWidgets(state, true, selectedPort)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createMockTab creates the simulated wheel tab. Changes apply on the next connect.
func createMockTab(state *appState) *container.TabItem {
	sweepEntry := widget.NewEntry()
	sweepEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.SweepDegrees))

	sweepPeriodEntry := widget.NewEntry()
	sweepPeriodEntry.SetText(state.cfg.Mock.SweepPeriod.String())

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Mock.Noise))

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(state.cfg.Mock.SampleRate.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Sweep (°)", Widget: sweepEntry},
			{Text: "Sweep Period", Widget: sweepPeriodEntry},
			{Text: "Noise (°)", Widget: noiseEntry},
			{Text: "Sample Rate", Widget: sampleRateEntry},
		},
		OnSubmit: func() {
			if v, err := strconv.ParseFloat(sweepEntry.Text, 64); err == nil {
				state.cfg.Mock.SweepDegrees = v
			}
			if d, err := time.ParseDuration(sweepPeriodEntry.Text); err == nil {
				state.cfg.Mock.SweepPeriod = d
			}
			if v, err := strconv.ParseFloat(noiseEntry.Text, 64); err == nil {
				state.cfg.Mock.Noise = v
			}
			if d, err := time.ParseDuration(sampleRateEntry.Text); err == nil {
				state.cfg.Mock.SampleRate = d
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}
