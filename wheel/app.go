package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/itohio/gowheel/pkg/config"
	"github.com/itohio/gowheel/pkg/control"
	"github.com/itohio/gowheel/pkg/rotor"
	"github.com/itohio/gowheel/pkg/scope"
	"github.com/itohio/gowheel/pkg/session"
)

const requestTimeout = 2 * time.Second

// appState holds the application state.
type appState struct {
	cfg        *config.Config
	configPath string
	session    *session.Session
	window     fyne.Window
	useMock    bool
	logger     *zap.Logger

	portSelect  *widget.Select
	portMap     map[string]string // Display name -> port name
	connectBtn  *widget.Button
	modeRadio   *widget.RadioGroup
	resistEntry *widget.Entry
	sendBtn     *widget.Button
	enableCheck *widget.Check

	statusLabel     *widget.Label
	angleLabel      *widget.Label
	resistanceLabel *widget.Label
	forceLabel      *widget.Label

	angleScope      *scope.ScopeWidget
	resistanceScope *scope.ScopeWidget

	bridgeReported bool
}

// createToolbar creates the connection toolbar: port selection, refresh,
// connect and settings.
func createToolbar(state *appState) fyne.CanvasObject {
	state.portSelect = widget.NewSelect(nil, nil)
	state.portSelect.PlaceHolder = "Select port"
	refreshPorts(state)

	refreshBtn := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		refreshPorts(state)
	})

	state.connectBtn = widget.NewButtonWithIcon("Connect", theme.LoginIcon(), func() {
		handleConnect(state)
	})

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.statusLabel = widget.NewLabel("Disconnected")

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(widget.NewLabel("Port:"), container.NewGridWrap(fyne.NewSize(220, 36), state.portSelect), refreshBtn, state.connectBtn),
		container.NewHBox(state.statusLabel, settingsBtn),
		nil,
	)
}

// createControls creates the mode, manual resistance and readout panel.
func createControls(state *appState) fyne.CanvasObject {
	state.modeRadio = widget.NewRadioGroup([]string{"Manual", "Auto"}, func(selected string) {
		handleModeChange(state, selected)
	})
	state.modeRadio.Horizontal = true

	state.resistEntry = widget.NewEntry()
	state.resistEntry.SetPlaceHolder("0.0 - 100.0")
	state.resistEntry.OnSubmitted = func(string) { handleSend(state) }
	state.sendBtn = widget.NewButtonWithIcon("Send", theme.MailSendIcon(), func() {
		handleSend(state)
	})

	state.enableCheck = widget.NewCheck("Enable force feedback", func(on bool) {
		if err := state.session.SetEnabled(on); err != nil {
			dialog.ShowError(err, state.window)
		}
	})

	c := state.session.Controls()
	state.enableCheck.SetChecked(c.Enabled)
	if c.Mode == control.Auto {
		state.modeRadio.SetSelected("Auto")
	} else {
		state.modeRadio.SetSelected("Manual")
	}

	state.angleLabel = widget.NewLabel("-")
	state.resistanceLabel = widget.NewLabel("-")
	state.forceLabel = widget.NewLabel("-")

	manual := container.NewBorder(nil, nil, widget.NewLabel("Resistance:"), state.sendBtn, state.resistEntry)

	readouts := widget.NewForm(
		widget.NewFormItem("Angle", state.angleLabel),
		widget.NewFormItem("Target resistance", state.resistanceLabel),
		widget.NewFormItem("Force feedback", state.forceLabel),
	)

	return container.NewVBox(
		widget.NewSeparator(),
		container.NewHBox(widget.NewLabel("Mode:"), state.modeRadio, state.enableCheck),
		manual,
		readouts,
	)
}

// createPlots creates the angle and resistance scopes.
func createPlots(state *appState) fyne.CanvasObject {
	state.angleScope = scope.New("Angle", "°", color.RGBA{R: 52, G: 152, B: 219, A: 255})
	state.resistanceScope = scope.New("Resistance", "%", color.RGBA{R: 231, G: 76, B: 60, A: 255})
	return container.NewGridWithRows(2, state.angleScope, state.resistanceScope)
}

// refreshPorts reloads the serial port list.
func refreshPorts(state *appState) {
	options, portMap := portOptions(state.cfg.Serial.Port, state.useMock, state.logger)
	state.portMap = portMap
	state.portSelect.Options = options

	for display, name := range portMap {
		if name == state.cfg.Serial.Port {
			state.portSelect.SetSelected(display)
			break
		}
	}
	state.portSelect.Refresh()
}

// portOptions lists available ports, keeping current in the list even if it
// is not present right now.
func portOptions(current string, useMock bool, logger *zap.Logger) ([]string, map[string]string) {
	options := []string{}
	portMap := make(map[string]string)

	if useMock {
		options = append(options, "mock")
		portMap["mock"] = "mock"
	}

	ports, err := rotor.Ports()
	if err != nil {
		logger.Warn("Failed to list serial ports", zap.Error(err))
	}
	for _, port := range ports {
		display := port.Name
		if port.Description != "" && port.Description != port.Name {
			display = fmt.Sprintf("%s (%s)", port.Name, port.Description)
		}
		options = append(options, display)
		portMap[display] = port.Name
	}

	found := false
	for _, name := range portMap {
		if name == current {
			found = true
			break
		}
	}
	if !found && current != "" {
		options = append(options, current)
		portMap[current] = current
	}
	return options, portMap
}

func selectedPort(state *appState) (string, error) {
	if state.portSelect.Selected == "" {
		return "", errNoPort
	}
	if name := state.portMap[state.portSelect.Selected]; name != "" {
		return name, nil
	}
	return state.portSelect.Selected, nil
}

// handleConnect toggles the connection.
func handleConnect(state *appState) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if state.session.Snapshot().Connected {
		if err := state.session.Disconnect(ctx); err != nil {
			dialog.ShowError(err, state.window)
		}
		updateConnectionWidgets(state, false, "")
		return
	}

	port, err := selectedPort(state)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	if err := state.session.Connect(ctx, port); err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	state.cfg.Serial.Port = port
	updateConnectionWidgets(state, true, port)
}

// handleSend dispatches the manually entered resistance.
func handleSend(state *appState) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	r, err := state.session.DispatchText(ctx, state.resistEntry.Text)
	var verr *control.ValidationError
	switch {
	case errors.As(err, &verr):
		dialog.ShowError(fmt.Errorf("please enter a resistance between 0 and 100: %w", err), state.window)
	case errors.Is(err, control.ErrNotConnected):
		dialog.ShowError(errors.New("connect to the wheel first"), state.window)
	case err != nil:
		dialog.ShowError(err, state.window)
	default:
		state.resistanceLabel.SetText(r.String() + " %")
	}
}

// handleModeChange switches modes; manual input is available only in Manual.
func handleModeChange(state *appState, selected string) {
	m, err := control.ParseMode(selected)
	if err != nil {
		return
	}
	if err := state.session.SetMode(m); err != nil {
		dialog.ShowError(err, state.window)
		return
	}

	if m == control.Manual {
		state.resistEntry.Enable()
		state.sendBtn.Enable()
	} else {
		state.resistEntry.Disable()
		state.sendBtn.Disable()
	}

	state.cfg.ForceFeedback.Mode = m.String()
}

func updateConnectionWidgets(state *appState, connected bool, port string) {
	if connected {
		state.connectBtn.SetText("Disconnect")
		state.connectBtn.SetIcon(theme.LogoutIcon())
		state.statusLabel.SetText("Connected: " + port)
		state.portSelect.Disable()
		return
	}
	state.connectBtn.SetText("Connect")
	state.connectBtn.SetIcon(theme.LoginIcon())
	state.statusLabel.SetText("Disconnected")
	state.portSelect.Enable()
}

// showBridgeUnavailable tells the user once that force feedback cannot work.
func (state *appState) showBridgeUnavailable(err error) {
	if state.bridgeReported {
		return
	}
	state.bridgeReported = true
	state.forceLabel.SetText("unavailable")
	dialog.ShowInformation("Force feedback unavailable", err.Error(), state.window)
}
