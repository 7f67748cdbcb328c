package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"go.uber.org/zap"

	"github.com/itohio/gowheel/pkg/config"
	"github.com/itohio/gowheel/pkg/logging"
	"github.com/itohio/gowheel/pkg/rotor"
	"github.com/itohio/gowheel/pkg/server"
	"github.com/itohio/gowheel/pkg/session"
	"github.com/itohio/gowheel/pkg/vjoy"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyUSB0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated wheel and force feedback instead of hardware")
		serveFlag  = flag.Bool("serve", false, "Enable remote telemetry server (overrides config)")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *serveFlag {
		cfg.Server.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	joy, ffbErr := openJoystick(cfg, *mockFlag, logger)

	application := app.NewWithID("com.itohio.gowheel")
	window := application.NewWindow("Motor Wheel Controller")
	window.Resize(fyne.NewSize(1000, 760))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		window:     window,
		useMock:    *mockFlag,
		logger:     logger,
	}

	opts := session.Options{
		Opener: rotor.OpenSerial,
		Axis:   joy,
		OpenFFB: func() (vjoy.GainSource, error) {
			if ffbErr != nil {
				return nil, ffbErr
			}
			return joy, nil
		},
		Logger: logger,
		OnBridgeUnavailable: func(err error) {
			fyne.Do(func() { state.showBridgeUnavailable(err) })
		},
	}
	if *mockFlag {
		opts.Opener = rotor.MockOpener(&cfg.Mock)
	}

	state.session = session.New(cfg, opts)

	content := container.NewBorder(
		createToolbar(state),
		createControls(state),
		nil,
		nil,
		createPlots(state),
	)
	window.SetContent(content)
	registerUpdates(state)

	// Widgets must exist before the session publishes its first update
	if err := state.session.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start session", zap.Error(err))
	}
	logger.Info("Starting", zap.String("session_id", state.session.ID()), zap.Bool("mock", *mockFlag))

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg.Server, state.session, logging.Component(logger, "server"))
		go func() {
			if err := srv.Run(); err != nil {
				logger.Error("Server failed", zap.Error(err))
			}
		}()
	}

	window.SetOnClosed(func() {
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("Server shutdown failed", zap.Error(err))
			}
		}
		state.session.Stop()
		if joy != nil {
			joy.Close()
		}
	})
	window.ShowAndRun()
}

// openJoystick opens the virtual joystick. On failure the axis falls back to
// a mock device (with -mock) or to Discard, and the returned error disables
// force feedback.
func openJoystick(cfg *config.Config, useMock bool, logger *zap.Logger) (vjoy.Device, error) {
	dev, err := vjoy.Open(cfg.Axis.DLLPath, cfg.Axis.DeviceID)
	if err == nil {
		logger.Info("Virtual joystick acquired", zap.Uint("device_id", cfg.Axis.DeviceID), zap.Int("full_scale", dev.FullScale()))
		return dev, nil
	}

	if useMock {
		logger.Info("Using simulated virtual joystick", zap.Error(err))
		return vjoy.NewMock(cfg.Axis.FullScale, cfg.Mock.GainPeriod), nil
	}

	logger.Warn("Virtual joystick unavailable, axis output disabled", zap.Error(err))
	return discardDevice{vjoy.Discard{Scale: cfg.Axis.FullScale}}, fmt.Errorf("open vJoy: %w", err)
}

// discardDevice stands in for a missing joystick.
type discardDevice struct {
	vjoy.Discard
}

func (discardDevice) MasterGain() (int, error) { return 0, vjoy.ErrUnavailable }

func (discardDevice) Close() error { return nil }

var _ vjoy.Device = discardDevice{}

var errNoPort = errors.New("no serial port selected")
