package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variable overrides, e.g. GOWHEEL_SERIAL_PORT.
const EnvPrefix = "GOWHEEL"

// MaxReadTimeout bounds the serial read timeout so no tick blocks for long.
const MaxReadTimeout = 200 * time.Millisecond

// Force feedback tuning limits.
const (
	MinGain     = 0.1
	MaxGain     = 2.0
	MaxDeadzone = 20.0
)

// Game profiles offered by the game configuration page.
var Games = []string{"racing", "flight", "driving", "other"}

// Config represents the application configuration.
type Config struct {
	Serial        SerialConfig        `yaml:"serial"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Axis          AxisConfig          `yaml:"axis"`
	ForceFeedback ForceFeedbackConfig `yaml:"force_feedback"`
	Game          GameConfig          `yaml:"game"`
	Logging       LoggingConfig       `yaml:"logging"`
	Server        ServerConfig        `yaml:"server"`
	Mock          MockConfig          `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// TelemetryConfig controls the angle polling loop.
type TelemetryConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	HistorySize  int           `yaml:"history_size"`
}

// AxisConfig describes the virtual joystick axis.
// FullScale is used when the backend does not report its own resolution.
type AxisConfig struct {
	DeviceID   uint    `yaml:"device_id"`
	FullScale  int     `yaml:"full_scale"`
	HalfDomain float64 `yaml:"half_domain"` // Degrees mapped to full deflection
	DLLPath    string  `yaml:"dll_path"`
}

// ForceFeedbackConfig contains force feedback bridge parameters.
type ForceFeedbackConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Mode         string        `yaml:"mode"` // manual or auto
	Gain         float64       `yaml:"gain"`
	Deadzone     float64       `yaml:"deadzone"` // On the 0-100 scale
	PollInterval time.Duration `yaml:"poll_interval"`
}

// GameConfig holds the selected game profile.
type GameConfig struct {
	Name string `yaml:"name"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json or console
	Output     string `yaml:"output"` // stdout, stderr or a file path
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// ServerConfig contains the remote telemetry server configuration.
type ServerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Address        string        `yaml:"address"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	StreamInterval time.Duration `yaml:"stream_interval"`
}

// MockConfig contains simulated peripheral configuration.
type MockConfig struct {
	SampleRate   time.Duration `yaml:"sample_rate"`   // Telemetry line period
	SweepDegrees float64       `yaml:"sweep_degrees"` // Sweep amplitude at zero resistance
	SweepPeriod  time.Duration `yaml:"sweep_period"`
	Noise        float64       `yaml:"noise"`      // Angle noise amplitude (degrees)
	GainPeriod   time.Duration `yaml:"gain_period"` // Simulated force feedback gain period
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "COM3", // Default for Windows, should be "/dev/ttyUSB0" on Linux
			BaudRate:    115200,
			ReadTimeout: 100 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			PollInterval: 100 * time.Millisecond,
			HistorySize:  200,
		},
		Axis: AxisConfig{
			DeviceID:   1,
			FullScale:  32768,
			HalfDomain: 180,
			DLLPath:    "vJoyInterface.dll",
		},
		ForceFeedback: ForceFeedbackConfig{
			Enabled:      true,
			Mode:         "manual",
			Gain:         1.0,
			Deadzone:     5,
			PollInterval: 50 * time.Millisecond, // 20 Hz
		},
		Game: GameConfig{
			Name: Games[0],
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
		Server: ServerConfig{
			Enabled:        false,
			Address:        ":8085",
			StreamInterval: 100 * time.Millisecond,
		},
		Mock: MockConfig{
			SampleRate:   50 * time.Millisecond,
			SweepDegrees: 90,
			SweepPeriod:  4 * time.Second,
			Noise:        0.2,
			GainPeriod:   6 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values. Environment overrides are
// applied last.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// File doesn't exist, keep defaults
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.ensureDefaults()
	cfg.applyEnv(newEnv())

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks value ranges that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate)
	}
	if c.Serial.ReadTimeout <= 0 || c.Serial.ReadTimeout > MaxReadTimeout {
		return fmt.Errorf("serial.read_timeout must be in (0, %v], got %v", MaxReadTimeout, c.Serial.ReadTimeout)
	}
	if c.Telemetry.PollInterval <= 0 {
		return fmt.Errorf("telemetry.poll_interval must be positive, got %v", c.Telemetry.PollInterval)
	}
	if c.ForceFeedback.PollInterval <= 0 {
		return fmt.Errorf("force_feedback.poll_interval must be positive, got %v", c.ForceFeedback.PollInterval)
	}
	if err := ValidateTuning(c.ForceFeedback.Gain, c.ForceFeedback.Deadzone); err != nil {
		return err
	}
	switch strings.ToLower(c.ForceFeedback.Mode) {
	case "manual", "auto":
	default:
		return fmt.Errorf("force_feedback.mode must be manual or auto, got %q", c.ForceFeedback.Mode)
	}
	if c.Axis.FullScale <= 0 {
		return fmt.Errorf("axis.full_scale must be positive, got %d", c.Axis.FullScale)
	}
	if c.Axis.HalfDomain <= 0 {
		return fmt.Errorf("axis.half_domain must be positive, got %v", c.Axis.HalfDomain)
	}
	return nil
}

// ValidateTuning checks force feedback gain and deadzone.
func ValidateTuning(gain, deadzone float64) error {
	if !(gain >= MinGain && gain <= MaxGain) {
		return fmt.Errorf("force_feedback.gain must be in [%.1f, %.1f], got %v", MinGain, MaxGain, gain)
	}
	if !(deadzone >= 0 && deadzone <= MaxDeadzone) {
		return fmt.Errorf("force_feedback.deadzone must be in [0, %.0f], got %v", MaxDeadzone, deadzone)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Telemetry.PollInterval == 0 {
		c.Telemetry.PollInterval = def.Telemetry.PollInterval
	}
	if c.Telemetry.HistorySize <= 0 {
		c.Telemetry.HistorySize = def.Telemetry.HistorySize
	}

	if c.Axis.DeviceID == 0 {
		c.Axis.DeviceID = def.Axis.DeviceID
	}
	if c.Axis.FullScale == 0 {
		c.Axis.FullScale = def.Axis.FullScale
	}
	if c.Axis.HalfDomain == 0 {
		c.Axis.HalfDomain = def.Axis.HalfDomain
	}
	if c.Axis.DLLPath == "" {
		c.Axis.DLLPath = def.Axis.DLLPath
	}

	if c.ForceFeedback.Mode == "" {
		c.ForceFeedback.Mode = def.ForceFeedback.Mode
	}
	if c.ForceFeedback.Gain == 0 {
		c.ForceFeedback.Gain = def.ForceFeedback.Gain
	}
	if c.ForceFeedback.PollInterval == 0 {
		c.ForceFeedback.PollInterval = def.ForceFeedback.PollInterval
	}

	if c.Game.Name == "" {
		c.Game.Name = def.Game.Name
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.Output == "" {
		c.Logging.Output = def.Logging.Output
	}

	if c.Server.Address == "" {
		c.Server.Address = def.Server.Address
	}
	if c.Server.StreamInterval == 0 {
		c.Server.StreamInterval = def.Server.StreamInterval
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.SweepPeriod == 0 {
		c.Mock.SweepPeriod = def.Mock.SweepPeriod
	}
	if c.Mock.GainPeriod == 0 {
		c.Mock.GainPeriod = def.Mock.GainPeriod
	}
}

// newEnv returns a viper instance reading GOWHEEL_* environment variables.
func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// applyEnv overrides fields for which an environment variable is set.
func (c *Config) applyEnv(v *viper.Viper) {
	if v.IsSet("serial.port") {
		c.Serial.Port = v.GetString("serial.port")
	}
	if v.IsSet("serial.baud_rate") {
		c.Serial.BaudRate = v.GetInt("serial.baud_rate")
	}
	if v.IsSet("serial.read_timeout") {
		c.Serial.ReadTimeout = v.GetDuration("serial.read_timeout")
	}
	if v.IsSet("force_feedback.enabled") {
		c.ForceFeedback.Enabled = v.GetBool("force_feedback.enabled")
	}
	if v.IsSet("force_feedback.mode") {
		c.ForceFeedback.Mode = v.GetString("force_feedback.mode")
	}
	if v.IsSet("force_feedback.gain") {
		c.ForceFeedback.Gain = v.GetFloat64("force_feedback.gain")
	}
	if v.IsSet("force_feedback.deadzone") {
		c.ForceFeedback.Deadzone = v.GetFloat64("force_feedback.deadzone")
	}
	if v.IsSet("axis.device_id") {
		c.Axis.DeviceID = v.GetUint("axis.device_id")
	}
	if v.IsSet("logging.level") {
		c.Logging.Level = v.GetString("logging.level")
	}
	if v.IsSet("logging.output") {
		c.Logging.Output = v.GetString("logging.output")
	}
	if v.IsSet("server.enabled") {
		c.Server.Enabled = v.GetBool("server.enabled")
	}
	if v.IsSet("server.address") {
		c.Server.Address = v.GetString("server.address")
	}
}
