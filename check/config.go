// Package check evaluates collected lidar rotations against configured
// pass/fail limits: rotation rate, signal quality and angular resolution.
// It consumes the driver's rotation stream and produces JSON reports.
package check

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the station configuration: which device to talk to and where
// results go.
type Config struct {
	Station struct {
		ID string `yaml:"id"`
	} `yaml:"station"`

	Lidar struct {
		Port       string  `yaml:"port"`
		BaudRate   int     `yaml:"baudrate"`
		TimeoutSec float64 `yaml:"timeout_sec"`
	} `yaml:"rplidar"`

	Motor struct {
		DefaultPWM int `yaml:"default_pwm"`
	} `yaml:"motor"`

	Output struct {
		ResultsDir string `yaml:"results_dir"`
	} `yaml:"data_output"`
}

// Limits holds the per-check acceptance bounds.
type Limits struct {
	ScanRate struct {
		SamplesRequired int     `yaml:"samples_required"`
		MinHz           float64 `yaml:"min_hz"`
		MaxHz           float64 `yaml:"max_hz"`
	} `yaml:"scan_rate"`

	SignalQuality struct {
		Rotations       int     `yaml:"rotations"`
		MinQuality      float64 `yaml:"min_quality"`
		MinValidPercent float64 `yaml:"min_valid_point_percentage"`
	} `yaml:"signal_quality"`

	AngularResolution struct {
		Rotations            int     `yaml:"rotations"`
		MaxResolutionDeg     float64 `yaml:"max_resolution_deg"`
		MinPointsPerRotation int     `yaml:"min_points_per_rotation"`
	} `yaml:"angular_resolution"`
}

// LoadConfig reads the station configuration and applies defaults for
// optional fields. The serial port is required.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %v: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %v: %w", path, err)
	}

	if cfg.Lidar.Port == "" {
		return nil, fmt.Errorf("config %v: rplidar.port is required", path)
	}
	if cfg.Lidar.BaudRate == 0 {
		cfg.Lidar.BaudRate = 115200
	}
	if cfg.Lidar.TimeoutSec == 0 {
		cfg.Lidar.TimeoutSec = 2.0
	}
	if cfg.Motor.DefaultPWM == 0 {
		cfg.Motor.DefaultPWM = 660
	}
	if cfg.Output.ResultsDir == "" {
		cfg.Output.ResultsDir = "results"
	}
	if cfg.Station.ID == "" {
		cfg.Station.ID = "UNKNOWN"
	}
	return cfg, nil
}

// LoadLimits reads the acceptance limits file and fills in the defaults
// the device datasheet suggests.
func LoadLimits(path string) (*Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading limits %v: %w", path, err)
	}

	lim := &Limits{}
	if err := yaml.Unmarshal(data, lim); err != nil {
		return nil, fmt.Errorf("parsing limits %v: %w", path, err)
	}

	if lim.ScanRate.SamplesRequired == 0 {
		lim.ScanRate.SamplesRequired = 10
	}
	if lim.ScanRate.MinHz == 0 {
		lim.ScanRate.MinHz = 5.0
	}
	if lim.ScanRate.MaxHz == 0 {
		lim.ScanRate.MaxHz = 10.0
	}
	if lim.SignalQuality.Rotations == 0 {
		lim.SignalQuality.Rotations = 5
	}
	if lim.SignalQuality.MinQuality == 0 {
		lim.SignalQuality.MinQuality = 10
	}
	if lim.SignalQuality.MinValidPercent == 0 {
		lim.SignalQuality.MinValidPercent = 80.0
	}
	if lim.AngularResolution.Rotations == 0 {
		lim.AngularResolution.Rotations = 5
	}
	if lim.AngularResolution.MaxResolutionDeg == 0 {
		lim.AngularResolution.MaxResolutionDeg = 1.0
	}
	if lim.AngularResolution.MinPointsPerRotation == 0 {
		lim.AngularResolution.MinPointsPerRotation = 360
	}
	return lim, nil
}
