package models

import "time"

// ReservoirConfig describes one reservoir's fixed set of sensors,
// valves and pumps. Loaded from config.yml via viper.
type ReservoirConfig struct {
	ID      string  `mapstructure:"id"`
	Name    string  `mapstructure:"name"`
	VolumeL float64 `mapstructure:"volume_l"`

	// Sensor roles. LevelSensors lists every level sensor that must
	// corroborate "bucket empty" (the remote one included).
	FlowSensor        string   `mapstructure:"flow_sensor"`
	RemoteLevelSensor string   `mapstructure:"remote_level_sensor"`
	LevelSensors      []string `mapstructure:"level_sensors"`
	WaterSensors      []string `mapstructure:"water_sensors"`

	FeedValve string        `mapstructure:"feed_valve"`
	Valves    []ValveConfig `mapstructure:"valves"`
	Pumps     []PumpConfig  `mapstructure:"pumps"`
}

type ValveConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type PumpConfig struct {
	ID       string   `mapstructure:"id"`
	Name     string   `mapstructure:"name"`
	Chemical Chemical `mapstructure:"chemical"`
}

// ReservoirState is the dashboard snapshot for one reservoir.
type ReservoirState struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Fused       FusedState               `json:"fused"`
	Session     FeedingSession           `json:"session"`
	ActiveValve string                   `json:"active_valve,omitempty"`
	Valves      []Valve                  `json:"valves"`
	Readings    map[string]SensorReading `json:"readings,omitempty"`
	UpdatedAt   time.Time                `json:"updated_at"`
}
