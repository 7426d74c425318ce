package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the cluster configuration. Channels, static ids, zones, frame
// rates and movement tuning all live here rather than as process-wide
// constants, and are passed to components at construction.
type Config struct {
	ListenAddr    string `yaml:"listen_addr"`
	TickRateHz    int    `yaml:"tick_rate_hz"`
	ClientFrameHz int    `yaml:"client_frame_hz"`

	Channels struct {
		Services uint64 `yaml:"services"`
	} `yaml:"channels"`

	IDs struct {
		AnonymousContact uint32 `yaml:"anonymous_contact"`
		Root             uint32 `yaml:"root"`
		LoginManager     uint32 `yaml:"login_manager"`
		World            uint32 `yaml:"world"`
	} `yaml:"ids"`

	Zones struct {
		Login uint32 `yaml:"login"`
		World uint32 `yaml:"world"`
	} `yaml:"zones"`

	Avatar Avatar `yaml:"avatar"`

	Accounts []Account `yaml:"accounts"`

	DataDir string `yaml:"data_dir"`
}

type Avatar struct {
	IDRangeStart     uint32  `yaml:"id_range_start"`
	IDRangeEnd       uint32  `yaml:"id_range_end"` // inclusive
	Speed            float64 `yaml:"speed"`
	RotationSpeedDeg float64 `yaml:"rotation_speed_deg"`
	PosPrecision     int     `yaml:"pos_precision"`
	Bound            float64 `yaml:"bound"`
}

type Account struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Defaults is the stock single-host cluster configuration.
func Defaults() Config {
	var c Config
	c.ListenAddr = ":7198"
	c.TickRateHz = 30
	c.ClientFrameHz = 60
	c.Channels.Services = 300000
	c.IDs.AnonymousContact = 20000
	c.IDs.Root = 30000
	c.IDs.LoginManager = 1562641
	c.IDs.World = 1562642
	c.Zones.Login = 0
	c.Zones.World = 1
	c.Avatar = Avatar{
		IDRangeStart:     1500000,
		IDRangeEnd:       1599999,
		Speed:            3.0,
		RotationSpeedDeg: 90.0,
		PosPrecision:     3,
		Bound:            10.0,
	}
	c.Accounts = []Account{{Username: "guest", Password: "guest"}}
	c.DataDir = "./data"
	return c
}

// Load reads a yaml config, starting from Defaults so a partial file works.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("cluster.yaml: %w", err)
	}
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive, got %d", c.TickRateHz)
	}
	if c.ClientFrameHz <= 0 {
		return fmt.Errorf("client_frame_hz must be positive, got %d", c.ClientFrameHz)
	}
	if c.Avatar.IDRangeEnd < c.Avatar.IDRangeStart {
		return fmt.Errorf("avatar id range inverted: [%d, %d]", c.Avatar.IDRangeStart, c.Avatar.IDRangeEnd)
	}
	if c.Avatar.PosPrecision < 0 {
		return fmt.Errorf("pos_precision must not be negative, got %d", c.Avatar.PosPrecision)
	}
	return nil
}
