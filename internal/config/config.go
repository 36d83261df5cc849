package config

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pelletier/go-toml/v2"
)

const (
	defaultInterval    = 2 * time.Minute
	defaultDevicesDir  = "/sys/bus/w1/devices"
	defaultAttempts    = 5
	defaultRetryDelay  = 2 * time.Second
	defaultLogsDir     = "logs"
	defaultDBTable     = "ferm_temperature"
	defaultMQTTTopic   = "ferm-probe"
	defaultMQTTClient  = "ferm-probe"
	defaultKafkaTopic  = "ferm-probe"
	defaultDataDirName = "ferm-probe"
)

// Config is the main configuration of this program.
type Config struct {
	Interval   duration      `toml:"interval"`
	DevicesDir string        `toml:"devices_dir"`
	Target     Target        `toml:"target"`
	Retry      Retry         `toml:"retry"`
	Probes     []ProbeConfig `toml:"probes"`
	Logs       Logs          `toml:"logs"`
	HomeKit    *HomeKit      `toml:"homekit"`
	DBConfig   string        `toml:"dbconfig"`
	DBTable    string        `toml:"dbtable"`
	MQTT       *MQTT         `toml:"mqtt"`
	Kafka      *Kafka        `toml:"kafka"`
	Listen     string        `toml:"listen"`
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Target, validation.Required),
		validation.Field(&c.Retry),
		validation.Field(&c.Probes),
		validation.Field(&c.HomeKit),
		validation.Field(&c.MQTT),
		validation.Field(&c.Kafka),
		validation.Field(&c.DBTable, validation.Match(tableName)),
	)
	return err
}

// Target is the fermentation temperature window, in Fahrenheit.
type Target struct {
	Temperature       float64 `toml:"temperature"`
	PositiveAllowance float64 `toml:"positive_allowance"`
	NegativeAllowance float64 `toml:"negative_allowance"`
}

func (t Target) Validate() error {
	err := validation.ValidateStruct(&t,
		validation.Field(&t.Temperature, validation.Required),
		validation.Field(&t.PositiveAllowance, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&t.NegativeAllowance, validation.Required, validation.Min(0.0).Exclusive()),
	)
	return err
}

// Retry configures how a probe reporting a failed CRC is read again.
type Retry struct {
	Attempts int      `toml:"attempts"`
	Delay    duration `toml:"delay"`
}

func (r Retry) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Attempts, validation.Min(1)),
	)
	return err
}

// ProbeConfig contains the configuration of a single probe.
type ProbeConfig struct {
	Name string     `toml:"name"`
	ID   string     `toml:"id"`
	LED  *LEDConfig `toml:"led"`
}

func (pc ProbeConfig) Validate() error {
	err := validation.ValidateStruct(&pc,
		validation.Field(&pc.Name, validation.Required),
		validation.Field(&pc.ID, validation.Required, validation.Match(busAddress)),
		validation.Field(&pc.LED),
	)
	return err
}

// LEDConfig names the GPIO pins driving an RGB LED, e.g. "GPIO17".
type LEDConfig struct {
	Red   string `toml:"red"`
	Green string `toml:"green"`
	Blue  string `toml:"blue"`
}

func (lc LEDConfig) Validate() error {
	err := validation.ValidateStruct(&lc,
		validation.Field(&lc.Red, validation.Required),
		validation.Field(&lc.Green, validation.Required),
		validation.Field(&lc.Blue, validation.Required),
	)
	return err
}

// Logs configures the CSV and JSON log files.
type Logs struct {
	Dir  string `toml:"dir"`
	CSV  *bool  `toml:"csv"`
	JSON *bool  `toml:"json"`
}

// CSVEnabled reports whether the CSV log is written; it defaults to true.
func (l Logs) CSVEnabled() bool {
	return l.CSV == nil || *l.CSV
}

// JSONEnabled reports whether the JSON log is written; it defaults to true.
func (l Logs) JSONEnabled() bool {
	return l.JSON == nil || *l.JSON
}

type HomeKit struct {
	Pin     string `toml:"pin"`
	Port    int    `toml:"port"`
	SetupID string `toml:"setup_id"`
	DataDir string `toml:"data_dir"`
}

func (hk HomeKit) Validate() error {
	err := validation.ValidateStruct(&hk,
		validation.Field(&hk.Pin, validation.Required, validation.Length(8, 8), is.Digit),
		validation.Field(&hk.Port, validation.Required),
		validation.Field(&hk.SetupID, validation.Required),
	)
	return err
}

type MQTT struct {
	Broker   string `toml:"broker"`
	Topic    string `toml:"topic"`
	ClientID string `toml:"client_id"`
}

func (m MQTT) Validate() error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.Broker, validation.Required),
	)
	return err
}

type Kafka struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

func (k Kafka) Validate() error {
	err := validation.ValidateStruct(&k,
		validation.Field(&k.Brokers, validation.Required, validation.Each(is.DialString)),
	)
	return err
}

type duration struct {
	time.Duration
}

func (i *duration) UnmarshalText(text []byte) (err error) {
	i.Duration, err = time.ParseDuration(string(text))
	return err
}

func ReadConfig(filename string) (*Config, error) {
	fh, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening configuration file %q: %w", filename, err)
	}
	defer fh.Close()

	d := toml.NewDecoder(fh)
	d.DisallowUnknownFields()

	var config Config
	if err := d.Decode(&config); err != nil {
		return nil, fmt.Errorf("decoding configuration file %q: %w", filename, err)
	}

	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// The HomeKit data directory defaults to $XDG_CONFIG_HOME/ferm-probe, otherwise any
	// environment variable found in it is expanded, for example $HOME.
	if config.HomeKit != nil {
		if config.HomeKit.DataDir == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("cannot determine $XDG_CONFIG_HOME, likely because $HOME is unset: %w", err)
			}
			config.HomeKit.DataDir = path.Join(configDir, defaultDataDirName)
		} else {
			config.HomeKit.DataDir = os.ExpandEnv(config.HomeKit.DataDir)
		}
	}

	// bus addresses are lowercase in sysfs
	for i := range config.Probes {
		config.Probes[i].ID = strings.ToLower(config.Probes[i].ID)
	}

	return &config, nil
}

func (c *Config) setDefaults() {
	if c.Interval.Duration == 0 {
		c.Interval.Duration = defaultInterval
	}
	if c.DevicesDir == "" {
		c.DevicesDir = defaultDevicesDir
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = defaultAttempts
	}
	if c.Retry.Delay.Duration == 0 {
		c.Retry.Delay.Duration = defaultRetryDelay
	}
	if c.Logs.Dir == "" {
		c.Logs.Dir = defaultLogsDir
	}
	if c.DBTable == "" {
		c.DBTable = defaultDBTable
	}
	if c.MQTT != nil {
		if c.MQTT.Topic == "" {
			c.MQTT.Topic = defaultMQTTTopic
		}
		if c.MQTT.ClientID == "" {
			c.MQTT.ClientID = defaultMQTTClient
		}
	}
	if c.Kafka != nil && c.Kafka.Topic == "" {
		c.Kafka.Topic = defaultKafkaTopic
	}
}
