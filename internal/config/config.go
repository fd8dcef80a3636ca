package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ErrInvalid marks configuration that cannot produce a runnable collector.
var ErrInvalid = errors.New("invalid configuration")

// Settings is the immutable process configuration. It is resolved once at
// startup, either from the environment alone or from a TOML/YAML file
// (FILE_POLL_CONFIG or -config) layered under the environment.
type Settings struct {
	APIKey  string `env:"OPENWEATHER_API_KEY" toml:"OPENWEATHER_API_KEY" yaml:"OPENWEATHER_API_KEY"`
	ZipCode string `env:"OPENWEATHER_POLL_ZIP" toml:"OPENWEATHER_POLL_ZIP" yaml:"OPENWEATHER_POLL_ZIP"`
	Country string `env:"OPENWEATHER_POLL_COUNTRY" toml:"OPENWEATHER_POLL_COUNTRY" yaml:"OPENWEATHER_POLL_COUNTRY" env-default:"US"`

	DBName   string `env:"OPENWEATHER_INFLUXDB_NAME" toml:"OPENWEATHER_INFLUXDB_NAME" yaml:"OPENWEATHER_INFLUXDB_NAME" env-default:"test"`
	DBServer string `env:"OPENWEATHER_INFLUXDB_SERVER" toml:"OPENWEATHER_INFLUXDB_SERVER" yaml:"OPENWEATHER_INFLUXDB_SERVER"`
	DBUser   string `env:"OPENWEATHER_INFLUXDB_DBUSER" toml:"OPENWEATHER_INFLUXDB_DBUSER" yaml:"OPENWEATHER_INFLUXDB_DBUSER"`
	DBPass   string `env:"OPENWEATHER_INFLUXDB_DBPASS" toml:"OPENWEATHER_INFLUXDB_DBPASS" yaml:"OPENWEATHER_INFLUXDB_DBPASS"`
	DBToken  string `env:"OPENWEATHER_INFLUXDB_TOKEN" toml:"OPENWEATHER_INFLUXDB_TOKEN" yaml:"OPENWEATHER_INFLUXDB_TOKEN"`

	PollSeconds int `env:"OPENWEATHER_POLL_TIMING" toml:"OPENWEATHER_POLL_TIMING" yaml:"OPENWEATHER_POLL_TIMING" env-default:"3600"`
	MaxRetry    int `env:"OPENWEATHER_MAX_RETRY" toml:"OPENWEATHER_MAX_RETRY" yaml:"OPENWEATHER_MAX_RETRY" env-default:"3"`

	HealthAddress string `env:"HEALTH_ADDRESS" toml:"HEALTH_ADDRESS" yaml:"HEALTH_ADDRESS" env-default:":8080"`
	LogLevel      string `env:"LOG_LEVEL" toml:"LOG_LEVEL" yaml:"LOG_LEVEL" env-default:"info"`
	LogFormat     string `env:"LOG_FORMAT" toml:"LOG_FORMAT" yaml:"LOG_FORMAT" env-default:"json"`
}

// Load resolves Settings. An explicit path wins over FILE_POLL_CONFIG; when a
// file is present, environment variables override its values.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = os.Getenv("FILE_POLL_CONFIG")
	}

	var s Settings
	var err error
	if path != "" {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil, fmt.Errorf("%w: config file not found: %s", ErrInvalid, path)
		}
		err = cleanenv.ReadConfig(path, &s)
	} else {
		err = cleanenv.ReadEnv(&s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

func (s *Settings) validate() error {
	if s.APIKey == "" {
		return fmt.Errorf("%w: OPENWEATHER_API_KEY is not set", ErrInvalid)
	}
	if s.ZipCode == "" {
		return fmt.Errorf("%w: OPENWEATHER_POLL_ZIP is not set", ErrInvalid)
	}
	if s.DBServer == "" {
		return fmt.Errorf("%w: OPENWEATHER_INFLUXDB_SERVER is not set", ErrInvalid)
	}
	if (s.DBUser == "") != (s.DBPass == "") {
		return fmt.Errorf("%w: OPENWEATHER_INFLUXDB_DBUSER and OPENWEATHER_INFLUXDB_DBPASS must be set together", ErrInvalid)
	}
	if s.DBToken != "" && s.DBUser != "" {
		return fmt.Errorf("%w: OPENWEATHER_INFLUXDB_TOKEN cannot be combined with user/password auth", ErrInvalid)
	}
	if s.PollSeconds <= 0 {
		return fmt.Errorf("%w: OPENWEATHER_POLL_TIMING must be positive", ErrInvalid)
	}
	if s.MaxRetry <= 0 {
		return fmt.Errorf("%w: OPENWEATHER_MAX_RETRY must be positive", ErrInvalid)
	}
	return nil
}

// Interval is the poll period between cycle starts.
func (s *Settings) Interval() time.Duration {
	return time.Duration(s.PollSeconds) * time.Second
}
