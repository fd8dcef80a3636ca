package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var settingsEnvKeys = []string{
	"FILE_POLL_CONFIG",
	"OPENWEATHER_API_KEY",
	"OPENWEATHER_POLL_ZIP",
	"OPENWEATHER_POLL_COUNTRY",
	"OPENWEATHER_INFLUXDB_NAME",
	"OPENWEATHER_INFLUXDB_SERVER",
	"OPENWEATHER_INFLUXDB_DBUSER",
	"OPENWEATHER_INFLUXDB_DBPASS",
	"OPENWEATHER_INFLUXDB_TOKEN",
	"OPENWEATHER_POLL_TIMING",
	"OPENWEATHER_MAX_RETRY",
	"HEALTH_ADDRESS",
	"LOG_LEVEL",
	"LOG_FORMAT",
}

// unsetEnv removes a variable for the duration of the test. An
// existing-but-empty variable is not the same as an absent one: cleanenv
// only applies env-default when the variable is absent.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, ok := os.LookupEnv(key)
	os.Unsetenv(key)
	t.Cleanup(func() {
		if ok {
			os.Setenv(key, old)
		}
	})
}

// setBaseEnv clears all Settings variables, then sets the minimum viable
// environment; individual tests override or unset single keys.
func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range settingsEnvKeys {
		unsetEnv(t, key)
	}
	t.Setenv("OPENWEATHER_API_KEY", "test-key")
	t.Setenv("OPENWEATHER_POLL_ZIP", "62701")
	t.Setenv("OPENWEATHER_INFLUXDB_SERVER", "localhost")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Country != "US" {
		t.Errorf("Country = %q, want US", cfg.Country)
	}
	if cfg.DBName != "test" {
		t.Errorf("DBName = %q, want test", cfg.DBName)
	}
	if cfg.PollSeconds != 3600 {
		t.Errorf("PollSeconds = %d, want 3600", cfg.PollSeconds)
	}
	if cfg.MaxRetry != 3 {
		t.Errorf("MaxRetry = %d, want 3", cfg.MaxRetry)
	}
	if cfg.Interval() != time.Hour {
		t.Errorf("Interval() = %v, want 1h", cfg.Interval())
	}
	if cfg.HealthAddress != ":8080" {
		t.Errorf("HealthAddress = %q, want :8080", cfg.HealthAddress)
	}
}

func TestLoad_RequiredKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"api key", "OPENWEATHER_API_KEY"},
		{"zip code", "OPENWEATHER_POLL_ZIP"},
		{"influxdb server", "OPENWEATHER_INFLUXDB_SERVER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			unsetEnv(t, tt.key)

			_, err := Load("")
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoad_CredentialPairing(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		pass    string
		token   string
		wantErr bool
	}{
		{"neither", "", "", "", false},
		{"both", "writer", "secret", "", false},
		{"user only", "writer", "", "", true},
		{"pass only", "", "secret", "", true},
		{"token only", "", "", "tok", false},
		{"token with pair", "writer", "secret", "tok", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("OPENWEATHER_INFLUXDB_DBUSER", tt.user)
			t.Setenv("OPENWEATHER_INFLUXDB_DBPASS", tt.pass)
			t.Setenv("OPENWEATHER_INFLUXDB_TOKEN", tt.token)

			_, err := Load("")
			if tt.wantErr && !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() error = %v, want ErrInvalid", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Load() error = %v, want nil", err)
			}
		})
	}
}

func TestLoad_InvalidNumbers(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero timing", "OPENWEATHER_POLL_TIMING", "0"},
		{"negative timing", "OPENWEATHER_POLL_TIMING", "-5"},
		{"zero retry", "OPENWEATHER_MAX_RETRY", "0"},
		{"non-numeric timing", "OPENWEATHER_POLL_TIMING", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}

const tomlConfig = `OPENWEATHER_API_KEY = "file-key"
OPENWEATHER_POLL_ZIP = "99999"
OPENWEATHER_INFLUXDB_SERVER = "influx.internal"
OPENWEATHER_INFLUXDB_NAME = "airdata"
OPENWEATHER_POLL_TIMING = 600
OPENWEATHER_MAX_RETRY = 5
`

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "poll.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoad_TOMLFile(t *testing.T) {
	setBaseEnv(t)
	unsetEnv(t, "OPENWEATHER_API_KEY")
	unsetEnv(t, "OPENWEATHER_POLL_ZIP")
	unsetEnv(t, "OPENWEATHER_INFLUXDB_SERVER")

	path := writeConfigFile(t, tomlConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file-key", cfg.APIKey)
	}
	if cfg.DBName != "airdata" {
		t.Errorf("DBName = %q, want airdata", cfg.DBName)
	}
	if cfg.PollSeconds != 600 {
		t.Errorf("PollSeconds = %d, want 600", cfg.PollSeconds)
	}
	if cfg.MaxRetry != 5 {
		t.Errorf("MaxRetry = %d, want 5", cfg.MaxRetry)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("OPENWEATHER_INFLUXDB_NAME", "from-env")

	path := writeConfigFile(t, tomlConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBName != "from-env" {
		t.Errorf("DBName = %q, want env value to win over file", cfg.DBName)
	}
}

func TestLoad_FilePollConfigEnvVar(t *testing.T) {
	setBaseEnv(t)
	unsetEnv(t, "OPENWEATHER_API_KEY")
	unsetEnv(t, "OPENWEATHER_POLL_ZIP")
	unsetEnv(t, "OPENWEATHER_INFLUXDB_SERVER")

	path := writeConfigFile(t, tomlConfig)
	t.Setenv("FILE_POLL_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file-key", cfg.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	setBaseEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Load() error = %v, want ErrInvalid", err)
	}
}
