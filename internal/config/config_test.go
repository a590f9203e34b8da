package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	c := *Default()
	c.DataBackend = "memory"
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{name: "defaults with memory backend", mutate: func(*Config) {}},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "sheets" },
			wantErr:     true,
			errorString: "invalid data backend 'sheets': must be one of [memory sqlite postgres aztables]",
		},
		{
			name:        "postgres without dsn",
			mutate:      func(c *Config) { c.DataBackend = "postgres" },
			wantErr:     true,
			errorString: "POSTGRES_DSN is required",
		},
		{
			name: "aztables with bad scheme",
			mutate: func(c *Config) {
				c.DataBackend = "aztables"
				c.AzureTableServiceURL = "ftp://example"
			},
			wantErr:     true,
			errorString: "invalid AZURE_TABLE_SERVICE_URL scheme 'ftp'",
		},
		{
			name: "amqp events with bad url",
			mutate: func(c *Config) {
				c.EventsBackend = "amqp"
				c.AMQPURL = "http://localhost"
			},
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http'",
		},
		{
			name: "kafka events without brokers",
			mutate: func(c *Config) {
				c.EventsBackend = "kafka"
				c.KafkaBrokers = nil
			},
			wantErr:     true,
			errorString: "KAFKA_BROKERS cannot be empty",
		},
		{
			name:        "azblob backups without url",
			mutate:      func(c *Config) { c.BackupBackend = "azblob" },
			wantErr:     true,
			errorString: "AZURE_BLOB_SERVICE_URL is required",
		},
		{
			name:        "bad timezone",
			mutate:      func(c *Config) { c.Timezone = "Mars/Olympus" },
			wantErr:     true,
			errorString: "invalid timezone 'Mars/Olympus'",
		},
		{
			name:        "request timeout too short",
			mutate:      func(c *Config) { c.RequestTimeout = time.Millisecond },
			wantErr:     true,
			errorString: "invalid request timeout",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("case %d: Validate() error = %v, wantErr %v", i, err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errorString) {
				t.Fatalf("case %d: error %q does not contain %q", i, err.Error(), tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateAccumulates(t *testing.T) {
	c := validConfig()
	c.Port = "0"
	c.LogFormat = "xml"
	c.EventsBackend = "carrier-pigeon"
	err := c.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if n := strings.Count(err.Error(), "\n- "); n != 3 {
		t.Fatalf("expected 3 problems, got %d: %s", n, err)
	}
}

func TestConfig_SQLiteCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	c := validConfig()
	c.DataBackend = "sqlite"
	c.SQLiteDBPath = filepath.Join(dir, "sicof.db")
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sicof.toml")
	content := `
port = "9000"
data_backend = "postgres"
postgres_dsn = "postgres://file"
request_timeout = "45s"
kafka_brokers = ["a:9092", "b:9092"]
metrics_enabled = true
`
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POSTGRES_DSN", "postgres://env")
	t.Setenv("TRUSTED_PROXIES", "100.64.0.0/10, ,198.18.0.0/15")

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" || cfg.DataBackend != "postgres" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.PostgresDSN != "postgres://env" {
		t.Fatalf("env must override file, got %q", cfg.PostgresDSN)
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Fatalf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if len(cfg.KafkaBrokers) != 2 || !cfg.MetricsEnabled {
		t.Fatalf("list/bool values not applied: %+v", cfg)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "198.18.0.0/15" {
		t.Fatalf("TrustedProxies = %v", cfg.TrustedProxies)
	}
	if cfg.AMQPQueue != "sicof_reports" {
		t.Fatalf("defaults must survive, got %q", cfg.AMQPQueue)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("a named file that does not exist must fail")
	}

	file := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(file, []byte(`prot = "1"`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(file); err == nil || !strings.Contains(err.Error(), "unknown keys") {
		t.Fatalf("unknown keys must fail, got %v", err)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("PORT", "7000")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")
	t.Setenv("METRICS_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7000" || !cfg.MetricsEnabled {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Fatalf("unparsable env must keep the default, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.Addr() != ":7000" {
		t.Fatalf("Addr = %q", cfg.Addr())
	}
}
