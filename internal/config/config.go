// Package config carga la configuración del servicio desde YAML con
// overrides por variables de entorno (STATUSWATCH_*).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del servicio.
type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Store struct {
		// redis | memory (memory solo para desarrollo)
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"store"`

	Push struct {
		// Claves VAPID en base64url. Sin clave privada, los pushes salen
		// sin Authorization.
		VAPIDPrivateKey string `yaml:"vapid_private_key"`
		VAPIDPublicKey  string `yaml:"vapid_public_key"`
		// Subject de contacto para VAPID (mailto: o https:).
		Subject string `yaml:"subject"`
		// TTL en segundos del header TTL. Default: 86400.
		TTL int `yaml:"ttl"`
		// Timeout por request push saliente. Default: 10s.
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"push"`

	Ingest struct {
		// URL del documento de status upstream. Vacío deshabilita el poller.
		URL string `yaml:"url"`
		// Intervalo entre pasadas. Default: 15m.
		Interval time.Duration `yaml:"interval"`
		// Timeout del fetch upstream. Default: 30s.
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"ingest"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load lee el YAML (si path existe) y aplica overrides de entorno y
// defaults. path vacío ⇒ solo entorno + defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.App.Env = getenv("STATUSWATCH_ENV", c.App.Env)
	c.Server.Addr = getenv("STATUSWATCH_ADDR", c.Server.Addr)
	if v := getenv("STATUSWATCH_CORS_ORIGINS", ""); v != "" {
		c.Server.CORSAllowedOrigins = splitCSV(v)
	}

	c.Store.Kind = getenv("STATUSWATCH_STORE", c.Store.Kind)
	c.Store.Redis.Addr = getenv("REDIS_ADDR", c.Store.Redis.Addr)
	c.Store.Redis.Password = getenv("REDIS_PASSWORD", c.Store.Redis.Password)
	c.Store.Redis.DB = getenvInt("REDIS_DB", c.Store.Redis.DB)
	c.Store.Redis.Prefix = getenv("REDIS_PREFIX", c.Store.Redis.Prefix)

	c.Push.VAPIDPrivateKey = getenv("VAPID_PRIVATE_KEY", c.Push.VAPIDPrivateKey)
	c.Push.VAPIDPublicKey = getenv("VAPID_PUBLIC_KEY", c.Push.VAPIDPublicKey)
	c.Push.Subject = getenv("VAPID_SUBJECT", c.Push.Subject)
	c.Push.TTL = getenvInt("PUSH_TTL", c.Push.TTL)
	c.Push.Timeout = getenvDuration("PUSH_TIMEOUT", c.Push.Timeout)

	c.Ingest.URL = getenv("INGEST_URL", c.Ingest.URL)
	c.Ingest.Interval = getenvDuration("INGEST_INTERVAL", c.Ingest.Interval)
	c.Ingest.Timeout = getenvDuration("INGEST_TIMEOUT", c.Ingest.Timeout)

	c.Log.Level = getenv("LOG_LEVEL", c.Log.Level)
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Store.Kind == "" {
		c.Store.Kind = "redis"
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.Push.TTL == 0 {
		c.Push.TTL = 86400
	}
	if c.Push.Timeout == 0 {
		c.Push.Timeout = 10 * time.Second
	}
	if c.Ingest.Interval == 0 {
		c.Ingest.Interval = 15 * time.Minute
	}
	if c.Ingest.Timeout == 0 {
		c.Ingest.Timeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
