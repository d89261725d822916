package app

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danielnirn/shopping-api/internal/micro"
)

const namespace = "SHOPPING"

//go:embed defaults.yaml
var defaultsYAML []byte

// Settings is the typed view of the service configuration.
type Settings struct {
	Env      string           `koanf:"env"`
	HTTP     HTTPSettings     `koanf:"http"`
	Log      LogSettings      `koanf:"log"`
	Mongo    MongoSettings    `koanf:"mongo"`
	Store    StoreSettings    `koanf:"store"`
	Seed     SeedSettings     `koanf:"seed"`
	Debug    DebugSettings    `koanf:"debug"`
	CORS     CORSSettings     `koanf:"cors"`
	GRPC     GRPCSettings     `koanf:"grpc"`
	Tracing  TracingSettings  `koanf:"tracing"`
	Shutdown ShutdownSettings `koanf:"shutdown"`
}

type HTTPSettings struct {
	Port    string        `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

type LogSettings struct {
	Level   string `koanf:"level"`
	Backend string `koanf:"backend"`
	Format  string `koanf:"format"`
}

type MongoSettings struct {
	URI        string        `koanf:"uri"`
	Database   string        `koanf:"database"`
	Collection string        `koanf:"collection"`
	Timeout    time.Duration `koanf:"timeout"`
}

type StoreSettings struct {
	Driver string `koanf:"driver"`
}

type SeedSettings struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type DebugSettings struct {
	Routes bool `koanf:"routes"`
}

type CORSSettings struct {
	Origins []string `koanf:"origins"`
}

type GRPCSettings struct {
	Enabled bool   `koanf:"enabled"`
	Port    string `koanf:"port"`
}

type TracingSettings struct {
	Enabled bool    `koanf:"enabled"`
	Ratio   float64 `koanf:"ratio"`
}

type ShutdownSettings struct {
	Timeout time.Duration `koanf:"timeout"`
}

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// legacyEnv maps the variables of earlier deployments onto config keys. They
// sit between the embedded defaults and every other source.
var legacyEnv = map[string]string{
	"MONGODB_URI": "mongo.uri",
	"PORT":        "http.port",
	"NODE_ENV":    "env",
}

// LoadConfig layers embedded defaults, legacy environment variables, config
// files, SHOPPING_* variables and CLI flags, in that order.
func LoadConfig(args []string) (*micro.Config, error) {
	return loadConfig(args, os.Getenv)
}

func loadConfig(args []string, getenv func(string) string) (*micro.Config, error) {
	cfg := micro.NewConfig()
	if err := cfg.MergeYAML(defaultsYAML); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}
	for name, key := range legacyEnv {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			cfg.Set(key, v)
		}
	}
	if err := cfg.LoadSources(namespace, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DecodeSettings decodes and validates cfg.
func DecodeSettings(cfg *micro.Config) (Settings, error) {
	var s Settings
	if err := cfg.Unmarshal("", &s); err != nil {
		return Settings{}, err
	}
	s.HTTP.Port = micro.NormalizePort(s.HTTP.Port, ":3000")
	s.GRPC.Port = micro.NormalizePort(s.GRPC.Port, ":50051")
	// keep the normalized ports visible to the runners
	cfg.Set("http.port", s.HTTP.Port)
	cfg.Set("grpc.port", s.GRPC.Port)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	var errs micro.ValidationErrors
	if !micro.IsInList(strings.ToLower(s.Store.Driver), []string{DriverMongo, DriverMemory}) {
		errs.Add("store.driver", "must be mongo or memory")
	}
	if !micro.IsInList(strings.ToLower(s.Log.Backend), []string{"slog", "zap"}) {
		errs.Add("log.backend", "must be slog or zap")
	}
	if strings.EqualFold(s.Store.Driver, DriverMongo) {
		if !micro.IsRequired(s.Mongo.URI) {
			errs.Add("mongo.uri", "is required for the mongo driver")
		}
		if !micro.IsRequired(s.Mongo.Database) {
			errs.Add("mongo.database", "is required for the mongo driver")
		}
		if !micro.IsRequired(s.Mongo.Collection) {
			errs.Add("mongo.collection", "is required for the mongo driver")
		}
	}
	if s.Seed.Enabled && !micro.IsRequired(s.Seed.Path) {
		errs.Add("seed.path", "is required when seeding is enabled")
	}
	if s.Tracing.Ratio < 0 || s.Tracing.Ratio > 1 {
		errs.Add("tracing.ratio", "must be between 0 and 1")
	}
	return errs.Err()
}
