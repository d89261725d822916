package micro

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// configFiles are tried in order; the first one found is loaded.
var configFiles = []string{"config.yaml", "config.yml", "config/config.yaml", "config/config.yml"}

// Config is a layered key/value tree with dot separated, lower-case keys.
// Each layer loaded overrides the keys it sets.
type Config struct {
	mu sync.RWMutex
	k  *koanf.Koanf
}

func NewConfig() *Config {
	return &Config{k: koanf.New(".")}
}

// Set overrides a single key.
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.k.Set(strings.ToLower(key), value)
}

// String returns the value under key formatted as a string, or "".
func (c *Config) String(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k.String(strings.ToLower(key))
}

// Port reads key as a listen address, see NormalizePort.
func (c *Config) Port(key, fallback string) string {
	return NormalizePort(c.String(key), fallback)
}

// MergeYAML loads a YAML document as a new layer.
func (c *Config) MergeYAML(data []byte) error {
	var tree map[string]any
	if err := yamlv3.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("config: yaml: %w", err)
	}
	return c.load(confmap.Provider(tree, ""), nil, "yaml")
}

// LoadSources layers, in order: the first config file found, variables
// from a .env file that are not already set, environment variables named
// PREFIX_SECTION_KEY as section.key, and --section.key=value or
// --section.key value arguments.
func (c *Config) LoadSources(envPrefix string, args []string) error {
	for _, path := range configFiles {
		if _, err := os.Stat(path); err == nil {
			if err := c.load(file.Provider(path), koanfyaml.Parser(), path); err != nil {
				return err
			}
			break
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: .env: %w", err)
	}

	if envPrefix != "" {
		prefix := strings.ToUpper(strings.TrimSuffix(envPrefix, "_")) + "_"
		toKey := func(name string) string {
			return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, prefix), "_", "."))
		}
		if err := c.load(env.Provider(prefix, ".", toKey), nil, "env"); err != nil {
			return err
		}
	}

	if flags := argsToMap(args); len(flags) > 0 {
		return c.load(confmap.Provider(flags, "."), nil, "args")
	}
	return nil
}

func (c *Config) load(p koanf.Provider, parser koanf.Parser, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.k.Load(p, parser); err != nil {
		return fmt.Errorf("config: %s: %w", source, err)
	}
	return nil
}

// Unmarshal decodes the subtree at key ("" for all) into target using
// `koanf` struct tags. Strings convert to durations, numbers and bools,
// and comma separated strings to slices.
func (c *Config) Unmarshal(key string, target any) error {
	if target == nil {
		return errors.New("config: nil target")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	err := c.k.UnmarshalWithConf(strings.ToLower(key), target, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           target,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	})
	if err != nil {
		return fmt.Errorf("config: decode: %w", err)
	}
	return nil
}

// argsToMap keeps only --key=value and --key value pairs; a flag with no
// value reads as "true". Underscores in keys become dots.
func argsToMap(args []string) map[string]any {
	out := map[string]any{}
	for i := 0; i < len(args); i++ {
		name, ok := strings.CutPrefix(args[i], "--")
		if !ok || name == "" {
			continue
		}
		value := "true"
		if k, v, found := strings.Cut(name, "="); found {
			name, value = k, v
		} else if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			i++
			value = args[i]
		}
		out[strings.ToLower(strings.ReplaceAll(name, "_", "."))] = value
	}
	return out
}
