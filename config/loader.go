package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the variables read into the configuration, e.g.
// FORMPILOT_STORE_REDIS_URL sets store.redis_url.
const EnvPrefix = "FORMPILOT_"

// envAliases map conventional variable names onto config keys. Prefixed
// variables win over them.
var envAliases = map[string]string{
	"OPENAI_API_KEY":  "llm.api_key",
	"OPENAI_BASE_URL": "llm.base_url",
	"OPENAI_MODEL":    "llm.model",
	"REDIS_URL":       "store.redis_url",
}

type LoadOptions struct {
	// EnvFile is loaded into the process environment when it exists.
	EnvFile string
	// Overrides are applied last, keyed by config path.
	Overrides map[string]any
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(rawMap(aliasedEnv()), nil); err != nil {
		return nil, fmt.Errorf("load env aliases: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return transformEnvKey(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if len(opts.Overrides) > 0 {
		for key, value := range opts.Overrides {
			if err := k.Set(key, value); err != nil {
				return nil, fmt.Errorf("override %s: %w", key, err)
			}
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.resolveGraderMode()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.validateRelations(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// transformEnvKey turns STORE_REDIS_URL into store.redis_url: the first
// segment names the section and the rest the field.
func transformEnvKey(s string) string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return r == '_' })
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
}

func aliasedEnv() map[string]any {
	out := map[string]any{}
	for name, path := range envAliases {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			out[path] = v
		}
	}
	return out
}

// rawMap adapts a flat map to koanf.Provider.
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return unflatten(r), nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, errors.New("rawMap does not support ReadBytes")
}

func unflatten(flat map[string]any) map[string]any {
	out := map[string]any{}
	for key, value := range flat {
		parts := strings.Split(key, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return out
}
