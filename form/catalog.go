package form

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/tbxark/formpilot/patch"
	"github.com/tbxark/formpilot/types"
	"github.com/tbxark/formpilot/validate"
	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk document: {"forms": [...]}.
type Catalog struct {
	Forms []Definition `json:"forms" yaml:"forms" validate:"dive"`
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// LoadCatalog reads a catalog file or every catalog file in a directory and
// returns a registry of compiled forms.
func LoadCatalog(path string, opts ...validate.ChainOption) (*MemoryRegistry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat catalog: %w", err)
	}
	var defs []Definition
	if info.IsDir() {
		defs, err = readDir(path)
	} else {
		defs, err = readFile(path)
	}
	if err != nil {
		return nil, err
	}
	return Build(defs, opts...)
}

// ParseCatalog decodes a catalog document. Format is "json" or "yaml".
func ParseCatalog(data []byte, format string) ([]Definition, error) {
	var cat Catalog
	switch format {
	case "json":
		if err := sonic.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("decode json catalog: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	if err := structValidator.Struct(cat); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return cat.Forms, nil
}

func readFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	defs, err := ParseCatalog(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

func readDir(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".json", ".yaml", ".yml":
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var defs []Definition
	for _, name := range names {
		d, err := readFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		defs = append(defs, d...)
	}
	return defs, nil
}

// Build resolves overlays, compiles every definition and returns the
// registry. Catalog order is kept for listing and resolution.
func Build(defs []Definition, opts ...validate.ChainOption) (*MemoryRegistry, error) {
	byID := make(map[string]Definition, len(defs))
	for _, d := range defs {
		if _, dup := byID[d.ID]; dup {
			return nil, &ConfigError{Form: d.ID, Err: errors.New("duplicate form id")}
		}
		byID[d.ID] = d
	}

	forms := make([]*Form, 0, len(defs))
	for _, d := range defs {
		resolved, err := resolveOverlay(d, byID, map[string]bool{})
		if err != nil {
			return nil, err
		}
		f, err := Compile(resolved, opts...)
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return NewMemoryRegistry(forms...), nil
}

// resolveOverlay flattens an extends chain. The overlay keeps its own id and
// aliases, inherits the title unless it sets one, appends its own fields to
// the base fields and then applies its patch.
func resolveOverlay(def Definition, byID map[string]Definition, visiting map[string]bool) (Definition, error) {
	if def.Extends == "" {
		if len(def.Patch) > 0 {
			return def, &ConfigError{Form: def.ID, Err: errors.New("patch without extends")}
		}
		return def, nil
	}
	if visiting[def.ID] {
		return def, &ConfigError{Form: def.ID, Err: errors.New("extends cycle")}
	}
	visiting[def.ID] = true

	base, ok := byID[def.Extends]
	if !ok {
		return def, &ConfigError{Form: def.ID, Err: fmt.Errorf("extends unknown form %q", def.Extends)}
	}
	base, err := resolveOverlay(base, byID, visiting)
	if err != nil {
		return def, err
	}

	merged := Definition{
		ID:      def.ID,
		Title:   base.Title,
		Aliases: append([]string(nil), def.Aliases...),
		Fields:  append(append([]types.FieldDefinition(nil), base.Fields...), def.Fields...),
	}
	if def.Title != "" {
		merged.Title = def.Title
	}
	merged, err = patch.Apply(merged, def.Patch, overlayPaths)
	if err != nil {
		return def, &ConfigError{Form: def.ID, Err: fmt.Errorf("apply overlay: %w", err)}
	}
	merged.ID = def.ID
	return merged, nil
}
