package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// #region file-format
// fileCatalog is the on-disk YAML layout of a catalog revision.
type fileCatalog struct {
	Version   string     `yaml:"version" validate:"required"`
	FCVersion string     `yaml:"fc_version" validate:"required"`
	Items     []fileItem `yaml:"items" validate:"required,min=1,dive"`
}

type fileItem struct {
	ID        string                        `yaml:"id" validate:"required"`
	Tag       string                        `yaml:"tag" validate:"required,oneof=function_scale neuroticism forced_choice attention_check social_desirability inconsistency state_check"`
	Scale     string                        `yaml:"scale" validate:"required,oneof=LIKERT_1_5 LIKERT_1_7 STATE_1_7 FORCED_CHOICE"`
	Section   string                        `yaml:"section"`
	Reverse   bool                          `yaml:"reverse"`
	Function  string                        `yaml:"function" validate:"required_if=Tag function_scale,omitempty,oneof=Ti Te Fi Fe Ni Ne Si Se"`
	Block     string                        `yaml:"block" validate:"required_if=Tag forced_choice"`
	Options   map[string]map[string]float64 `yaml:"options" validate:"required_if=Tag forced_choice"`
	PairGroup string                        `yaml:"pair_group" validate:"required_if=Tag inconsistency"`
	PairSide  string                        `yaml:"pair_side" validate:"required_if=Tag inconsistency,omitempty,oneof=A B"`
	Expected  int                           `yaml:"expected" validate:"required_if=Tag attention_check"`
}

// #endregion file-format

var validate = validator.New(validator.WithRequiredStructEnabled())

// #region parse
// Parse decodes and validates one YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validate.Struct(fc); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	version, err := ParseVersion(fc.Version)
	if err != nil {
		return nil, err
	}
	fcVersion, err := ParseVersion(fc.FCVersion)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(fc.Items))
	for _, fi := range fc.Items {
		it, err := fi.toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return New(version, fcVersion, items)
}

func (fi fileItem) toItem() (Item, error) {
	it := Item{
		ID:        fi.ID,
		Tag:       Tag(fi.Tag),
		Scale:     ScaleType(fi.Scale),
		Section:   fi.Section,
		Reverse:   fi.Reverse,
		BlockID:   fi.Block,
		PairGroup: fi.PairGroup,
		PairSide:  PairSide(fi.PairSide),
		Expected:  fi.Expected,
	}
	if it.Tag != TagForcedChoice && !it.IsLikert() {
		return Item{}, fmt.Errorf("item %s: tag %s needs a Likert scale, got %s", fi.ID, fi.Tag, fi.Scale)
	}
	if fi.Function != "" {
		f, err := ParseFunction(fi.Function)
		if err != nil {
			return Item{}, fmt.Errorf("item %s: %w", fi.ID, err)
		}
		it.Function = f
	}
	if it.Tag == TagAttentionCheck {
		lo, hi, _ := it.Scale.Bounds()
		if fi.Expected < lo || fi.Expected > hi {
			return Item{}, fmt.Errorf("item %s: expected answer %d outside %d..%d", fi.ID, fi.Expected, lo, hi)
		}
	}
	if it.Tag == TagForcedChoice {
		if it.Scale != ScaleForcedChoice {
			return Item{}, fmt.Errorf("item %s: forced-choice item must use %s", fi.ID, ScaleForcedChoice)
		}
		if len(fi.Options) < 2 {
			return Item{}, fmt.Errorf("item %s: forced-choice needs at least 2 options", fi.ID)
		}
		it.Options = make(map[string]Weights, len(fi.Options))
		for code, weights := range fi.Options {
			var w Weights
			for name, val := range weights {
				f, err := ParseFunction(name)
				if err != nil {
					return Item{}, fmt.Errorf("item %s option %s: %w", fi.ID, code, err)
				}
				if val < 0 {
					return Item{}, fmt.Errorf("item %s option %s: negative weight", fi.ID, code)
				}
				w[f] = val
			}
			it.Options[strings.ToUpper(code)] = w
		}
	}
	return it, nil
}

// #endregion parse

// #region loaders
// LoadFile reads one catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadDir registers every *.yaml file in dir into a new registry.
func LoadDir(dir string) (*Registry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalogs in %s", dir)
	}
	sort.Strings(paths)
	reg := NewRegistry()
	for _, p := range paths {
		c, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		reg.Add(c)
	}
	return reg, nil
}

// Embedded returns a registry of the catalogs compiled into the binary.
func Embedded() (*Registry, error) {
	entries, err := fs.ReadDir(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalogs: %w", err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		data, err := embedded.ReadFile("data/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded %s: %w", e.Name(), err)
		}
		c, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("embedded %s: %w", e.Name(), err)
		}
		reg.Add(c)
	}
	return reg, nil
}

// Default returns the latest embedded catalog.
func Default() (*Catalog, error) {
	reg, err := Embedded()
	if err != nil {
		return nil, err
	}
	return reg.Latest()
}

// #endregion loaders
