// Package config handles discovery and loading of item definition files
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/macsnap/macsnap/pkg/logger"
	"github.com/macsnap/macsnap/pkg/types"
)

// ErrNoConfigDir indicates the configs directory does not exist
var ErrNoConfigDir = errors.New("configs directory not found")

// scriptSection mirrors the nested `script:` key each slot uses in the
// definition files.
type scriptSection struct {
	Script string `yaml:"script"`
}

// itemFile is the on-disk shape of a single item definition
type itemFile struct {
	ID                string         `yaml:"id"`
	Name              string         `yaml:"name"`
	Description       string         `yaml:"description"`
	Type              string         `yaml:"type"`
	Category          string         `yaml:"category"`
	SelectedByDefault bool           `yaml:"selected_by_default"`
	Dependencies      []string       `yaml:"dependencies"`
	Install           *scriptSection `yaml:"install"`
	Validate          *scriptSection `yaml:"validate"`
	Configure         *scriptSection `yaml:"configure"`
	Uninstall         *scriptSection `yaml:"uninstall"`
}

// Loader loads and indexes item definitions from a configs directory
type Loader struct {
	configsDir string
	logger     logger.Logger

	items      map[string]*types.ConfigItem
	categories map[string]bool
}

// NewLoader creates a loader rooted at configsDir
func NewLoader(configsDir string, log logger.Logger) *Loader {
	return &Loader{
		configsDir: configsDir,
		logger:     log,
		items:      make(map[string]*types.ConfigItem),
		categories: make(map[string]bool),
	}
}

// Load recursively discovers *.yml / *.yaml files under the configs
// directory and parses them into items. Empty files, malformed files and
// duplicate ids are skipped with a warning rather than failing the load.
func (l *Loader) Load() (map[string]*types.ConfigItem, error) {
	absDir, err := filepath.Abs(l.configsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configs directory: %w", err)
	}

	if info, err := os.Stat(absDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoConfigDir, absDir)
	}

	l.items = make(map[string]*types.ConfigItem)
	l.categories = make(map[string]bool)

	var files []string
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yml" || ext == ".yaml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan configs directory: %w", err)
	}
	sort.Strings(files)

	l.logger.Debug("Discovered configuration files", logger.WithField("count", len(files)))

	for _, path := range files {
		item, err := l.loadFile(path, absDir)
		if err != nil {
			l.logger.Warn("Skipping configuration file",
				logger.WithField("file", path),
				logger.WithField("error", err))
			continue
		}
		if item == nil {
			continue
		}

		if existing, ok := l.items[item.ID]; ok {
			l.logger.Warn("Duplicate item id, keeping first definition",
				logger.WithField("id", item.ID),
				logger.WithField("file", path),
				logger.WithField("previous", existing.FilePath))
			continue
		}

		l.items[item.ID] = item
		l.categories[item.Category] = true
	}

	l.logger.Info("Loaded configurations",
		logger.WithField("items", len(l.items)),
		logger.WithField("categories", len(l.categories)))

	return l.items, nil
}

func (l *Loader) loadFile(path, configsDir string) (*types.ConfigItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		l.logger.Warn("Empty configuration file", logger.WithField("file", path))
		return nil, nil
	}

	var raw itemFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("yaml parsing error: %w", err)
	}

	if raw.ID == "" || raw.Name == "" || raw.Type == "" || raw.Category == "" {
		return nil, fmt.Errorf("missing required field (id, name, type and category are mandatory)")
	}

	item := &types.ConfigItem{
		ID:                raw.ID,
		Name:              raw.Name,
		Description:       raw.Description,
		Type:              types.ItemType(raw.Type),
		Category:          raw.Category,
		SelectedByDefault: raw.SelectedByDefault,
		Dependencies:      raw.Dependencies,
		FilePath:          path,
		ConfigDir:         configsDir,
	}

	if raw.Install != nil {
		item.InstallScript = raw.Install.Script
	}
	if raw.Validate != nil {
		item.ValidateScript = raw.Validate.Script
	}
	if raw.Configure != nil {
		item.ConfigureScript = raw.Configure.Script
	}
	if raw.Uninstall != nil {
		item.UninstallScript = raw.Uninstall.Script
	}

	return item, nil
}

// Items returns the loaded item map.
func (l *Loader) Items() map[string]*types.ConfigItem {
	return l.items
}

// Item returns a single item by id.
func (l *Loader) Item(id string) (*types.ConfigItem, bool) {
	item, ok := l.items[id]
	return item, ok
}

// Categories returns all categories sorted alphabetically.
func (l *Loader) Categories() []string {
	out := make([]string, 0, len(l.categories))
	for c := range l.categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ItemsByCategory returns the items in a category sorted by display name.
func (l *Loader) ItemsByCategory(category string) []*types.ConfigItem {
	var out []*types.ConfigItem
	for _, item := range l.items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SelectedByDefault returns the ids of items marked selected_by_default,
// sorted for deterministic batch input.
func (l *Loader) SelectedByDefault() []string {
	var out []string
	for id, item := range l.items {
		if item.SelectedByDefault {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Stats describes the loaded configuration set
type Stats struct {
	TotalItems        int
	TotalCategories   int
	SelectedByDefault int
	ItemsByType       map[types.ItemType]int
	ItemsByCategory   map[string]int
}

// Stats returns statistics about the loaded configurations.
func (l *Loader) Stats() Stats {
	s := Stats{
		TotalItems:      len(l.items),
		TotalCategories: len(l.categories),
		ItemsByType:     make(map[types.ItemType]int),
		ItemsByCategory: make(map[string]int),
	}
	for _, item := range l.items {
		s.ItemsByType[item.Type]++
		s.ItemsByCategory[item.Category]++
		if item.SelectedByDefault {
			s.SelectedByDefault++
		}
	}
	return s
}
