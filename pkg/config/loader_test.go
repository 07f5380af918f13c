package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/macsnap/macsnap/pkg/config"
	"github.com/macsnap/macsnap/pkg/logger"
	"github.com/macsnap/macsnap/pkg/types"
)

func testLogger() logger.Logger {
	return logger.CreateLoggerWithOutput("error", &bytes.Buffer{})
}

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

const gitConfig = `id: git
name: Git
description: Version control
type: brew
category: Development Tools
selected_by_default: true
install:
  script: |
    brew install git
validate:
  script: |
    command -v git
`

const nodeConfig = `id: node
name: Node.js
type: brew
category: Development Tools
dependencies:
  - git
install:
  script: brew install node
`

func TestLoad_DiscoversNestedFiles(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "dev/git.yml", gitConfig)
	writeConfig(t, dir, "dev/tools/node.yaml", nodeConfig)

	loader := config.NewLoader(dir, testLogger())
	items, err := loader.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	git := items["git"]
	if git == nil {
		t.Fatal("git item not loaded")
	}
	if git.Type != types.ItemTypeBrew {
		t.Errorf("expected brew type, got %s", git.Type)
	}
	if !git.SelectedByDefault {
		t.Error("expected git selected by default")
	}
	if git.InstallScript == "" || git.ValidateScript == "" {
		t.Error("expected install and validate scripts extracted")
	}
	if git.ConfigDir == "" || git.FilePath == "" {
		t.Error("expected provenance fields populated")
	}

	node := items["node"]
	if node == nil {
		t.Fatal("node item not loaded")
	}
	if len(node.Dependencies) != 1 || node.Dependencies[0] != "git" {
		t.Errorf("expected node to depend on git, got %v", node.Dependencies)
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	loader := config.NewLoader(filepath.Join(t.TempDir(), "nope"), testLogger())
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected error for missing configs directory")
	}
}

func TestLoad_SkipsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yml", gitConfig)
	writeConfig(t, dir, "b.yml", gitConfig)

	loader := config.NewLoader(dir, testLogger())
	items, err := loader.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected duplicate to be skipped, got %d items", len(items))
	}
	// First file wins
	if filepath.Base(items["git"].FilePath) != "a.yml" {
		t.Errorf("expected a.yml to win, got %s", items["git"].FilePath)
	}
}

func TestLoad_SkipsEmptyAndMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "empty.yml", "")
	writeConfig(t, dir, "broken.yml", "id: [unclosed")
	writeConfig(t, dir, "incomplete.yml", "id: only-id\n")
	writeConfig(t, dir, "good.yml", gitConfig)

	loader := config.NewLoader(dir, testLogger())
	items, err := loader.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected only the valid file to load, got %d items", len(items))
	}
}

func TestLoad_IgnoresNonYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "readme.md", "# not yaml")
	writeConfig(t, dir, "git.yml", gitConfig)

	loader := config.NewLoader(dir, testLogger())
	items, err := loader.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestCategoriesAndLookups(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "git.yml", gitConfig)
	writeConfig(t, dir, "node.yml", nodeConfig)
	writeConfig(t, dir, "iterm.yml", `id: iterm
name: iTerm2
type: brew_cask
category: Apps
install:
  script: brew install --cask iterm2
`)

	loader := config.NewLoader(dir, testLogger())
	if _, err := loader.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	categories := loader.Categories()
	if len(categories) != 2 || categories[0] != "Apps" || categories[1] != "Development Tools" {
		t.Errorf("unexpected categories: %v", categories)
	}

	dev := loader.ItemsByCategory("Development Tools")
	if len(dev) != 2 {
		t.Fatalf("expected 2 dev items, got %d", len(dev))
	}
	if dev[0].Name != "Git" || dev[1].Name != "Node.js" {
		t.Errorf("expected items sorted by name, got %s, %s", dev[0].Name, dev[1].Name)
	}

	if _, ok := loader.Item("iterm"); !ok {
		t.Error("expected iterm lookup to succeed")
	}
	if _, ok := loader.Item("ghost"); ok {
		t.Error("expected ghost lookup to fail")
	}

	defaults := loader.SelectedByDefault()
	if len(defaults) != 1 || defaults[0] != "git" {
		t.Errorf("expected defaults [git], got %v", defaults)
	}

	stats := loader.Stats()
	if stats.TotalItems != 3 || stats.TotalCategories != 2 || stats.SelectedByDefault != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.ItemsByType[types.ItemTypeBrew] != 2 {
		t.Errorf("expected 2 brew items, got %d", stats.ItemsByType[types.ItemTypeBrew])
	}
}
