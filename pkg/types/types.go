// Package types provides core types shared across MacSnap
package types

import (
	"fmt"
	"time"
)

// ItemType represents supported installation item types
type ItemType string

const (
	ItemTypeBrew              ItemType = "brew"
	ItemTypeBrewCask          ItemType = "brew_cask"
	ItemTypeMAS               ItemType = "mas"
	ItemTypeDirectDownloadDMG ItemType = "direct_download_dmg"
	ItemTypeDirectDownloadPKG ItemType = "direct_download_pkg"
	ItemTypeProtoTool         ItemType = "proto_tool"
	ItemTypeSystemConfig      ItemType = "system_config"
	ItemTypeLaunchAgent       ItemType = "launch_agent"
	ItemTypeShellScript       ItemType = "shell_script"
)

// ValidItemTypes returns the set of recognized item types.
func ValidItemTypes() map[ItemType]bool {
	return map[ItemType]bool{
		ItemTypeBrew:              true,
		ItemTypeBrewCask:          true,
		ItemTypeMAS:               true,
		ItemTypeDirectDownloadDMG: true,
		ItemTypeDirectDownloadPKG: true,
		ItemTypeProtoTool:         true,
		ItemTypeSystemConfig:      true,
		ItemTypeLaunchAgent:       true,
		ItemTypeShellScript:       true,
	}
}

// ScriptSlot represents one of the four script roles an item may define
type ScriptSlot string

const (
	SlotInstall   ScriptSlot = "install"
	SlotValidate  ScriptSlot = "validate"
	SlotConfigure ScriptSlot = "configure"
	SlotUninstall ScriptSlot = "uninstall"
)

// ScriptSlots lists all slots in pipeline order.
func ScriptSlots() []ScriptSlot {
	return []ScriptSlot{SlotInstall, SlotValidate, SlotConfigure, SlotUninstall}
}

// ScriptRequirements maps each item type to its script slot requirements.
// A required slot that is missing is a validation error; a filled slot
// marked false triggers an "unnecessary script" warning.
func ScriptRequirements() map[ItemType]map[ScriptSlot]bool {
	return map[ItemType]map[ScriptSlot]bool{
		ItemTypeBrew:              {SlotInstall: true, SlotValidate: false, SlotConfigure: false, SlotUninstall: false},
		ItemTypeBrewCask:          {SlotInstall: true, SlotValidate: false, SlotConfigure: false, SlotUninstall: false},
		ItemTypeMAS:               {SlotInstall: true, SlotValidate: false, SlotConfigure: false, SlotUninstall: false},
		ItemTypeDirectDownloadDMG: {SlotInstall: true, SlotValidate: true, SlotConfigure: false, SlotUninstall: false},
		ItemTypeDirectDownloadPKG: {SlotInstall: true, SlotValidate: true, SlotConfigure: false, SlotUninstall: false},
		ItemTypeProtoTool:         {SlotInstall: true, SlotValidate: false, SlotConfigure: false, SlotUninstall: false},
		ItemTypeSystemConfig:      {SlotInstall: false, SlotValidate: false, SlotConfigure: true, SlotUninstall: false},
		ItemTypeLaunchAgent:       {SlotInstall: true, SlotValidate: true, SlotConfigure: false, SlotUninstall: true},
		ItemTypeShellScript:       {SlotInstall: true, SlotValidate: false, SlotConfigure: false, SlotUninstall: false},
	}
}

// Operation represents a batch operation requested against items
type Operation string

const (
	OperationInstall   Operation = "install"
	OperationValidate  Operation = "validate"
	OperationConfigure Operation = "configure"
	OperationUninstall Operation = "uninstall"
)

// ParseOperation converts a user-supplied token into a batch Operation.
// Only install, uninstall and configure are valid batch operations;
// validate runs implicitly as part of the install pipeline.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OperationInstall, OperationUninstall, OperationConfigure:
		return Operation(s), nil
	default:
		return "", fmt.Errorf("unknown operation: %s", s)
	}
}

// Outcome represents the tagged result of one operation against one item
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeFailed           Outcome = "failed"
	OutcomeSkipped          Outcome = "skipped"
	OutcomeAlreadyInstalled Outcome = "already_installed"
)

// ConfigItem represents a single installable item loaded from a YAML file.
// Items are created by the config loader and treated as immutable afterwards.
type ConfigItem struct {
	ID                string   `json:"id" yaml:"id"`
	Name              string   `json:"name" yaml:"name"`
	Description       string   `json:"description,omitempty" yaml:"description,omitempty"`
	Type              ItemType `json:"type" yaml:"type"`
	Category          string   `json:"category" yaml:"category"`
	SelectedByDefault bool     `json:"selectedByDefault,omitempty" yaml:"selected_by_default,omitempty"`
	Dependencies      []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	InstallScript   string `json:"installScript,omitempty" yaml:"-"`
	ValidateScript  string `json:"validateScript,omitempty" yaml:"-"`
	ConfigureScript string `json:"configureScript,omitempty" yaml:"-"`
	UninstallScript string `json:"uninstallScript,omitempty" yaml:"-"`

	FilePath  string `json:"filePath,omitempty" yaml:"-"`
	ConfigDir string `json:"configDir,omitempty" yaml:"-"`
}

// Script returns the script body for the given slot, or "" if unset.
func (c *ConfigItem) Script(slot ScriptSlot) string {
	switch slot {
	case SlotInstall:
		return c.InstallScript
	case SlotValidate:
		return c.ValidateScript
	case SlotConfigure:
		return c.ConfigureScript
	case SlotUninstall:
		return c.UninstallScript
	}
	return ""
}

// HasScript reports whether the item defines a non-empty script for the slot.
func (c *ConfigItem) HasScript(slot ScriptSlot) bool {
	return len(c.Script(slot)) > 0
}

// ExecutionResult represents the outcome of running one script slot
type ExecutionResult struct {
	Operation    Operation     `json:"operation"`
	ItemID       string        `json:"itemId"`
	Outcome      Outcome       `json:"outcome"`
	ExitCode     int           `json:"exitCode"`
	Stdout       string        `json:"stdout,omitempty"`
	Stderr       string        `json:"stderr,omitempty"`
	Duration     time.Duration `json:"duration"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}

// BatchSummary aggregates the results accumulated by an engine instance
type BatchSummary struct {
	TotalOperations int               `json:"totalOperations"`
	ByOutcome       map[Outcome]int   `json:"byOutcome"`
	ByOperation     map[Operation]int `json:"byOperation"`
	TotalDuration   time.Duration     `json:"totalDuration"`
	InstalledItems  int               `json:"installedItems"`
	FailedItemIDs   []string          `json:"failedItemIds"`
	SkippedItemIDs  []string          `json:"skippedItemIds"`
}
