// Package validation provides configuration item validation and dependency ordering
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/macsnap/macsnap/pkg/types"
)

// ErrCycle indicates the dependency graph contains a cycle and no
// topological order exists.
var ErrCycle = errors.New("circular dependency detected")

// Severity represents issue severity
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue kinds emitted by the validator. CLI and tests match on these
// rather than on message text.
const (
	KindMissing            = "missing"
	KindInvalidValue       = "invalid_value"
	KindInvalidFormat      = "invalid_format"
	KindMissingRequired    = "missing_required"
	KindUnnecessary        = "unnecessary"
	KindFormatSuggestion   = "format_suggestion"
	KindMissingReference   = "missing_reference"
	KindCircularDependency = "circular_dependency"
)

// Issue represents a validation finding with context
type Issue struct {
	ItemID   string
	Field    string
	Kind     string
	Message  string
	Severity Severity
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s.%s: %s", i.Severity, i.ItemID, i.Field, i.Message)
}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validator validates configuration items and their relationships.
// A Validator carries no state between calls and is safe to reuse.
type Validator struct{}

// New creates a new validator
func New() *Validator {
	return &Validator{}
}

// result accumulates issues during a single validation pass
type result struct {
	errors   []Issue
	warnings []Issue
}

func (r *result) addError(itemID, field, kind, message string) {
	r.errors = append(r.errors, Issue{ItemID: itemID, Field: field, Kind: kind, Message: message, Severity: SeverityError})
}

func (r *result) addWarning(itemID, field, kind, message string) {
	r.warnings = append(r.warnings, Issue{ItemID: itemID, Field: field, Kind: kind, Message: message, Severity: SeverityWarning})
}

// ValidateAll validates all configuration items comprehensively and
// returns the accumulated errors and warnings.
func (v *Validator) ValidateAll(items map[string]*types.ConfigItem) (errors, warnings []Issue) {
	res := &result{}

	for _, id := range sortedIDs(items) {
		v.validateItem(items[id], res)
	}

	v.validateDependencies(items, res)
	v.detectCycles(items, res)

	return res.errors, res.warnings
}

func (v *Validator) validateItem(item *types.ConfigItem, res *result) {
	v.validateSchema(item, res)
	v.validateType(item, res)
	v.validateScripts(item, res)
	v.validateFormats(item, res)
}

func (v *Validator) validateSchema(item *types.ConfigItem, res *result) {
	if strings.TrimSpace(item.ID) == "" {
		id := item.ID
		if id == "" {
			id = "unknown"
		}
		res.addError(id, "id", KindMissing, "ID field is required and cannot be empty")
	}

	if strings.TrimSpace(item.Name) == "" {
		res.addError(item.ID, "name", KindMissing, "Name field is required and cannot be empty")
	}

	if strings.TrimSpace(string(item.Type)) == "" {
		res.addError(item.ID, "type", KindMissing, "Type field is required and cannot be empty")
	}

	if strings.TrimSpace(item.Category) == "" {
		res.addError(item.ID, "category", KindMissing, "Category field is required and cannot be empty")
	}
}

func (v *Validator) validateType(item *types.ConfigItem, res *result) {
	if item.Type == "" {
		return
	}
	if !types.ValidItemTypes()[item.Type] {
		valid := make([]string, 0, len(types.ValidItemTypes()))
		for t := range types.ValidItemTypes() {
			valid = append(valid, string(t))
		}
		sort.Strings(valid)
		res.addError(item.ID, "type", KindInvalidValue,
			fmt.Sprintf("Invalid type '%s'. Valid types are: %s", item.Type, strings.Join(valid, ", ")))
	}
}

func (v *Validator) validateScripts(item *types.ConfigItem, res *result) {
	requirements, ok := types.ScriptRequirements()[item.Type]
	if !ok {
		return
	}

	for _, slot := range types.ScriptSlots() {
		required := requirements[slot]
		has := item.HasScript(slot) && strings.TrimSpace(item.Script(slot)) != ""

		if required && !has {
			res.addError(item.ID, fmt.Sprintf("%s_script", slot), KindMissingRequired,
				fmt.Sprintf("Type '%s' requires a '%s' script", item.Type, slot))
		} else if has && !required {
			res.addWarning(item.ID, fmt.Sprintf("%s_script", slot), KindUnnecessary,
				fmt.Sprintf("Type '%s' typically doesn't need a '%s' script", item.Type, slot))
		}
	}
}

func (v *Validator) validateFormats(item *types.ConfigItem, res *result) {
	if item.ID != "" && !idPattern.MatchString(item.ID) {
		res.addError(item.ID, "id", KindInvalidFormat,
			"ID should contain only letters, numbers, underscores, and hyphens")
	}

	for _, depID := range item.Dependencies {
		if strings.TrimSpace(depID) == "" {
			res.addError(item.ID, "dependencies", KindInvalidFormat,
				"Dependencies cannot contain empty values")
		} else if !idPattern.MatchString(depID) {
			res.addError(item.ID, "dependencies", KindInvalidFormat,
				fmt.Sprintf("Dependency ID '%s' has invalid format", depID))
		}
	}

	if item.Category != "" && !isTitleCase(item.Category) {
		res.addWarning(item.ID, "category", KindFormatSuggestion,
			"Category should use title case (e.g., 'Development Tools')")
	}
}

func (v *Validator) validateDependencies(items map[string]*types.ConfigItem, res *result) {
	for _, id := range sortedIDs(items) {
		for _, depID := range items[id].Dependencies {
			if _, ok := items[depID]; !ok {
				res.addError(id, "dependencies", KindMissingReference,
					fmt.Sprintf("Dependency '%s' does not exist", depID))
			}
		}
	}
}

// detectCycles walks the dependency graph with an explicit stack, keeping
// an on-stack set so a back-edge can be reported with its full cycle path.
// One error is emitted per discovered back-edge; finding every cycle in a
// component is not required.
func (v *Validator) detectCycles(items map[string]*types.ConfigItem, res *result) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	type frame struct {
		id      string
		nextDep int
	}

	for _, rootID := range sortedIDs(items) {
		if visited[rootID] {
			continue
		}

		stack := []frame{{id: rootID}}
		path := []string{rootID}
		visited[rootID] = true
		onStack[rootID] = true

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			item := items[top.id]

			if item == nil || top.nextDep >= len(item.Dependencies) {
				onStack[top.id] = false
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
				continue
			}

			depID := item.Dependencies[top.nextDep]
			top.nextDep++

			if _, ok := items[depID]; !ok {
				continue // unresolved deps are reported separately
			}

			if onStack[depID] {
				cycle := cyclePath(path, depID)
				res.addError(depID, "dependencies", KindCircularDependency,
					fmt.Sprintf("Circular dependency detected: %s", strings.Join(cycle, " -> ")))
				continue
			}

			if visited[depID] {
				continue
			}

			visited[depID] = true
			onStack[depID] = true
			stack = append(stack, frame{id: depID})
			path = append(path, depID)
		}
	}
}

// cyclePath extracts the closed cycle from the current traversal path,
// starting at the repeated node.
func cyclePath(path []string, repeat string) []string {
	start := 0
	for i, id := range path {
		if id == repeat {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(path)-start+1)
	cycle = append(cycle, path[start:]...)
	cycle = append(cycle, repeat)
	return cycle
}

// DependencyOrder returns item IDs in a topological order such that every
// item's dependencies appear before it. It fails with a descriptive error
// rather than returning a partial order when the graph contains a cycle.
func (v *Validator) DependencyOrder(items map[string]*types.ConfigItem) ([]string, error) {
	errs, _ := v.ValidateAll(items)
	for _, issue := range errs {
		if issue.Kind == KindCircularDependency {
			return nil, fmt.Errorf("cannot determine order: %w: %s", ErrCycle, issue.Message)
		}
	}

	visited := make(map[string]bool)
	order := make([]string, 0, len(items))

	type frame struct {
		id      string
		nextDep int
	}

	for _, rootID := range sortedIDs(items) {
		if visited[rootID] {
			continue
		}
		visited[rootID] = true
		stack := []frame{{id: rootID}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			item := items[top.id]

			if item == nil || top.nextDep >= len(item.Dependencies) {
				// Postorder append: all dependencies already emitted
				order = append(order, top.id)
				stack = stack[:len(stack)-1]
				continue
			}

			depID := item.Dependencies[top.nextDep]
			top.nextDep++

			if _, ok := items[depID]; !ok {
				continue
			}
			if visited[depID] {
				continue
			}

			visited[depID] = true
			stack = append(stack, frame{id: depID})
		}
	}

	return order, nil
}

// Summary describes the outcome of a validation pass
type Summary struct {
	TotalErrors    int
	TotalWarnings  int
	ErrorsByKind   map[string]int
	WarningsByKind map[string]int
	IssuesByItem   map[string]int
	IsValid        bool
}

// Summarize builds an aggregate view over a validation pass.
func Summarize(errors, warnings []Issue) Summary {
	s := Summary{
		TotalErrors:    len(errors),
		TotalWarnings:  len(warnings),
		ErrorsByKind:   make(map[string]int),
		WarningsByKind: make(map[string]int),
		IssuesByItem:   make(map[string]int),
		IsValid:        len(errors) == 0,
	}
	for _, e := range errors {
		s.ErrorsByKind[e.Kind]++
		s.IssuesByItem[e.ItemID]++
	}
	for _, w := range warnings {
		s.WarningsByKind[w.Kind]++
		s.IssuesByItem[w.ItemID]++
	}
	return s
}

func sortedIDs(items map[string]*types.ConfigItem) []string {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func isTitleCase(s string) bool {
	if s == strings.ToUpper(s) || s == strings.ToLower(s) {
		return false
	}
	for _, word := range strings.Fields(s) {
		r := []rune(word)
		if unicode.IsLetter(r[0]) && !unicode.IsUpper(r[0]) {
			return false
		}
	}
	return true
}
