package config

import (
	"fmt"
	"strconv"
)

// SortBy selects the ordering of the tool list.
type SortBy string

const (
	SortByName    SortBy = "name"
	SortByEnabled SortBy = "enabled"
)

// ViewMode selects how the tool list is laid out.
type ViewMode string

const (
	ViewModeList ViewMode = "list"
	ViewModeGrid ViewMode = "grid"
)

// OpenMode selects where tool settings open.
type OpenMode string

const (
	OpenModeTab   OpenMode = "tab"
	OpenModeModal OpenMode = "modal"
)

// Registry-wide keys stored next to the tool sections.
const (
	KeySortBy                      = "sortBy"
	KeyViewMode                    = "viewMode"
	KeyOpenMode                    = "openMode"
	KeyEnabledTools                = "enabledTools"
	KeyAutoCollapseGeneralSettings = "autoCollapseGeneralSettings"
)

// IsPreferenceKey reports whether key is a registry-wide preference rather
// than a tool id.
func IsPreferenceKey(key string) bool {
	switch key {
	case KeySortBy, KeyViewMode, KeyOpenMode, KeyEnabledTools, KeyAutoCollapseGeneralSettings:
		return true
	}
	return false
}

// Preferences holds the registry-wide settings.
type Preferences struct {
	SortBy                      SortBy   `json:"sortBy"`
	ViewMode                    ViewMode `json:"viewMode"`
	OpenMode                    OpenMode `json:"openMode"`
	EnabledTools                []string `json:"enabledTools"`
	AutoCollapseGeneralSettings bool     `json:"autoCollapseGeneralSettings"`
}

// DefaultPreferences returns the preferences used for a fresh document.
func DefaultPreferences() Preferences {
	return Preferences{
		SortBy:       SortByName,
		ViewMode:     ViewModeList,
		OpenMode:     OpenModeTab,
		EnabledTools: []string{},
	}
}

// PreferencesFromDocument reads the preference keys out of doc. Invalid or
// missing values fall back to their default one field at a time.
func PreferencesFromDocument(doc Document) Preferences {
	p := DefaultPreferences()

	if v, ok := doc[KeySortBy].(string); ok && validSortBy(SortBy(v)) {
		p.SortBy = SortBy(v)
	}
	if v, ok := doc[KeyViewMode].(string); ok && validViewMode(ViewMode(v)) {
		p.ViewMode = ViewMode(v)
	}
	if v, ok := doc[KeyOpenMode].(string); ok && validOpenMode(OpenMode(v)) {
		p.OpenMode = OpenMode(v)
	}
	if v, ok := doc[KeyAutoCollapseGeneralSettings].(bool); ok {
		p.AutoCollapseGeneralSettings = v
	}

	switch tools := doc[KeyEnabledTools].(type) {
	case []string:
		p.EnabledTools = append([]string{}, tools...)
	case []any:
		for _, t := range tools {
			if id, ok := t.(string); ok {
				p.EnabledTools = append(p.EnabledTools, id)
			}
		}
	}

	return p
}

// ApplyTo writes the preferences into doc.
func (p Preferences) ApplyTo(doc Document) {
	enabled := p.EnabledTools
	if enabled == nil {
		enabled = []string{}
	}
	doc[KeySortBy] = string(p.SortBy)
	doc[KeyViewMode] = string(p.ViewMode)
	doc[KeyOpenMode] = string(p.OpenMode)
	doc[KeyEnabledTools] = append([]string{}, enabled...)
	doc[KeyAutoCollapseGeneralSettings] = p.AutoCollapseGeneralSettings
}

// Validate checks the enumerated fields.
func (p Preferences) Validate() error {
	if !validSortBy(p.SortBy) {
		return fmt.Errorf("invalid sortBy %q: must be name or enabled", p.SortBy)
	}
	if !validViewMode(p.ViewMode) {
		return fmt.Errorf("invalid viewMode %q: must be list or grid", p.ViewMode)
	}
	if !validOpenMode(p.OpenMode) {
		return fmt.Errorf("invalid openMode %q: must be tab or modal", p.OpenMode)
	}
	return nil
}

// Set assigns one preference from its string form.
func (p *Preferences) Set(key, value string) error {
	switch key {
	case KeySortBy:
		p.SortBy = SortBy(value)
	case KeyViewMode:
		p.ViewMode = ViewMode(value)
	case KeyOpenMode:
		p.OpenMode = OpenMode(value)
	case KeyAutoCollapseGeneralSettings:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		p.AutoCollapseGeneralSettings = b
	case KeyEnabledTools:
		return fmt.Errorf("%s is derived from tool state; enable or disable tools instead", key)
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	return p.Validate()
}

// IsToolEnabled reports whether id is listed in EnabledTools.
func (p Preferences) IsToolEnabled(id string) bool {
	for _, t := range p.EnabledTools {
		if t == id {
			return true
		}
	}
	return false
}

func validSortBy(v SortBy) bool {
	return v == SortByName || v == SortByEnabled
}

func validViewMode(v ViewMode) bool {
	return v == ViewModeList || v == ViewModeGrid
}

func validOpenMode(v OpenMode) bool {
	return v == OpenModeTab || v == OpenModeModal
}
