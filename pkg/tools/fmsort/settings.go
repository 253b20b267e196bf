package fmsort

import (
	"time"

	"github.com/entrhq/toolbox/pkg/form"
)

// SettingsGroups implements form.Provider.
func (t *Tool) SettingsGroups() []form.Group {
	debounced := form.Behavior{Debounce: 500 * time.Millisecond}

	return []form.Group{{
		Title:       "Sorting",
		Description: "How front matter properties are ordered",
		Fields: []form.Field{
			{
				Name:        KeyPropertyOrder,
				Label:       "Property order",
				Description: "One property name per line",
				Kind:        form.KindTextArea,
				Default:     DefaultPropertyOrder,
				Rows:        6,
				Placeholder: "one property per line",
				Behavior:    debounced,
			},
			{
				Name:        KeyAutoSortOnSave,
				Label:       "Sort on save",
				Description: "Sort a note whenever it is modified",
				Kind:        form.KindToggle,
				Default:     true,
			},
			{
				Name:        KeyAutoSortOnStartup,
				Label:       "Sort on startup",
				Description: "Sort every note once when the tool starts",
				Kind:        form.KindToggle,
				Default:     false,
			},
			{
				Name:        KeyKeepUnspecifiedProperties,
				Label:       "Keep other properties",
				Description: "Keep properties missing from the list after the listed ones",
				Kind:        form.KindToggle,
				Default:     true,
			},
			{
				Name:        KeyIgnoredFolders,
				Label:       "Ignored folders",
				Description: "One pattern per line, * and ? allowed",
				Kind:        form.KindTextArea,
				Default:     "",
				Rows:        4,
				Placeholder: "templates\nattachments/*",
				Behavior:    debounced,
			},
			{
				Name:        KeyIgnoredFiles,
				Label:       "Ignored files",
				Description: "One pattern per line, * and ? allowed",
				Kind:        form.KindTextArea,
				Default:     "",
				Rows:        4,
				Placeholder: "*.excalidraw.md",
				Behavior:    debounced,
			},
		},
	}}
}
