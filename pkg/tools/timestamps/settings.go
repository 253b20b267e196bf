package timestamps

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/entrhq/toolbox/pkg/form"
)

// SettingsGroups implements form.Provider.
func (t *Tool) SettingsGroups() []form.Group {
	return []form.Group{
		{
			Title:       "Basic",
			Description: "Timestamp format and update rate",
			Fields: []form.Field{
				{
					Name:        KeyDateFormat,
					Label:       "Date format",
					Description: "Layout of written timestamps, e.g. YYYY-MM-DD HH:mm:ss",
					Kind:        form.KindText,
					Default:     DefaultDateFormat,
					Validation:  &form.Validation{Required: true},
					Behavior:    form.Behavior{Debounce: 500 * time.Millisecond},
				},
				{
					Name:        KeyModifyInterval,
					Label:       "Modify interval",
					Description: "Minimum seconds between updates of the modified time",
					Kind:        form.KindText,
					Default:     10,
					Placeholder: "seconds",
					Validation: &form.Validation{
						Required:       true,
						Pattern:        `^[1-9]\d*$`,
						PatternMessage: "enter a whole number greater than 0",
						Custom:         positiveInteger,
					},
					Behavior: form.Behavior{Debounce: 500 * time.Millisecond},
				},
			},
		},
		{
			Title:       "Created time",
			Description: "How the created property is filled",
			Fields: []form.Field{
				{
					Name:        KeyEnableCreatedTime,
					Label:       "Add created time",
					Description: "Write a created property to notes that lack one",
					Kind:        form.KindToggle,
					Default:     true,
				},
				{
					Name:        KeyUseFileCreationDate,
					Label:       "Use file date",
					Description: "Use the file's date instead of the current time",
					Kind:        form.KindToggle,
					Default:     true,
					DependsOn:   &form.Dependency{Field: KeyEnableCreatedTime, Value: true},
				},
			},
		},
		{
			Title:       "Modified time",
			Description: "How the modified property is filled",
			Fields: []form.Field{
				{
					Name:        KeyEnableModifiedTime,
					Label:       "Add modified time",
					Description: "Write and refresh a modified property",
					Kind:        form.KindToggle,
					Default:     true,
				},
				{
					Name:        KeyUseFileModificationDate,
					Label:       "Use file date",
					Description: "Use the file's modification date instead of the current time",
					Kind:        form.KindToggle,
					Default:     true,
					DependsOn:   &form.Dependency{Field: KeyEnableModifiedTime, Value: true},
				},
			},
		},
		{
			Title:       "Filters",
			Description: "Notes that are never touched",
			Fields: []form.Field{
				{
					Name:        KeyIgnoredFolders,
					Label:       "Ignored folders",
					Description: "One pattern per line, * and ? allowed",
					Kind:        form.KindTextArea,
					Default:     "",
					Rows:        4,
					Placeholder: "templates\nattachments/*",
					Behavior:    form.Behavior{Debounce: 500 * time.Millisecond},
				},
				{
					Name:        KeyIgnoredFiles,
					Label:       "Ignored files",
					Description: "One pattern per line, * and ? allowed",
					Kind:        form.KindTextArea,
					Default:     "",
					Rows:        4,
					Placeholder: "*.excalidraw.md",
					Behavior:    form.Behavior{Debounce: 500 * time.Millisecond},
				},
				{
					Name:        KeyIgnoredTags,
					Label:       "Ignored tags",
					Description: "One pattern per line, * and ? allowed",
					Kind:        form.KindTextArea,
					Default:     "",
					Rows:        4,
					Placeholder: "#draft\n#temp/*",
					Behavior:    form.Behavior{Debounce: 500 * time.Millisecond},
				},
			},
		},
	}
}

func positiveInteger(value any) error {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return errors.New("enter a whole number greater than 0")
	}
	return nil
}
