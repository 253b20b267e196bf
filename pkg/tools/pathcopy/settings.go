package pathcopy

import "github.com/entrhq/toolbox/pkg/form"

// SettingsGroups implements form.Provider.
func (t *Tool) SettingsGroups() []form.Group {
	title := &form.Validation{Required: true, MaxLength: 60}

	return []form.Group{
		{
			Title:       "Menu options",
			Description: "Which copy actions appear in the context menu",
			Fields: []form.Field{
				{
					Name:    KeyShowAbsolutePathOption,
					Label:   "Absolute path",
					Kind:    form.KindToggle,
					Default: true,
				},
				{
					Name:    KeyShowRelativePathOption,
					Label:   "Relative path",
					Kind:    form.KindToggle,
					Default: true,
				},
				{
					Name:        KeyShowHierarchyOption,
					Label:       "Hierarchy",
					Description: "Offered for folders and multiple selections",
					Kind:        form.KindToggle,
					Default:     true,
				},
			},
		},
		{
			Title: "Menu titles",
			Fields: []form.Field{
				{
					Name:       KeyAbsolutePathMenuTitle,
					Label:      "Absolute path title",
					Kind:       form.KindText,
					Default:    "Copy absolute path",
					Validation: title,
					DependsOn:  &form.Dependency{Field: KeyShowAbsolutePathOption, Value: true},
				},
				{
					Name:       KeyRelativePathMenuTitle,
					Label:      "Relative path title",
					Kind:       form.KindText,
					Default:    "Copy relative path",
					Validation: title,
					DependsOn:  &form.Dependency{Field: KeyShowRelativePathOption, Value: true},
				},
				{
					Name:       KeyHierarchyMenuTitle,
					Label:      "Hierarchy title",
					Kind:       form.KindText,
					Default:    "Copy hierarchy",
					Validation: title,
					DependsOn:  &form.Dependency{Field: KeyShowHierarchyOption, Value: true},
				},
				{
					Name:        KeyMultiFileSeparator,
					Label:       "Separator",
					Description: "Placed between entries when several are copied",
					Kind:        form.KindText,
					Default:     "\n",
					Placeholder: `\n`,
				},
			},
		},
	}
}
