package inlinecode

import "github.com/entrhq/toolbox/pkg/form"

// SettingsGroups implements form.Provider.
func (t *Tool) SettingsGroups() []form.Group {
	shown := &form.Dependency{Field: KeyShowCopyNotification, Value: true}

	return []form.Group{{
		Title: "Notification",
		Fields: []form.Field{
			{
				Name:        KeyShowCopyNotification,
				Label:       "Show notification",
				Description: "Announce each copy",
				Kind:        form.KindToggle,
				Default:     true,
			},
			{
				Name:       KeyCopyNotificationText,
				Label:      "Notification text",
				Kind:       form.KindText,
				Default:    "Copied code",
				Validation: &form.Validation{Required: true, MaxLength: 80},
				DependsOn:  shown,
			},
			{
				Name:        KeyCopyNotificationDuration,
				Label:       "Notification duration",
				Description: "Milliseconds",
				Kind:        form.KindSlider,
				Default:     2000,
				Min:         500,
				Max:         10000,
				Step:        500,
				DependsOn:   shown,
			},
		},
	}}
}
