package tabcopy

import "github.com/entrhq/toolbox/pkg/form"

// SettingsGroups implements form.Provider.
func (t *Tool) SettingsGroups() []form.Group {
	return []form.Group{{
		Title:       "Links",
		Description: "How copied links are written",
		Fields: []form.Field{
			{
				Name:        KeyLinkStyle,
				Label:       "Note link style",
				Description: "Links to notes use this syntax",
				Kind:        form.KindDropdown,
				Default:     StyleWiki,
				Options: []form.Option{
					{Value: StyleWiki, Label: "Wiki link [[Note]]"},
					{Value: StyleMarkdown, Label: "Markdown link [Note](path)"},
				},
			},
			{
				Name:        KeyFetchWebTitle,
				Label:       "Fetch page titles",
				Description: "Download web pages to title their links",
				Kind:        form.KindToggle,
				Default:     true,
				SubSetting:  true,
			},
			{
				Name:        KeyTitleTimeout,
				Label:       "Title timeout",
				Description: "Seconds to wait for a page",
				Kind:        form.KindSlider,
				Default:     5,
				Min:         1,
				Max:         30,
				Step:        1,
				DependsOn:   &form.Dependency{Field: KeyFetchWebTitle, Value: true},
			},
		},
	}}
}
