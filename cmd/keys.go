package cmd

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Generate  key.Binding
	NextStyle key.Binding
	PrevStyle key.Binding
	Save      key.Binding
	About     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Generate: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "generate"),
		),
		NextStyle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next style"),
		),
		PrevStyle: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "prev style"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "save"),
		),
		About: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "about robohash"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Generate, k.NextStyle, k.Save, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Generate, k.NextStyle, k.PrevStyle},
		{k.Save, k.About},
		{k.Help, k.Quit},
	}
}
