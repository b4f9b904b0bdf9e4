package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextTab     key.Binding
	PrevTab     key.Binding
	Open        key.Binding
	Refresh     key.Binding
	Left        key.Binding
	Right       key.Binding
	ExtendLeft  key.Binding
	ExtendRight key.Binding
	Anchor      key.Binding
	Extend      key.Binding
	Toggle      key.Binding
	Clear       key.Binding
	PanLeft     key.Binding
	PanRight    key.Binding
	ZoomIn      key.Binding
	ZoomOut     key.Binding
	ZoomSel     key.Binding
	ZoomAll     key.Binding
	Smooth      key.Binding
	Mark        key.Binding
	Export      key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextTab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Refresh:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
		Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "cursor")),
		Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "cursor")),
		ExtendLeft:  key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("shift+←", "extend")),
		ExtendRight: key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("shift+→", "extend")),
		Anchor:      key.NewBinding(key.WithKeys("["), key.WithHelp("[", "anchor")),
		Extend:      key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "extend to cursor")),
		Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Clear:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		PanLeft:     key.NewBinding(key.WithKeys("pgup", "<"), key.WithHelp("pgup", "pan")),
		PanRight:    key.NewBinding(key.WithKeys("pgdown", ">"), key.WithHelp("pgdn", "pan")),
		ZoomIn:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:     key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
		ZoomSel:     key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "zoom to selection")),
		ZoomAll:     key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "whole recording")),
		Smooth:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "smooth")),
		Mark:        key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "mark")),
		Export:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) filesHelp() []key.Binding {
	return []key.Binding{k.Open, k.NextTab, k.Refresh, k.Export, k.Quit}
}

func (k keyMap) recordingHelp() []key.Binding {
	return []key.Binding{k.Left, k.ExtendRight, k.Anchor, k.Extend, k.Toggle, k.Clear, k.Mark, k.ZoomIn, k.ZoomOut, k.PanRight, k.Smooth, k.Refresh, k.Export, k.NextTab, k.Quit}
}

func (k keyMap) annotationsHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Export, k.Quit}
}
