package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Select    key.Binding
	SelectAll key.Binding
	Clear     key.Binding
	Target1   key.Binding
	Target2   key.Binding
	Undo      key.Binding
	Redo      key.Binding
	Pairs     key.Binding
	RateUp    key.Binding
	RateDown  key.Binding
	Refresh   key.Binding
	Targets   key.Binding
	Help      key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Select: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("space", "选择"),
	),
	SelectAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "全选"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "清空选择"),
	),
	Target1: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "移到目标1"),
	),
	Target2: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "移到目标2"),
	),
	Undo: key.NewBinding(
		key.WithKeys("ctrl+z", "u"),
		key.WithHelp("ctrl+z", "撤销"),
	),
	Redo: key.NewBinding(
		key.WithKeys("ctrl+y", "U"),
		key.WithHelp("ctrl+y", "重做"),
	),
	Pairs: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "RAW/JPG 配对"),
	),
	RateUp: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "加星"),
	),
	RateDown: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "减星"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "刷新"),
	),
	Targets: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "设置目标"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "帮助"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "退出"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Target1, k.Target2, k.Undo, k.Redo, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Select, k.SelectAll, k.Clear},
		{k.Target1, k.Target2, k.Undo, k.Redo},
		{k.Pairs, k.RateUp, k.RateDown},
		{k.Refresh, k.Targets, k.Help, k.Quit},
	}
}
