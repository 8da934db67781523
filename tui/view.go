package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m *model) View() string {
	switch m.state {
	case StateSetup:
		return m.setupView()
	case StateBrowse:
		return m.browseView()
	default:
		return "未知状态"
	}
}

func (m *model) setupView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("📷 设置目标目录") + "\n\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", 60)) + "\n\n")

	b.WriteString(labelStyle.Render("目标1：") + "\n")
	if m.focus == FocusTarget1 {
		b.WriteString(focusedStyle.Render(m.target1.View()) + "\n\n")
	} else {
		b.WriteString(normalStyle.Render(m.target1.View()) + "\n\n")
	}

	b.WriteString(labelStyle.Render("目标2：") + "\n")
	if m.focus == FocusTarget2 {
		b.WriteString(focusedStyle.Render(m.target2.View()) + "\n\n")
	} else {
		b.WriteString(normalStyle.Render(m.target2.View()) + "\n\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n\n")
	}

	b.WriteString(separatorStyle.Render(strings.Repeat("─", 60)) + "\n")
	b.WriteString(hintStyle.Render("操作提示：") + "\n")
	b.WriteString("  • Tab 键切换输入框\n")
	b.WriteString("  • Enter 确认\n")
	b.WriteString("  • Esc 返回，Ctrl+C 退出程序\n")

	return lipgloss.NewStyle().
		Padding(1).
		Render(b.String())
}

func (m *model) browseView() string {
	var b strings.Builder

	b.WriteString(m.list.View() + "\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", 60)) + "\n")
	b.WriteString(m.summaryLine() + "\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status) + "\n")
	default:
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(keys))

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(b.String())
}

func (m *model) summaryLine() string {
	t1, _ := m.sess.Target(1)
	t2, _ := m.sess.Target(2)

	pairs := "关"
	if m.sess.PairMode() {
		pairs = "开"
	}

	return fmt.Sprintf("%s %d  %s %s  %s %s  %s %d/%d  %s %s",
		labelStyle.Render("已选"), m.sess.Selection().Len(),
		labelStyle.Render("1:"), filePathStyle.Render(t1),
		labelStyle.Render("2:"), filePathStyle.Render(t2),
		labelStyle.Render("撤销/重做"), m.sess.UndoDepth(), m.sess.RedoDepth(),
		labelStyle.Render("配对"), pairs,
	)
}
