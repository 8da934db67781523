package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/azqeurio/sequential-selecter/internal/session"
	"github.com/azqeurio/sequential-selecter/pkg/database"
	"github.com/azqeurio/sequential-selecter/pkg/journal"
	"github.com/azqeurio/sequential-selecter/pkg/logger"
)

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.state == StateSetup {
			return m.updateSetup(msg)
		}
		return m.updateBrowse(msg)

	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
			m.err = nil
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		if m.focus == FocusTarget1 {
			m.focus = FocusTarget2
		} else {
			m.focus = FocusTarget1
		}
		m.updateFocusState()
		return m, nil

	case "esc":
		if m.targetsReady() {
			m.state = StateBrowse
			return m, nil
		}
		return m, tea.Quit

	case "enter":
		return m.handleEnterKey()
	}

	var cmd tea.Cmd
	if m.focus == FocusTarget1 {
		m.target1, cmd = m.target1.Update(msg)
	} else {
		m.target2, cmd = m.target2.Update(msg)
	}
	return m, cmd
}

func (m *model) handleEnterKey() (tea.Model, tea.Cmd) {
	if m.focus == FocusTarget1 {
		m.focus = FocusTarget2
		m.updateFocusState()
		return m, nil
	}

	t1 := strings.TrimSpace(m.target1.Value())
	t2 := strings.TrimSpace(m.target2.Value())
	if t1 == "" || t2 == "" {
		return m, m.setError(errors.New("两个目标目录都需要设置"))
	}

	if err := m.sess.SetTarget(1, expandHome(t1)); err != nil {
		return m, m.setError(err)
	}
	if err := m.sess.SetTarget(2, expandHome(t2)); err != nil {
		return m, m.setError(err)
	}
	m.state = StateBrowse
	m.target1.Blur()
	m.target2.Blur()

	logger.Get().Info().Msgf("目标目录: 1=%s 2=%s", t1, t2)
	return m, m.setStatus("目标目录已设置")
}

func (m *model) enterSetup() {
	m.state = StateSetup
	m.focus = FocusTarget1
	m.updateFocusState()
}

func (m *model) updateFocusState() {
	if m.focus == FocusTarget1 {
		m.target1.Focus()
		m.target2.Blur()
	} else {
		m.target1.Blur()
		m.target2.Focus()
	}
}

func (m *model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Select):
		if item, ok := m.current(); ok {
			m.sess.Selection().Toggle(item.path)
			m.refreshItem()
			m.list.CursorDown()
		}
		return m, nil

	case key.Matches(msg, keys.SelectAll):
		for _, it := range m.list.Items() {
			m.sess.Selection().Add(it.(photoItem).path)
		}
		m.reload()
		return m, nil

	case key.Matches(msg, keys.Clear):
		m.sess.Selection().Clear()
		m.reload()
		return m, nil

	case key.Matches(msg, keys.Target1):
		return m, m.moveTo(1)

	case key.Matches(msg, keys.Target2):
		return m, m.moveTo(2)

	case key.Matches(msg, keys.Undo):
		return m, m.undo()

	case key.Matches(msg, keys.Redo):
		return m, m.redo()

	case key.Matches(msg, keys.Pairs):
		m.sess.SetPairMode(!m.sess.PairMode())
		m.reload()
		if m.sess.PairMode() {
			return m, m.setStatus("RAW/JPG 配对：开")
		}
		return m, m.setStatus("RAW/JPG 配对：关")

	case key.Matches(msg, keys.RateUp):
		return m, m.rate(1)

	case key.Matches(msg, keys.RateDown):
		return m, m.rate(-1)

	case key.Matches(msg, keys.Refresh):
		m.reload()
		return m, nil

	case key.Matches(msg, keys.Targets):
		m.enterSetup()
		return m, nil

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// moveTo 移动选择；没有选择时移动光标所在的照片
func (m *model) moveTo(target int) tea.Cmd {
	if _, err := m.sess.Target(target); err != nil {
		m.enterSetup()
		return m.setError(err)
	}

	var report session.Report
	var err error
	if m.sess.Selection().Len() > 0 {
		report, err = m.sess.MoveSelected(target)
	} else if item, ok := m.current(); ok {
		report, err = m.sess.MoveFiles([]string{item.path}, target)
	} else {
		return nil
	}
	m.reload()

	if err != nil {
		return m.setError(err)
	}
	if len(report.Failed) > 0 {
		return m.setError(fmt.Errorf("已移动 %d 个，失败 %d 个: %v",
			len(report.Moved), len(report.Failed), report.Failed[0].Err))
	}

	dir, _ := m.sess.Target(target)
	return m.setStatus(fmt.Sprintf("已移动 %d 个文件到目标%d (%s)", len(report.Moved), target, dir))
}

func (m *model) undo() tea.Cmd {
	outcomes, err := m.sess.Undo()
	m.reload()
	if err != nil {
		return m.setError(err)
	}
	if len(outcomes) == 0 {
		return m.setStatus("没有可撤销的操作")
	}
	return m.setStatus(fmt.Sprintf("已撤销 %d 个文件%s", len(outcomes), renamedNote(outcomes)))
}

func (m *model) redo() tea.Cmd {
	outcomes, err := m.sess.Redo()
	m.reload()
	if err != nil {
		return m.setError(err)
	}
	if len(outcomes) == 0 {
		return m.setStatus("没有可重做的操作")
	}
	return m.setStatus(fmt.Sprintf("已重做 %d 个文件%s", len(outcomes), renamedNote(outcomes)))
}

// renamedNote 提示因重名而未能恢复原文件名的文件
func renamedNote(outcomes []journal.Outcome) string {
	renamed := 0
	for _, o := range outcomes {
		if o.Inverse.DestPath != o.Inverse.RequestedDestPath {
			renamed++
		}
	}
	if renamed == 0 {
		return ""
	}
	return fmt.Sprintf("，其中 %d 个因重名被重命名", renamed)
}

func (m *model) rate(delta int) tea.Cmd {
	if m.ratings == nil {
		return m.setError(errors.New("未启用评分数据库"))
	}
	item, ok := m.current()
	if !ok {
		return nil
	}

	stars := item.stars + delta
	if stars < database.MinStars || stars > database.MaxStars {
		return nil
	}

	var date, camera string
	if m.extractor != nil {
		if info, err := m.extractor.Extract(item.path); err == nil {
			date, camera = info.Date, info.Camera
		}
	}

	if err := m.ratings.SaveRating(item.path, stars, date, camera); err != nil {
		return m.setError(err)
	}
	m.refreshItem()
	return nil
}

// refreshItem 只刷新光标所在的一行
func (m *model) refreshItem() {
	item, ok := m.current()
	if !ok {
		return
	}
	item.selected = m.sess.Selection().Contains(item.path)
	item.stars = m.starsOf(item.path)
	m.list.SetItem(m.list.Index(), item)
}

func (m *model) setStatus(text string) tea.Cmd {
	m.err = nil
	m.status = text
	return m.expireStatus()
}

func (m *model) setError(err error) tea.Cmd {
	m.err = err
	m.status = ""
	return m.expireStatus()
}

func (m *model) expireStatus() tea.Cmd {
	m.statusID++
	id := m.statusID
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func (m *model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.help.Width = msg.Width
	m.target1.Width = msg.Width - 10
	m.target2.Width = msg.Width - 10
	m.list.SetSize(msg.Width-4, msg.Height-8)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
