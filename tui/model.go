package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/azqeurio/sequential-selecter/internal/session"
	"github.com/azqeurio/sequential-selecter/pkg/database"
	"github.com/azqeurio/sequential-selecter/pkg/logger"
	"github.com/azqeurio/sequential-selecter/pkg/metadata"
	"github.com/azqeurio/sequential-selecter/pkg/scanner"
)

type State int

const (
	StateSetup State = iota
	StateBrowse
)

type Focus int

const (
	FocusTarget1 Focus = iota
	FocusTarget2
)

type model struct {
	state     State
	focus     Focus
	sess      *session.Session
	ratings   *database.Database
	extractor *metadata.Extractor
	folder    string
	list      list.Model
	target1   textinput.Model
	target2   textinput.Model
	help      help.Model
	status    string
	statusID  int
	err       error
	width     int
}

// photoItem 列表中的一行；配对模式下同名的 RAW/JPG 合并为一行
type photoItem struct {
	path     string
	pairs    []string
	selected bool
	stars    int
}

func (p photoItem) Title() string {
	mark := "  "
	if p.selected {
		mark = selectedMarkStyle.Render("● ")
	}
	title := mark + filepath.Base(p.path)
	if p.stars > 0 {
		title += " " + starStyle.Render(strings.Repeat("★", p.stars))
	}
	return title
}

func (p photoItem) Description() string {
	kind := string(metadata.KindOf(p.path))
	if len(p.pairs) == 0 {
		return "   " + kind
	}
	var exts []string
	for _, s := range p.pairs {
		exts = append(exts, strings.TrimPrefix(filepath.Ext(s), "."))
	}
	return fmt.Sprintf("   %s +%s", kind, strings.Join(exts, "+"))
}

func (p photoItem) FilterValue() string { return filepath.Base(p.path) }

func newModel(cfg Config) *model {
	target1 := textinput.New()
	target1.Placeholder = "目标1 目录（例如：~/Photos/Keep）"
	target1.Prompt = "1> "
	target1.PromptStyle = focusedPromptStyle
	target1.TextStyle = textStyle

	target2 := textinput.New()
	target2.Placeholder = "目标2 目录（例如：~/Photos/Reject）"
	target2.Prompt = "2> "
	target2.PromptStyle = focusedPromptStyle
	target2.TextStyle = textStyle

	if dir, err := cfg.Session.Target(1); err == nil {
		target1.SetValue(dir)
	}
	if dir, err := cfg.Session.Target(2); err == nil {
		target2.SetValue(dir)
	}

	photos := list.New([]list.Item{}, list.NewDefaultDelegate(), 80, 20)
	photos.Title = cfg.Folder
	photos.SetShowHelp(false)
	photos.SetFilteringEnabled(false)
	photos.Styles.Title = titleStyle
	photos.DisableQuitKeybindings()

	m := &model{
		state:     StateBrowse,
		sess:      cfg.Session,
		ratings:   cfg.Ratings,
		extractor: cfg.Extractor,
		folder:    cfg.Folder,
		list:      photos,
		target1:   target1,
		target2:   target2,
		help:      help.New(),
	}

	if !m.targetsReady() {
		m.enterSetup()
	}
	m.reload()
	return m
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) targetsReady() bool {
	_, err1 := m.sess.Target(1)
	_, err2 := m.sess.Target(2)
	return err1 == nil && err2 == nil
}

// reload 重新读取目录，保持光标大致位置
func (m *model) reload() {
	walker := scanner.NewFileWalker(m.sess.Fs())
	walker.IncludeHidden = false

	files, err := walker.ListImages(m.folder)
	if err != nil {
		m.err = fmt.Errorf("读取目录失败: %w", err)
		m.list.SetItems(nil)
		return
	}

	groups := groupPairs(files, m.sess.PairMode())

	// 已不在目录中的文件从选择中移除
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}
	m.sess.Selection().Retain(func(p string) bool { return present[p] })

	items := make([]list.Item, len(groups))
	for i, g := range groups {
		g.selected = m.sess.Selection().Contains(g.path)
		g.stars = m.starsOf(g.path)
		items[i] = g
	}

	index := m.list.Index()
	m.list.SetItems(items)
	if index >= len(items) {
		index = len(items) - 1
	}
	if index >= 0 {
		m.list.Select(index)
	}
}

func (m *model) starsOf(path string) int {
	if m.ratings == nil {
		return 0
	}
	stars, err := m.ratings.GetRating(path)
	if err != nil {
		logger.Get().Debug().Err(err).Msgf("读取评分失败: %s", path)
		return 0
	}
	return stars
}

func (m *model) current() (photoItem, bool) {
	item, ok := m.list.SelectedItem().(photoItem)
	return item, ok
}

// groupPairs 配对模式下把同名文件合并，优先显示处理后的格式
func groupPairs(files []string, pairs bool) []photoItem {
	if !pairs {
		out := make([]photoItem, len(files))
		for i, f := range files {
			out[i] = photoItem{path: f}
		}
		return out
	}

	var order []string
	byStem := make(map[string][]string)
	for _, f := range files {
		stem := scanner.Stem(f)
		if _, ok := byStem[stem]; !ok {
			order = append(order, stem)
		}
		byStem[stem] = append(byStem[stem], f)
	}

	out := make([]photoItem, 0, len(order))
	for _, stem := range order {
		group := byStem[stem]
		primary := 0
		for i, f := range group {
			if metadata.KindOf(f) == metadata.KindJPG {
				primary = i
				break
			}
		}
		item := photoItem{path: group[primary]}
		for i, f := range group {
			if i != primary {
				item.pairs = append(item.pairs, f)
			}
		}
		out = append(out, item)
	}
	return out
}
