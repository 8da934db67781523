package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/azqeurio/sequential-selecter/internal/session"
	"github.com/azqeurio/sequential-selecter/pkg/database"
	"github.com/azqeurio/sequential-selecter/pkg/logger"
	"github.com/azqeurio/sequential-selecter/pkg/metadata"
)

type Config struct {
	Session   *session.Session
	Folder    string
	Ratings   *database.Database  // 可选
	Extractor *metadata.Extractor // 可选，评分时记录日期和相机
}

type teaModel struct {
	m *model
}

func (tm teaModel) Init() tea.Cmd {
	return tm.m.Init()
}

func (tm teaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := tm.m.Update(msg)
	return tm, cmd
}

func (tm teaModel) View() string {
	return tm.m.View()
}

func Run(config Config) error {
	logger.Get().Info().Msgf("启动 TUI 界面，目录: %s", config.Folder)

	m := newModel(config)
	p := tea.NewProgram(teaModel{m: m}, tea.WithAltScreen())

	_, err := p.Run()
	if err != nil {
		logger.Get().Error().Err(err).Msg("TUI 运行错误")
	} else {
		logger.Get().Info().Msg("TUI 正常退出")
	}

	return err
}
