package tui

import "time"

const statusTimeout = 4 * time.Second

// clearStatusMsg 状态栏消息过期，id 用于忽略已被覆盖的消息
type clearStatusMsg struct {
	id int
}
