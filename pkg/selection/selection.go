// Package selection 维护按选择顺序排列的文件集合
package selection

import "path/filepath"

// Set 有序且不重复的路径集合，不是并发安全的
type Set struct {
	items []string
	index map[string]int
}

func New() *Set {
	return &Set{index: make(map[string]int)}
}

// Add 添加路径，已存在时返回 false
func (s *Set) Add(path string) bool {
	path = filepath.Clean(path)
	if _, ok := s.index[path]; ok {
		return false
	}
	s.index[path] = len(s.items)
	s.items = append(s.items, path)
	return true
}

// Remove 移除路径，不存在时返回 false
func (s *Set) Remove(path string) bool {
	path = filepath.Clean(path)
	i, ok := s.index[path]
	if !ok {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, path)
	s.reindex(i)
	return true
}

// Toggle 切换选中状态，返回切换后是否选中
func (s *Set) Toggle(path string) bool {
	if s.Remove(path) {
		return false
	}
	s.Add(path)
	return true
}

func (s *Set) Contains(path string) bool {
	_, ok := s.index[filepath.Clean(path)]
	return ok
}

func (s *Set) Len() int {
	return len(s.items)
}

// Items 按选择顺序返回副本
func (s *Set) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Set) Clear() {
	s.items = nil
	s.index = make(map[string]int)
}

// Retain 只保留 keep 返回 true 的路径，返回被移除的数量
func (s *Set) Retain(keep func(path string) bool) int {
	kept := s.items[:0]
	for _, path := range s.items {
		if keep(path) {
			kept = append(kept, path)
		} else {
			delete(s.index, path)
		}
	}
	removed := len(s.items) - len(kept)
	s.items = kept
	s.reindex(0)
	return removed
}

func (s *Set) reindex(from int) {
	for i := from; i < len(s.items); i++ {
		s.index[s.items[i]] = i
	}
}
