package mover

import (
	"errors"
	"fmt"
)

// 移动失败的类型，可用 errors.Is 判断
var (
	ErrSourceMissing           = errors.New("源文件不存在")
	ErrDestinationNotWritable  = errors.New("目标目录不可写")
	ErrNameResolutionExhausted = errors.New("无法生成唯一文件名")
	ErrFilesystemMoveFailed    = errors.New("文件系统移动失败")
)

// MoveError 描述一次失败的移动
type MoveError struct {
	Kind error  // 上面的错误类型之一
	Src  string // 源路径
	Dest string // 请求的目标路径
	Err  error  // 底层错误，可能为 nil
}

func (e *MoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("移动 %s -> %s: %v: %v", e.Src, e.Dest, e.Kind, e.Err)
	}
	return fmt.Sprintf("移动 %s -> %s: %v", e.Src, e.Dest, e.Kind)
}

func (e *MoveError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newMoveError(kind error, src, dest string, err error) *MoveError {
	return &MoveError{Kind: kind, Src: src, Dest: dest, Err: err}
}
