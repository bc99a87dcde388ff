package firewall

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateProfile = errors.New("profile already exists")
)

// ValidationError 规则校验失败，Violations 为人类可读的原因列表
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid rule: " + strings.Join(e.Violations, "; ")
}

// FormatError 导入文档格式不正确
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid import document: %s: %v", e.Reason, e.Err)
	}
	return "invalid import document: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// PersistError 存储写入失败；内存状态已回滚
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

func notFound(kind string, v any) error {
	return fmt.Errorf("%s %v: %w", kind, v, ErrNotFound)
}
