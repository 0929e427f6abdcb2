package errs

import (
	"errors"
	"fmt"
	"strings"

	pkgerr "github.com/pkg/errors"
)

// 错误码分类。
const (
	CodeNotFound     = 1001 // room/message/reminder 不存在
	CodeUnauthorized = 1002 // 非 owner 的变更
	CodeUpstream     = 1003 // 关键词接口/通知接口不可达
)

var (
	ErrNotFound     = NewCodeError(CodeNotFound, "record not found")
	ErrUnauthorized = NewCodeError(CodeUnauthorized, "not authorized")
	ErrUpstream     = NewCodeError(CodeUpstream, "upstream unavailable")
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	if e.Detail == "" {
		return e.Msg
	}
	return e.Msg + ": " + e.Detail
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return e.Code == ce.Code
}

// WrapMsg 附带 kv 细节并保留错误码。
func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	out := &CodeError{Code: e.Code, Msg: e.Msg, Detail: e.Detail}
	if d := toString(msg, kv); d != "" {
		if out.Detail == "" {
			out.Detail = d
		} else {
			out.Detail += ", " + d
		}
	}
	return pkgerr.WithStack(out)
}

func New(msg string) error { return pkgerr.New(msg) }

func Wrap(err error, msg string) error { return pkgerr.Wrap(err, msg) }

func WrapMsg(err error, msg string, kv ...any) error {
	return pkgerr.Wrap(err, toString(msg, kv))
}

// IsNotFound/IsUnauthorized/IsUpstream 便捷判定。
func IsNotFound(err error) bool     { return ErrNotFound.Is(err) }
func IsUnauthorized(err error) bool { return ErrUnauthorized.Is(err) }
func IsUpstream(err error) bool     { return ErrUpstream.Is(err) }

func toString(msg string, kv []any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprintf("%v=%v", kv[i], kv[i+1]))
		} else {
			sb.WriteString(fmt.Sprintf("%v", kv[i]))
		}
	}
	return sb.String()
}
