// Package errs 定义设备自动化引擎的错误分类
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind 错误类别
type Kind string

const (
	KindUnknown               Kind = "UNKNOWN"
	KindAuthenticationFailed  Kind = "AUTHENTICATION_FAILED"
	KindConnectionTimeout     Kind = "CONNECTION_TIMEOUT"
	KindHostUnreachable       Kind = "HOST_UNREACHABLE"
	KindChannelUnavailable    Kind = "CHANNEL_UNAVAILABLE"
	KindPromptTimeout         Kind = "PROMPT_TIMEOUT"
	KindConfigurationError    Kind = "CONFIGURATION_ERROR"
	KindCommitFailed          Kind = "COMMIT_FAILED"
	KindUnsupportedDeviceType Kind = "UNSUPPORTED_DEVICE_TYPE"
	KindInvalidKey            Kind = "INVALID_KEY"
	KindUnsupportedOperation  Kind = "UNSUPPORTED_OPERATION"
	KindInvalidState          Kind = "INVALID_STATE"
	KindCommandRejected       Kind = "COMMAND_REJECTED"
)

// 哨兵错误，配合 errors.Is 按类别判断
var (
	ErrAuthenticationFailed  = &Error{Kind: KindAuthenticationFailed, Message: "authentication failed"}
	ErrConnectionTimeout     = &Error{Kind: KindConnectionTimeout, Message: "connection timed out"}
	ErrHostUnreachable       = &Error{Kind: KindHostUnreachable, Message: "host unreachable"}
	ErrChannelUnavailable    = &Error{Kind: KindChannelUnavailable, Message: "channel unavailable"}
	ErrPromptTimeout         = &Error{Kind: KindPromptTimeout, Message: "timed out waiting for prompt"}
	ErrConfigurationError    = &Error{Kind: KindConfigurationError, Message: "configuration error"}
	ErrCommitFailed          = &Error{Kind: KindCommitFailed, Message: "commit failed"}
	ErrUnsupportedDeviceType = &Error{Kind: KindUnsupportedDeviceType, Message: "unsupported device type"}
	ErrInvalidKey            = &Error{Kind: KindInvalidKey, Message: "invalid private key"}
	ErrUnsupportedOperation  = &Error{Kind: KindUnsupportedOperation, Message: "unsupported operation"}
	ErrInvalidState          = &Error{Kind: KindInvalidState, Message: "invalid connection state"}
	ErrCommandRejected       = &Error{Kind: KindCommandRejected, Message: "command rejected by device"}
)

// Error 带类别的错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同类别即视为相等
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New 创建指定类别的错误
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 以指定类别包装底层错误
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf 返回错误链中第一个带类别错误的类别
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Classify 将传输层原始错误归类，已有类别的错误原样返回
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unable to authenticate"),
		strings.Contains(msg, "no supported methods remain"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "authentication failed"):
		return Wrap(KindAuthenticationFailed, err, "authentication failed")
	case strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "timeout"):
		return Wrap(KindConnectionTimeout, err, "connection timed out")
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no route to host"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "connect failed"),
		strings.Contains(msg, "connection reset"):
		return Wrap(KindHostUnreachable, err, "host unreachable")
	case strings.Contains(msg, "administratively prohibited"),
		strings.Contains(msg, "open failed"),
		strings.Contains(msg, "use of closed network connection"),
		msg == "eof":
		return Wrap(KindChannelUnavailable, err, "channel unavailable")
	}
	return err
}
