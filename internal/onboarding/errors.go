package onboarding

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrOperationInFlight 同一个操作已经在执行中
	ErrOperationInFlight = errors.New("onboarding: operation already in flight")
	// ErrTimeout 外部服务调用超时，包在 CollaboratorError 里
	ErrTimeout = errors.New("onboarding: collaborator call timed out")
)

// ValidationError 本地前置条件不满足（必填项为空、未选择等），可重试，不推进状态
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// CollaboratorError 外部服务（角色匹配、课程推荐、持久化）调用失败，可重试
type CollaboratorError struct {
	Op  Operation
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("onboarding %s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Timeout 是否为超时
func (e *CollaboratorError) Timeout() bool { return errors.Is(e.Err, ErrTimeout) }

// StateError 当前阶段/步骤不允许该操作
type StateError struct {
	Op    Operation
	Phase Phase
	Step  BasicInfoStep
}

func (e *StateError) Error() string {
	if e.Phase == PhaseBasicInfo {
		return fmt.Sprintf("onboarding %s not allowed in phase %s (step %s)", e.Op, e.Phase, e.Step)
	}
	return fmt.Sprintf("onboarding %s not allowed in phase %s", e.Op, e.Phase)
}

// IsTimeout 判断错误链中是否有超时
func IsTimeout(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce) && ce.Timeout()
}

// wrapCollaborator 把外部调用的错误归一成 CollaboratorError，callCtx 超时时标记为超时
func wrapCollaborator(op Operation, callCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &CollaboratorError{Op: op, Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
	}
	return &CollaboratorError{Op: op, Err: err}
}
