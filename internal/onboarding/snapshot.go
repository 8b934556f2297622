package onboarding

import (
	"errors"
	"fmt"
)

// State 会话的可序列化快照，用于缓存和数据库持久化。执行中的操作不会被保存。
type State struct {
	SessionID string        `json:"session_id"`
	Phase     Phase         `json:"phase"`
	Step      BasicInfoStep `json:"basic_info_step"`
	Answers   Answers       `json:"answers"`
	LastError string        `json:"last_error,omitempty"`
}

// Snapshot 导出当前状态
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		SessionID: s.id,
		Phase:     s.phase,
		Step:      s.step,
		Answers:   s.answers.clone(),
	}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	return st
}

// Restore 从快照重建会话
func Restore(st State, deps Dependencies) (*Session, error) {
	if st.SessionID == "" {
		return nil, errors.New("onboarding: snapshot without session id")
	}
	if !st.Phase.Valid() {
		return nil, fmt.Errorf("onboarding: unknown phase %q", st.Phase)
	}
	if !st.Step.Valid() {
		return nil, fmt.Errorf("onboarding: unknown basic info step %q", st.Step)
	}
	a := st.Answers
	if a.CurrentPartnerIndex < 0 || a.CurrentPartnerIndex > len(a.SelectedPartners) {
		return nil, fmt.Errorf("onboarding: partner index %d out of range", a.CurrentPartnerIndex)
	}

	s := NewSession(st.SessionID, deps)
	s.phase = st.Phase
	s.step = st.Step
	s.answers = a.clone()
	if st.LastError != "" {
		s.lastError = errors.New(st.LastError)
	}
	return s, nil
}
