package onboarding

// Operation 会话对外暴露的操作名
type Operation string

const (
	OpBegin                          Operation = "begin"
	OpContinueFromIntro              Operation = "continue_from_intro"
	OpSelectLanguage                 Operation = "select_language"
	OpSelectIndustry                 Operation = "select_industry"
	OpSubmitRole                     Operation = "submit_role"
	OpSelectRole                     Operation = "select_role"
	OpSelectNoMatch                  Operation = "select_no_match"
	OpPreviousBasicInfoStep          Operation = "previous_basic_info_step"
	OpContinueFromPhase1             Operation = "continue_from_phase1"
	OpTogglePartner                  Operation = "toggle_partner"
	OpContinueFromPartnerSelection   Operation = "continue_from_partner_selection"
	OpToggleSituation                Operation = "toggle_situation"
	OpPreviousPartner                Operation = "previous_partner"
	OpContinueFromSituationSelection Operation = "continue_from_situation_selection"
	OpRecommendCourses               Operation = "recommend_courses"
	OpSelectCourse                   Operation = "select_course"
	OpFinish                         Operation = "finish"
	OpRestart                        Operation = "restart"
)

// OpStatus 异步操作的执行状态
type OpStatus string

const (
	OpIdle     OpStatus = "idle"
	OpInFlight OpStatus = "in_flight"
	OpFailed   OpStatus = "failed"
)

// OpState Idle | InFlight | Failed(Err)
type OpState struct {
	Status OpStatus
	Err    error
}

func (s OpState) InFlight() bool { return s.Status == OpInFlight }

// begin 标记操作开始，已在执行中则拒绝
func (s *Session) beginLocked(op Operation) error {
	if s.ops[op].InFlight() {
		return ErrOperationInFlight
	}
	s.ops[op] = OpState{Status: OpInFlight}
	return nil
}

func (s *Session) endLocked(op Operation, err error) {
	if err != nil {
		s.ops[op] = OpState{Status: OpFailed, Err: err}
		return
	}
	delete(s.ops, op)
}

func (s *Session) anyInFlightLocked() bool {
	for _, st := range s.ops {
		if st.InFlight() {
			return true
		}
	}
	return false
}
