package onboarding

// Summary 引导结果摘要，完成时交给 Navigator，也用于查询接口
type Summary struct {
	SessionID        string                `json:"session_id"`
	Status           string                `json:"onboarding_status"`
	Phase            Phase                 `json:"current_phase"`
	Progress         int                   `json:"progress"`
	CompletedSteps   []Phase               `json:"completed_steps"`
	NextStep         Phase                 `json:"next_step,omitempty"`
	NativeLanguage   *Language             `json:"native_language,omitempty"`
	Industry         *Industry             `json:"industry,omitempty"`
	RoleTitle        string                `json:"role_title,omitempty"`
	RoleDescription  string                `json:"role_description,omitempty"`
	SelectedRole     *RoleCandidate        `json:"selected_role,omitempty"`
	DidSelectNoMatch bool                  `json:"did_select_no_match"`
	Partners         []PartnerSituations   `json:"partners"`
	Recommendation   *CourseRecommendation `json:"recommendation,omitempty"`
	SelectedCourseID string                `json:"selected_course_id,omitempty"`
}

// Summary 当前状态的摘要
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryAtLocked(s.phase)
}

func (s *Session) summaryAtLocked(phase Phase) Summary {
	a := s.answers.clone()
	sum := Summary{
		SessionID:        s.id,
		Status:           phase.Status(),
		Phase:            phase,
		Progress:         phase.Progress(),
		CompletedSteps:   []Phase{},
		NativeLanguage:   a.NativeLanguage,
		Industry:         a.Industry,
		RoleTitle:        a.RoleTitle,
		RoleDescription:  a.RoleDescription,
		SelectedRole:     a.SelectedRole,
		DidSelectNoMatch: a.DidSelectNoMatch,
		Partners:         orderedPartnerSituations(a),
		Recommendation:   a.Recommendation,
		SelectedCourseID: a.SelectedCourseID,
	}
	for _, p := range phaseOrder[:max(phase.Ordinal(), 0)] {
		sum.CompletedSteps = append(sum.CompletedSteps, p)
	}
	if next := phase.Next(); next != phase {
		sum.NextStep = next
	}
	return sum
}

// orderedPartnerSituations 按目录顺序输出已选沟通对象及其场景，未记录场景的对象不输出
func orderedPartnerSituations(a Answers) []PartnerSituations {
	out := []PartnerSituations{}
	for _, p := range ConversationPartners {
		if situations, ok := a.SituationsFor(p); ok {
			out = append(out, PartnerSituations{Partner: p, Situations: situations})
		}
	}
	return out
}

// CourseQuery 由摘要构造课程推荐请求，未选择行业时返回 false
func (s Summary) CourseQuery() (CourseQuery, bool) {
	if s.Industry == nil {
		return CourseQuery{}, false
	}

	q := CourseQuery{Industry: *s.Industry}
	if s.NativeLanguage != nil {
		q.NativeLanguage = *s.NativeLanguage
	}
	if s.SelectedRole != nil {
		id := s.SelectedRole.ID
		q.RoleID = &id
	}
	a := Answers{PartnerSituations: s.Partners}
	q.IdentifiedNeeds = a.IdentifiedNeeds()
	return q, true
}
