package onboarding

// RoleCandidate 角色匹配服务返回的候选角色
type RoleCandidate struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Industry        string   `json:"industry"`
	HierarchyLevel  string   `json:"hierarchy_level,omitempty"`
	CommonTasks     []string `json:"common_tasks"`
	ConfidenceScore float64  `json:"confidence_score"`
}

// RoleMatchResult 角色匹配结果，只有 Matched 和 NotMatched 两种
type RoleMatchResult interface {
	isRoleMatchResult()
}

// Matched 至少有一个候选角色
type Matched struct {
	Candidates []RoleCandidate
}

// NotMatched 匹配服务返回空列表，不是错误
type NotMatched struct{}

func (Matched) isRoleMatchResult()    {}
func (NotMatched) isRoleMatchResult() {}

// NewRoleMatchResult 把匹配服务的返回包装成结果，保持原有顺序
func NewRoleMatchResult(candidates []RoleCandidate) RoleMatchResult {
	if len(candidates) == 0 {
		return NotMatched{}
	}
	out := make([]RoleCandidate, len(candidates))
	copy(out, candidates)
	return Matched{Candidates: out}
}

// PartnerSituations 某个沟通对象下用户选择的场景
type PartnerSituations struct {
	Partner    ConversationPartner     `json:"partner"`
	Situations []ConversationSituation `json:"situations"`
}

// Answers 一次引导过程中收集到的全部答案
type Answers struct {
	NativeLanguage  *Language `json:"native_language,omitempty"`
	Industry        *Industry `json:"industry,omitempty"`
	RoleTitle       string    `json:"role_title"`
	RoleDescription string    `json:"role_description"`

	// RoleSearched 为 true 且 MatchedRoles 为空表示 NotMatched
	RoleSearched     bool            `json:"role_searched"`
	MatchedRoles     []RoleCandidate `json:"matched_roles"`
	SelectedRole     *RoleCandidate  `json:"selected_role,omitempty"`
	DidSelectNoMatch bool            `json:"did_select_no_match"`

	SelectedPartners    []ConversationPartner   `json:"selected_partners"`
	PartnerSituations   []PartnerSituations     `json:"partner_situations"`
	CurrentPartnerIndex int                     `json:"current_partner_index"`
	PendingSituations   []ConversationSituation `json:"pending_situations"`

	Recommendation   *CourseRecommendation `json:"recommendation,omitempty"`
	SelectedCourseID string                `json:"selected_course_id,omitempty"`
}

// RoleMatch 当前的角色匹配结果，未提交过角色时返回 nil
func (a Answers) RoleMatch() RoleMatchResult {
	if !a.RoleSearched {
		return nil
	}
	return NewRoleMatchResult(a.MatchedRoles)
}

// CurrentPartner 游标指向的沟通对象
func (a Answers) CurrentPartner() (ConversationPartner, bool) {
	if a.CurrentPartnerIndex < 0 || a.CurrentPartnerIndex >= len(a.SelectedPartners) {
		return "", false
	}
	return a.SelectedPartners[a.CurrentPartnerIndex], true
}

// SituationsFor 已记录的某个沟通对象的场景
func (a Answers) SituationsFor(p ConversationPartner) ([]ConversationSituation, bool) {
	for _, ps := range a.PartnerSituations {
		if ps.Partner == p {
			return ps.Situations, true
		}
	}
	return nil, false
}

func (a *Answers) upsertSituations(p ConversationPartner, situations []ConversationSituation) {
	entry := PartnerSituations{Partner: p, Situations: append([]ConversationSituation(nil), situations...)}
	for i := range a.PartnerSituations {
		if a.PartnerSituations[i].Partner == p {
			a.PartnerSituations[i] = entry
			return
		}
	}
	a.PartnerSituations = append(a.PartnerSituations, entry)
}

func (a *Answers) removeSituations(p ConversationPartner) {
	out := a.PartnerSituations[:0]
	for _, ps := range a.PartnerSituations {
		if ps.Partner != p {
			out = append(out, ps)
		}
	}
	a.PartnerSituations = out
}

// hasCourse 推荐结果中是否有该课程
func (a Answers) hasCourse(id string) bool {
	if a.Recommendation == nil {
		return false
	}
	for _, c := range a.Recommendation.Courses {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (a *Answers) findCandidate(id string) (RoleCandidate, bool) {
	for _, c := range a.MatchedRoles {
		if c.ID == id {
			return c, true
		}
	}
	return RoleCandidate{}, false
}

// clone 深拷贝，对外暴露时避免调用方修改内部状态
func (a Answers) clone() Answers {
	out := a
	if a.NativeLanguage != nil {
		v := *a.NativeLanguage
		out.NativeLanguage = &v
	}
	if a.Industry != nil {
		v := *a.Industry
		out.Industry = &v
	}
	if a.SelectedRole != nil {
		v := cloneCandidate(*a.SelectedRole)
		out.SelectedRole = &v
	}
	out.MatchedRoles = make([]RoleCandidate, len(a.MatchedRoles))
	for i, c := range a.MatchedRoles {
		out.MatchedRoles[i] = cloneCandidate(c)
	}
	out.SelectedPartners = append([]ConversationPartner{}, a.SelectedPartners...)
	out.PendingSituations = append([]ConversationSituation{}, a.PendingSituations...)
	out.PartnerSituations = make([]PartnerSituations, len(a.PartnerSituations))
	for i, ps := range a.PartnerSituations {
		out.PartnerSituations[i] = PartnerSituations{
			Partner:    ps.Partner,
			Situations: append([]ConversationSituation{}, ps.Situations...),
		}
	}
	if a.Recommendation != nil {
		r := a.Recommendation.clone()
		out.Recommendation = &r
	}
	return out
}

func cloneCandidate(c RoleCandidate) RoleCandidate {
	c.CommonTasks = append([]string(nil), c.CommonTasks...)
	return c
}
