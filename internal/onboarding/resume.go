package onboarding

// Profile 已经持久化的引导资料，没有会话快照时用来恢复答案
type Profile struct {
	NativeLanguage        *Language
	Industry              *Industry
	SelectedRole          *RoleCandidate
	CustomRoleTitle       string
	CustomRoleDescription string
	// Partners 按选择次序排列，Situations 为空表示该对象还没有选择场景
	Partners []PartnerSituations
	// SelectedCourseID 用户在推荐结果中选择的课程
	SelectedCourseID string
}

// missingStep basic_info 中第一个缺失的步骤，资料完整时返回 false
func (p Profile) missingStep() (BasicInfoStep, bool) {
	switch {
	case p.NativeLanguage == nil:
		return StepLanguage, true
	case p.Industry == nil:
		return StepIndustry, true
	case p.SelectedRole == nil && p.CustomRoleTitle == "":
		return StepRole, true
	}
	return "", false
}

// situationsComplete 至少有一个有效对象，且每个有效对象都记录了场景
func (p Profile) situationsComplete() bool {
	valid := 0
	for _, ps := range p.Partners {
		if !ps.Partner.Valid() {
			continue
		}
		if len(ps.Situations) == 0 {
			return false
		}
		valid++
	}
	return valid > 0
}

// Resume 没有快照时根据服务端记录的引导状态和已持久化的资料恢复会话。
// 阶段只能恢复到边界；资料不足以支撑该阶段时退回到第一个缺失的步骤，
// 后续操作需要的答案都还能重新填写。
func Resume(id, status string, p Profile, deps Dependencies) *Session {
	s := NewSession(id, deps)
	phase, step := PhaseForStatus(status)

	a := Answers{}
	if p.NativeLanguage != nil && p.NativeLanguage.Valid() {
		v := *p.NativeLanguage
		a.NativeLanguage = &v
	}
	if p.Industry != nil && p.Industry.Valid() {
		v := *p.Industry
		a.Industry = &v
	}
	p.NativeLanguage, p.Industry = a.NativeLanguage, a.Industry

	if phase.Ordinal() < PhaseBasicInfo.Ordinal() {
		s.phase, s.step = phase, step
		return s
	}
	if missing, ok := p.missingStep(); ok {
		s.phase, s.step, s.answers = PhaseBasicInfo, missing, a
		return s
	}
	if phase == PhaseBasicInfo {
		// 资料已完整但状态没来得及更新
		phase = PhasePhase1Complete
	}
	step = StepRoleResult

	if p.SelectedRole != nil {
		role := cloneCandidate(*p.SelectedRole)
		a.SelectedRole = &role
		a.RoleTitle = role.Title
		a.RoleDescription = role.Description
	} else {
		a.RoleTitle = p.CustomRoleTitle
		a.RoleDescription = p.CustomRoleDescription
		a.DidSelectNoMatch = true
	}

	for _, ps := range p.Partners {
		if ps.Partner.Valid() && indexOf(a.SelectedPartners, ps.Partner) < 0 {
			a.SelectedPartners, _ = toggle(a.SelectedPartners, ps.Partner, ConversationPartners)
		}
	}

	if phase.Ordinal() > PhaseConversationPartners.Ordinal() {
		if !p.situationsComplete() {
			// 场景不完整时回到对象选择，已选对象保留
			phase = PhaseConversationPartners
		} else {
			recorded := make(map[ConversationPartner][]ConversationSituation, len(p.Partners))
			for _, ps := range p.Partners {
				recorded[ps.Partner] = ps.Situations
			}
			for _, partner := range a.SelectedPartners {
				a.upsertSituations(partner, recorded[partner])
			}
			a.CurrentPartnerIndex = len(a.SelectedPartners)
		}
	}
	if phase == PhaseOnboardingComplete {
		a.SelectedCourseID = p.SelectedCourseID
	}

	s.phase, s.step, s.answers = phase, step, a
	return s
}
