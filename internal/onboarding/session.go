package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultCallTimeout 外部服务调用的默认超时
const DefaultCallTimeout = 20 * time.Second

var (
	errCollaboratorUnavailable = errors.New("collaborator not configured")
	errRestartSessionID        = errors.New("onboarding: restart needs a new session id")
)

// Dependencies 会话依赖的外部服务
type Dependencies struct {
	RoleMatcher       RoleMatcher
	CourseRecommender CourseRecommender
	SelectionStore    SelectionStore
	Navigator         Navigator
	CallTimeout       time.Duration
}

func (d Dependencies) withDefaults() Dependencies {
	if d.SelectionStore == nil {
		d.SelectionStore = noopStore{}
	}
	if d.Navigator == nil {
		d.Navigator = noopNavigator{}
	}
	if d.CallTimeout <= 0 {
		d.CallTimeout = DefaultCallTimeout
	}
	return d
}

// Session 一次引导过程的状态机。
// 只有一个逻辑上的调用方；等待外部服务时会释放锁，同一操作重复调用会返回 ErrOperationInFlight。
type Session struct {
	mu sync.Mutex

	id        string
	phase     Phase
	step      BasicInfoStep
	answers   Answers
	ops       map[Operation]OpState
	lastError error

	deps Dependencies
}

// NewSession 创建处于 welcome 阶段的新会话
func NewSession(id string, deps Dependencies) *Session {
	return &Session{
		id:    id,
		phase: PhaseWelcome,
		step:  StepLanguage,
		ops:   make(map[Operation]OpState),
		deps:  deps.withDefaults(),
	}
}


// ID 会话 ID，Restart 后会变化
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) BasicInfoStep() BasicInfoStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Answers 返回答案的副本
func (s *Session) Answers() Answers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.clone()
}

// IsLoading 是否有操作在等待外部服务
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anyInFlightLocked()
}

func (s *Session) RoleSearchInProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops[OpSubmitRole].InFlight()
}

// LastError 最近一次失败，成功的操作会清空
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Session) OpState(op Operation) OpState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.ops[op]; ok {
		return st
	}
	return OpState{Status: OpIdle}
}

// ========== 同步操作 ==========

func (s *Session) apply(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(); err != nil {
		s.lastError = err
		return err
	}
	s.lastError = nil
	return nil
}

// call 执行需要等待外部服务的操作：检查前置条件并标记执行中，释放锁调用外部服务，
// 成功后重新检查前置条件再写入状态。失败时状态不变。
func (s *Session) call(
	ctx context.Context,
	op Operation,
	check func() error,
	invoke func(ctx context.Context) error,
	commit func(),
) error {
	s.mu.Lock()
	if err := check(); err != nil {
		s.lastError = err
		s.mu.Unlock()
		return err
	}
	if err := s.beginLocked(op); err != nil {
		s.lastError = err
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, s.deps.CallTimeout)
	err := wrapCollaborator(op, callCtx, invoke(callCtx))
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = check()
	}
	s.endLocked(op, err)
	if err != nil {
		s.lastError = err
		return err
	}
	commit()
	s.lastError = nil
	return nil
}

func (s *Session) stateError(op Operation) error {
	return &StateError{Op: op, Phase: s.phase, Step: s.step}
}

func (s *Session) expectPhase(op Operation, p Phase) error {
	if s.phase != p {
		return s.stateError(op)
	}
	return nil
}

func (s *Session) expectStep(op Operation, step BasicInfoStep) error {
	if s.phase != PhaseBasicInfo || s.step != step {
		return s.stateError(op)
	}
	return nil
}

func (s *Session) save(ctx context.Context, sel Selection) error {
	return s.deps.SelectionStore.SaveSelection(ctx, s.id, sel)
}

// Begin welcome -> intro
func (s *Session) Begin() error {
	return s.apply(func() error {
		if err := s.expectPhase(OpBegin, PhaseWelcome); err != nil {
			return err
		}
		s.phase = PhaseIntro
		return nil
	})
}

// ContinueFromIntro intro -> basic_info（从 language 开始）
func (s *Session) ContinueFromIntro() error {
	return s.apply(func() error {
		if err := s.expectPhase(OpContinueFromIntro, PhaseIntro); err != nil {
			return err
		}
		s.phase = PhaseBasicInfo
		s.step = StepLanguage
		return nil
	})
}

// ========== Phase 1: basic info ==========

// SelectLanguage 持久化成功后记录母语并进入 industry
func (s *Session) SelectLanguage(ctx context.Context, lang Language) error {
	return s.call(ctx, OpSelectLanguage,
		func() error {
			if err := s.expectStep(OpSelectLanguage, StepLanguage); err != nil {
				return err
			}
			if !lang.Valid() {
				return newValidationError("native_language", "Please select your native language")
			}
			return nil
		},
		func(ctx context.Context) error {
			return s.save(ctx, Selection{Kind: SelectionLanguage, Language: lang})
		},
		func() {
			l := lang
			s.answers.NativeLanguage = &l
			s.step = StepIndustry
		},
	)
}

// SelectIndustry 持久化成功后记录行业并进入 role
func (s *Session) SelectIndustry(ctx context.Context, industry Industry) error {
	return s.call(ctx, OpSelectIndustry,
		func() error {
			if err := s.expectStep(OpSelectIndustry, StepIndustry); err != nil {
				return err
			}
			if !industry.Valid() {
				return newValidationError("industry", "Please select your industry")
			}
			return nil
		},
		func(ctx context.Context) error {
			return s.save(ctx, Selection{Kind: SelectionIndustry, Industry: industry})
		},
		func() {
			i := industry
			s.answers.Industry = &i
			s.step = StepRole
		},
	)
}

// SubmitRole 校验职位信息后调用角色匹配，返回后进入 role_result。
// 匹配服务返回空列表时结果为 NotMatched。
func (s *Session) SubmitRole(ctx context.Context, title, description string) error {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	var (
		industry   Industry
		candidates []RoleCandidate
	)
	return s.call(ctx, OpSubmitRole,
		func() error {
			if err := s.expectStep(OpSubmitRole, StepRole); err != nil {
				return err
			}
			if title == "" {
				return newValidationError("role_title", "Please enter your job title")
			}
			if description == "" {
				return newValidationError("role_description", "Please describe what you do in your role")
			}
			if s.answers.Industry == nil {
				return newValidationError("industry", "Please select your industry")
			}
			industry = *s.answers.Industry
			return nil
		},
		func(ctx context.Context) error {
			if s.deps.RoleMatcher == nil {
				return errCollaboratorUnavailable
			}
			var err error
			candidates, err = s.deps.RoleMatcher.MatchRoles(ctx, RoleQuery{
				Title:       title,
				Description: description,
				Industry:    industry,
			})
			return err
		},
		func() {
			s.answers.RoleTitle = title
			s.answers.RoleDescription = description
			s.answers.RoleSearched = true
			s.answers.MatchedRoles = make([]RoleCandidate, len(candidates))
			for i, c := range candidates {
				s.answers.MatchedRoles[i] = cloneCandidate(c)
			}
			s.answers.SelectedRole = nil
			s.answers.DidSelectNoMatch = false
			s.step = StepRoleResult
		},
	)
}

// SelectRole 选择匹配结果中的某个角色，完成 phase 1
func (s *Session) SelectRole(ctx context.Context, candidateID string) error {
	var candidate RoleCandidate
	return s.call(ctx, OpSelectRole,
		func() error {
			if err := s.expectStep(OpSelectRole, StepRoleResult); err != nil {
				return err
			}
			c, ok := s.answers.findCandidate(candidateID)
			if !ok {
				return newValidationError("role_id", "Please select one of the suggested roles")
			}
			candidate = cloneCandidate(c)
			return nil
		},
		func(ctx context.Context) error {
			role := candidate
			return s.save(ctx, Selection{Kind: SelectionRole, Role: &role})
		},
		func() {
			role := candidate
			s.answers.SelectedRole = &role
			s.answers.DidSelectNoMatch = false
			s.phase = PhasePhase1Complete
		},
	)
}

// SelectNoMatch 用户认为没有合适的角色，以自填职位完成 phase 1
func (s *Session) SelectNoMatch(ctx context.Context) error {
	var title, description string
	return s.call(ctx, OpSelectNoMatch,
		func() error {
			if err := s.expectStep(OpSelectNoMatch, StepRoleResult); err != nil {
				return err
			}
			title, description = s.answers.RoleTitle, s.answers.RoleDescription
			return nil
		},
		func(ctx context.Context) error {
			return s.save(ctx, Selection{
				Kind:            SelectionCustomRole,
				RoleTitle:       title,
				RoleDescription: description,
			})
		},
		func() {
			s.answers.SelectedRole = nil
			s.answers.DidSelectNoMatch = true
			s.phase = PhasePhase1Complete
		},
	)
}

// PreviousBasicInfoStep 回到上一个子步骤，language 时不变。离开 role_result 时清空匹配结果。
func (s *Session) PreviousBasicInfoStep() error {
	return s.apply(func() error {
		if err := s.expectPhase(OpPreviousBasicInfoStep, PhaseBasicInfo); err != nil {
			return err
		}
		if s.step == StepRoleResult {
			s.answers.MatchedRoles = nil
			s.answers.RoleSearched = false
		}
		s.step = s.step.Previous()
		return nil
	})
}

// ContinueFromPhase1 phase1_complete -> conversation_partners
func (s *Session) ContinueFromPhase1() error {
	return s.apply(func() error {
		if err := s.expectPhase(OpContinueFromPhase1, PhasePhase1Complete); err != nil {
			return err
		}
		s.phase = PhaseConversationPartners
		return nil
	})
}

// ========== Phase 2: conversation partners & situations ==========

// TogglePartner 选中或取消沟通对象，取消时一并删除该对象已记录的场景
func (s *Session) TogglePartner(p ConversationPartner) error {
	return s.apply(func() error {
		if err := s.expectPhase(OpTogglePartner, PhaseConversationPartners); err != nil {
			return err
		}
		if !p.Valid() {
			return newValidationError("partner", "Unknown conversation partner")
		}
		if s.ops[OpContinueFromPartnerSelection].InFlight() {
			return ErrOperationInFlight
		}
		var removed bool
		s.answers.SelectedPartners, removed = toggle(s.answers.SelectedPartners, p, ConversationPartners)
		if removed {
			s.answers.removeSituations(p)
		}
		return nil
	})
}

// ContinueFromPartnerSelection 持久化已选沟通对象，进入逐个对象选择场景
func (s *Session) ContinueFromPartnerSelection(ctx context.Context) error {
	var partners []ConversationPartner
	return s.call(ctx, OpContinueFromPartnerSelection,
		func() error {
			if err := s.expectPhase(OpContinueFromPartnerSelection, PhaseConversationPartners); err != nil {
				return err
			}
			if len(s.answers.SelectedPartners) == 0 {
				return newValidationError("partners", "Please select at least one conversation partner")
			}
			partners = append([]ConversationPartner(nil), s.answers.SelectedPartners...)
			return nil
		},
		func(ctx context.Context) error {
			return s.save(ctx, Selection{Kind: SelectionPartners, Partners: partners})
		},
		func() {
			s.answers.PartnerSituations = []PartnerSituations{}
			s.answers.CurrentPartnerIndex = 0
			s.answers.PendingSituations = nil
			s.phase = PhaseConversationSituations
		},
	)
}

// ToggleSituation 修改当前沟通对象正在选择的场景集合
func (s *Session) ToggleSituation(situation ConversationSituation) error {
	return s.apply(func() error {
		if err := s.expectPhase(OpToggleSituation, PhaseConversationSituations); err != nil {
			return err
		}
		if !situation.Valid() {
			return newValidationError("situation", "Unknown conversation situation")
		}
		if s.ops[OpContinueFromSituationSelection].InFlight() {
			return ErrOperationInFlight
		}
		s.answers.PendingSituations, _ = toggle(s.answers.PendingSituations, situation, ConversationSituations)
		return nil
	})
}

// PreviousPartner 回到上一个沟通对象重新选择，已记录的场景会重新载入
func (s *Session) PreviousPartner() error {
	return s.apply(func() error {
		if err := s.expectPhase(OpPreviousPartner, PhaseConversationSituations); err != nil {
			return err
		}
		if s.ops[OpContinueFromSituationSelection].InFlight() {
			return ErrOperationInFlight
		}
		if s.answers.CurrentPartnerIndex == 0 {
			return nil
		}
		s.answers.CurrentPartnerIndex--
		s.loadPendingLocked()
		return nil
	})
}

func (s *Session) loadPendingLocked() {
	s.answers.PendingSituations = nil
	if p, ok := s.answers.CurrentPartner(); ok {
		if recorded, ok := s.answers.SituationsFor(p); ok {
			s.answers.PendingSituations = append([]ConversationSituation(nil), recorded...)
		}
	}
}

// ContinueFromSituationSelection 记录当前沟通对象的场景（重复提交会覆盖），
// 全部对象完成后进入 phase2_complete
func (s *Session) ContinueFromSituationSelection(ctx context.Context) error {
	var (
		partner    ConversationPartner
		situations []ConversationSituation
		priority   int
	)
	return s.call(ctx, OpContinueFromSituationSelection,
		func() error {
			if err := s.expectPhase(OpContinueFromSituationSelection, PhaseConversationSituations); err != nil {
				return err
			}
			p, ok := s.answers.CurrentPartner()
			if !ok {
				return s.stateError(OpContinueFromSituationSelection)
			}
			if len(s.answers.PendingSituations) == 0 {
				return newValidationError("situations",
					fmt.Sprintf("Please select at least one situation for %s", strings.ToLower(string(p))))
			}
			partner = p
			situations = append([]ConversationSituation(nil), s.answers.PendingSituations...)
			priority = s.answers.CurrentPartnerIndex + 1
			return nil
		},
		func(ctx context.Context) error {
			return s.save(ctx, Selection{
				Kind:       SelectionPartnerSituations,
				Partner:    partner,
				Situations: situations,
				Priority:   priority,
			})
		},
		func() {
			s.answers.upsertSituations(partner, situations)
			s.answers.CurrentPartnerIndex++
			if s.answers.CurrentPartnerIndex >= len(s.answers.SelectedPartners) {
				s.answers.PendingSituations = nil
				s.phase = PhasePhase2Complete
				return
			}
			s.loadPendingLocked()
		},
	)
}

// ========== Completion ==========

// IdentifiedNeeds 由沟通对象和场景推导出的学习需求
func (a Answers) IdentifiedNeeds() []string {
	var needs []string
	for _, ps := range a.PartnerSituations {
		for _, situation := range ps.Situations {
			needs = append(needs, fmt.Sprintf("%s: %s", ps.Partner, situation))
		}
	}
	return needs
}

// RecommendCourses 请求课程推荐。没有课程但正在生成定制课程也是正常结果。
func (s *Session) RecommendCourses(ctx context.Context) error {
	var (
		query CourseQuery
		rec   CourseRecommendation
	)
	return s.call(ctx, OpRecommendCourses,
		func() error {
			if err := s.expectPhase(OpRecommendCourses, PhasePhase2Complete); err != nil {
				return err
			}
			if s.answers.Industry == nil {
				return newValidationError("industry", "Please select your industry")
			}
			query = CourseQuery{
				Industry:        *s.answers.Industry,
				IdentifiedNeeds: s.answers.IdentifiedNeeds(),
			}
			if s.answers.NativeLanguage != nil {
				query.NativeLanguage = *s.answers.NativeLanguage
			}
			if s.answers.SelectedRole != nil {
				id := s.answers.SelectedRole.ID
				query.RoleID = &id
			}
			return nil
		},
		func(ctx context.Context) error {
			if s.deps.CourseRecommender == nil {
				return errCollaboratorUnavailable
			}
			var err error
			rec, err = s.deps.CourseRecommender.RecommendCourses(ctx, query)
			return err
		},
		func() {
			r := rec.clone()
			s.answers.Recommendation = &r
			if !s.answers.hasCourse(s.answers.SelectedCourseID) {
				s.answers.SelectedCourseID = ""
			}
		},
	)
}

// SelectCourse 在推荐结果中选择一门课程，完成时随摘要一起交给 Navigator
func (s *Session) SelectCourse(ctx context.Context, courseID string) error {
	return s.call(ctx, OpSelectCourse,
		func() error {
			if err := s.expectPhase(OpSelectCourse, PhasePhase2Complete); err != nil {
				return err
			}
			if !s.answers.hasCourse(courseID) {
				return newValidationError("course_id", "Please select one of the recommended courses")
			}
			return nil
		},
		func(ctx context.Context) error {
			return s.save(ctx, Selection{Kind: SelectionCourse, CourseID: courseID})
		},
		func() {
			s.answers.SelectedCourseID = courseID
		},
	)
}

// Finish 先交给 Navigator 进入应用，交接成功后再记录完成，最后进入终态。
// 交接失败时不写完成状态；记录失败时重试会再次交接，Navigator 需要按会话幂等。
func (s *Session) Finish(ctx context.Context) error {
	var summary Summary
	return s.call(ctx, OpFinish,
		func() error {
			if err := s.expectPhase(OpFinish, PhasePhase2Complete); err != nil {
				return err
			}
			summary = s.summaryAtLocked(PhaseOnboardingComplete)
			return nil
		},
		func(ctx context.Context) error {
			if err := s.deps.Navigator.EnterApp(ctx, summary); err != nil {
				return err
			}
			return s.save(ctx, Selection{Kind: SelectionCompleted, CourseID: summary.SelectedCourseID})
		},
		func() {
			s.phase = PhaseOnboardingComplete
		},
	)
}

// Restart 丢弃所有答案回到 welcome，并换用新的会话 ID，旧会话的后续消息据此作废
func (s *Session) Restart(newID string) error {
	return s.apply(func() error {
		if s.anyInFlightLocked() {
			return ErrOperationInFlight
		}
		if newID == "" || newID == s.id {
			return errRestartSessionID
		}
		s.id = newID
		s.phase = PhaseWelcome
		s.step = StepLanguage
		s.answers = Answers{}
		s.ops = make(map[Operation]OpState)
		return nil
	})
}
