package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"FluentPro/internal/model"
	"FluentPro/internal/model/dto"
	"FluentPro/internal/onboarding"
	"FluentPro/internal/repository"
	pkgerrors "FluentPro/pkg/errors"
	"FluentPro/pkg/logger"
	"FluentPro/pkg/metrics"
)

// api 中的 userID 都是 users.public_id

// SessionStore 会话快照存取，没有记录时返回 (nil, nil)
type SessionStore interface {
	Load(ctx context.Context, userID int64) (*onboarding.State, error)
	Save(ctx context.Context, userID int64, st onboarding.State) error
}

// Locker 按用户串行化写操作，锁被占用时返回 ErrSessionBusy
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// SelectionWriter 把确认的选择写回用户资料
type SelectionWriter interface {
	Apply(ctx context.Context, userID int64, sel onboarding.Selection) error
}

// UserStore 读取和更新用户的引导状态
type UserStore interface {
	GetByPublicID(ctx context.Context, publicID int64) (*model.User, error)
	UpdateOnboardingStatus(ctx context.Context, publicID int64, status string) error
}

// PartnerLister 读取已持久化的沟通对象及场景，按选择次序排列
type PartnerLister interface {
	ListPartnerSituations(ctx context.Context, userID int64) ([]model.UserPartnerSituation, error)
}

// CompletionPublisher 引导完成后通知 worker 分配课程
type CompletionPublisher interface {
	PublishOnboardingCompleted(ctx context.Context, msg *model.OnboardingCompletedMessage) error
}

// ErrSessionBusy 同一用户的另一个引导请求仍在执行
var ErrSessionBusy = stderrors.New("onboarding session busy")

// OnboardingDeps 引导服务的依赖
type OnboardingDeps struct {
	Sessions          SessionStore
	Locker            Locker
	Selections        SelectionWriter
	Users             UserStore
	Partners          PartnerLister
	Publisher         CompletionPublisher
	RoleMatcher       onboarding.RoleMatcher
	CourseRecommender onboarding.CourseRecommender
	CallTimeout       time.Duration
	NewSessionID      func() (string, error)
	Now               func() time.Time
}

type OnboardingService struct {
	deps OnboardingDeps
}

func NewOnboardingService(deps OnboardingDeps) *OnboardingService {
	if deps.CallTimeout <= 0 {
		deps.CallTimeout = onboarding.DefaultCallTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &OnboardingService{deps: deps}
}

var (
	onboardingService *OnboardingService
	onboardingMu      sync.RWMutex
)

// SetOnboarding 由启动代码注入装配好的服务
func SetOnboarding(s *OnboardingService) {
	onboardingMu.Lock()
	defer onboardingMu.Unlock()
	onboardingService = s
}

func Onboarding() *OnboardingService {
	onboardingMu.RLock()
	defer onboardingMu.RUnlock()
	if onboardingService == nil {
		panic("onboarding service not initialized")
	}
	return onboardingService
}

// ========== 查询 ==========

// Get 返回用户当前的会话视图。没有快照时按用户记录的引导状态恢复到阶段边界，不落库
func (s *OnboardingService) Get(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	sess, _, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return buildView(sess, true), nil
}

// Catalog 引导中可选的枚举值
func (s *OnboardingService) Catalog() *dto.CatalogResponse {
	return &dto.CatalogResponse{
		Languages:  onboarding.Languages,
		Industries: onboarding.Industries,
		Partners:   onboarding.ConversationPartners,
		Situations: onboarding.ConversationSituations,
	}
}

// ========== 操作 ==========

func (s *OnboardingService) Begin(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpBegin, func(_ context.Context, sess *onboarding.Session) error {
		return sess.Begin()
	})
}

func (s *OnboardingService) ContinueFromIntro(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpContinueFromIntro, func(_ context.Context, sess *onboarding.Session) error {
		return sess.ContinueFromIntro()
	})
}

func (s *OnboardingService) SelectLanguage(ctx context.Context, userID int64, language string) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpSelectLanguage, func(ctx context.Context, sess *onboarding.Session) error {
		lang, err := onboarding.ParseLanguage(language)
		if err != nil {
			return err
		}
		return sess.SelectLanguage(ctx, lang)
	})
}

func (s *OnboardingService) SelectIndustry(ctx context.Context, userID int64, industry string) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpSelectIndustry, func(ctx context.Context, sess *onboarding.Session) error {
		ind, err := onboarding.ParseIndustry(industry)
		if err != nil {
			return err
		}
		return sess.SelectIndustry(ctx, ind)
	})
}

func (s *OnboardingService) SubmitRole(ctx context.Context, userID int64, title, description string) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpSubmitRole, func(ctx context.Context, sess *onboarding.Session) error {
		return sess.SubmitRole(ctx, title, description)
	})
}

func (s *OnboardingService) SelectRole(ctx context.Context, userID int64, roleID string) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpSelectRole, func(ctx context.Context, sess *onboarding.Session) error {
		return sess.SelectRole(ctx, roleID)
	})
}

func (s *OnboardingService) SelectNoMatch(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpSelectNoMatch, func(ctx context.Context, sess *onboarding.Session) error {
		return sess.SelectNoMatch(ctx)
	})
}

func (s *OnboardingService) PreviousBasicInfoStep(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpPreviousBasicInfoStep, func(_ context.Context, sess *onboarding.Session) error {
		return sess.PreviousBasicInfoStep()
	})
}

func (s *OnboardingService) ContinueFromPhase1(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpContinueFromPhase1, func(_ context.Context, sess *onboarding.Session) error {
		return sess.ContinueFromPhase1()
	})
}

func (s *OnboardingService) TogglePartner(ctx context.Context, userID int64, partner string) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpTogglePartner, func(_ context.Context, sess *onboarding.Session) error {
		p, err := onboarding.ParsePartner(partner)
		if err != nil {
			return err
		}
		return sess.TogglePartner(p)
	})
}

func (s *OnboardingService) ContinueFromPartnerSelection(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpContinueFromPartnerSelection, func(ctx context.Context, sess *onboarding.Session) error {
		return sess.ContinueFromPartnerSelection(ctx)
	})
}

func (s *OnboardingService) ToggleSituation(ctx context.Context, userID int64, situation string) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpToggleSituation, func(_ context.Context, sess *onboarding.Session) error {
		v, err := onboarding.ParseSituation(situation)
		if err != nil {
			return err
		}
		return sess.ToggleSituation(v)
	})
}

func (s *OnboardingService) PreviousPartner(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpPreviousPartner, func(_ context.Context, sess *onboarding.Session) error {
		return sess.PreviousPartner()
	})
}

func (s *OnboardingService) ContinueFromSituationSelection(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpContinueFromSituationSelection, func(ctx context.Context, sess *onboarding.Session) error {
		return sess.ContinueFromSituationSelection(ctx)
	})
}

func (s *OnboardingService) RecommendCourses(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpRecommendCourses, func(ctx context.Context, sess *onboarding.Session) error {
		return sess.RecommendCourses(ctx)
	})
}

func (s *OnboardingService) SelectCourse(ctx context.Context, userID int64, courseID string) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpSelectCourse, func(ctx context.Context, sess *onboarding.Session) error {
		return sess.SelectCourse(ctx, courseID)
	})
}

func (s *OnboardingService) Finish(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpFinish, func(ctx context.Context, sess *onboarding.Session) error {
		return sess.Finish(ctx)
	})
}

// Restart 丢弃答案回到 welcome，换用新的会话 ID，旧会话还在排队的推荐轮询会被 worker 跳过
func (s *OnboardingService) Restart(ctx context.Context, userID int64) (*dto.OnboardingView, error) {
	return s.Do(ctx, userID, onboarding.OpRestart, func(_ context.Context, sess *onboarding.Session) error {
		id, err := s.deps.NewSessionID()
		if err != nil {
			return fmt.Errorf("failed to generate session id: %w", err)
		}
		return sess.Restart(id)
	})
}

// Do 加用户锁后恢复会话执行 fn，无论成功与否都保存快照（失败时保留 last_error）。
// 返回的视图在失败时同样有效，调用方可以和错误一起返回。
func (s *OnboardingService) Do(
	ctx context.Context,
	userID int64,
	op onboarding.Operation,
	fn func(context.Context, *onboarding.Session) error,
) (*dto.OnboardingView, error) {
	release, err := s.deps.Locker.Acquire(ctx, strconv.FormatInt(userID, 10))
	if err != nil {
		if stderrors.Is(err, ErrSessionBusy) {
			return nil, pkgerrors.OnboardingOperationInFlight
		}
		return nil, fmt.Errorf("failed to acquire onboarding lock: %w", err)
	}
	defer release()

	sess, statusBefore, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	phaseBefore := sess.Phase()

	start := s.deps.Now()
	opErr := fn(ctx, sess)
	metrics.RecordOnboardingOperation(ctx, string(op), resultOf(opErr), s.deps.Now().Sub(start))

	if opErr != nil {
		logger.Ctx(ctx).Info("Onboarding operation rejected",
			zap.Int64("user_id", userID),
			zap.String("session_id", sess.ID()),
			zap.String("operation", string(op)),
			zap.String("phase", string(sess.Phase())),
			zap.Error(opErr),
		)
	}

	if err := s.deps.Sessions.Save(ctx, userID, sess.Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to save onboarding session: %w", err)
	}

	phaseAfter := sess.Phase()
	if phaseAfter != phaseBefore {
		metrics.RecordPhaseTransition(ctx, string(phaseBefore), string(phaseAfter))
		logger.Ctx(ctx).Info("Onboarding phase changed",
			zap.Int64("user_id", userID),
			zap.String("session_id", sess.ID()),
			zap.String("from", string(phaseBefore)),
			zap.String("to", string(phaseAfter)),
		)
	}

	// completed 由 Finish 的 SelectionCompleted 一并写入
	if status := phaseAfter.Status(); status != statusBefore && status != onboarding.StatusCompleted {
		if err := s.deps.Users.UpdateOnboardingStatus(ctx, userID, status); err != nil {
			logger.Ctx(ctx).Warn("Failed to update onboarding status",
				zap.Int64("user_id", userID),
				zap.String("status", status),
				zap.Error(err),
			)
		}
	}

	return buildView(sess, phaseAfter.Ordinal() >= onboarding.PhasePhase2Complete.Ordinal()), opErr
}

// load 读取快照并恢复会话，返回用户记录中的引导状态
func (s *OnboardingService) load(ctx context.Context, userID int64) (*onboarding.Session, string, error) {
	user, err := s.deps.Users.GetByPublicID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, "", pkgerrors.UserNotFound
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	deps := s.sessionDeps(userID)
	st, err := s.deps.Sessions.Load(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load onboarding session: %w", err)
	}

	if st != nil {
		sess, err := onboarding.Restore(*st, deps)
		if err == nil {
			return sess, user.OnboardingStatus, nil
		}
		// 快照损坏时退回到用户记录的阶段边界
		logger.Ctx(ctx).Error("Discarding invalid onboarding snapshot",
			zap.Int64("user_id", userID),
			zap.String("session_id", st.SessionID),
			zap.Error(err),
		)
	}

	profile, err := s.profile(ctx, user)
	if err != nil {
		return nil, "", err
	}
	id, err := s.deps.NewSessionID()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return onboarding.Resume(id, user.OnboardingStatus, profile, deps), user.OnboardingStatus, nil
}

// profile 从用户资料和沟通对象表恢复已确认的答案
func (s *OnboardingService) profile(ctx context.Context, user *model.User) (onboarding.Profile, error) {
	var p onboarding.Profile
	if user.NativeLanguage != nil {
		if lang, err := onboarding.ParseLanguage(*user.NativeLanguage); err == nil {
			p.NativeLanguage = &lang
		}
	}
	if user.Industry != nil {
		if ind, err := onboarding.ParseIndustry(*user.Industry); err == nil {
			p.Industry = &ind
		}
	}
	if user.SelectedRoleID != nil && *user.SelectedRoleID != "" {
		role := onboarding.RoleCandidate{ID: *user.SelectedRoleID}
		if user.SelectedRoleTitle != nil {
			role.Title = *user.SelectedRoleTitle
		}
		if p.Industry != nil {
			role.Industry = string(*p.Industry)
		}
		p.SelectedRole = &role
	} else if user.CustomRoleTitle != nil {
		p.CustomRoleTitle = *user.CustomRoleTitle
		if user.CustomRoleDescription != nil {
			p.CustomRoleDescription = *user.CustomRoleDescription
		}
	}
	if user.SelectedCourseID != nil {
		p.SelectedCourseID = *user.SelectedCourseID
	}

	if s.deps.Partners == nil {
		return p, nil
	}
	rows, err := s.deps.Partners.ListPartnerSituations(ctx, user.PublicID)
	if err != nil {
		return p, fmt.Errorf("failed to list partner situations: %w", err)
	}
	for _, row := range rows {
		ps := onboarding.PartnerSituations{Partner: onboarding.ConversationPartner(row.Partner)}
		for _, v := range row.Situations {
			ps.Situations = append(ps.Situations, onboarding.ConversationSituation(v))
		}
		p.Partners = append(p.Partners, ps)
	}
	return p, nil
}

func (s *OnboardingService) sessionDeps(userID int64) onboarding.Dependencies {
	return onboarding.Dependencies{
		RoleMatcher:       s.deps.RoleMatcher,
		CourseRecommender: s.deps.CourseRecommender,
		SelectionStore:    selectionAdapter{userID: userID, writer: s.deps.Selections},
		Navigator:         navigatorAdapter{userID: userID, publisher: s.deps.Publisher, now: s.deps.Now},
		CallTimeout:       s.deps.CallTimeout,
	}
}

// resultOf 操作结果的指标标签
func resultOf(err error) string {
	var (
		ve *onboarding.ValidationError
		se *onboarding.StateError
		ce *onboarding.CollaboratorError
	)
	switch {
	case err == nil:
		return "ok"
	case stderrors.As(err, &ve):
		return "validation"
	case stderrors.As(err, &se):
		return "state"
	case onboarding.IsTimeout(err):
		return "timeout"
	case stderrors.As(err, &ce):
		return "collaborator"
	case stderrors.Is(err, onboarding.ErrOperationInFlight):
		return "in_flight"
	default:
		return "error"
	}
}

func buildView(sess *onboarding.Session, withSummary bool) *dto.OnboardingView {
	answers := sess.Answers()
	view := &dto.OnboardingView{
		SessionID:            sess.ID(),
		Phase:                sess.Phase(),
		BasicInfoStep:        sess.BasicInfoStep(),
		IsLoading:            sess.IsLoading(),
		RoleSearchInProgress: sess.RoleSearchInProgress(),
		RoleMatchStatus:      roleMatchStatus(answers.RoleMatch()),
		Answers:              answers,
	}
	view.Progress = view.Phase.Progress()
	if p, ok := answers.CurrentPartner(); ok && view.Phase == onboarding.PhaseConversationSituations {
		view.CurrentPartner = &p
	}
	if err := sess.LastError(); err != nil {
		view.LastError = err.Error()
	}
	if withSummary {
		sum := sess.Summary()
		view.Summary = &sum
	}
	return view
}

func roleMatchStatus(r onboarding.RoleMatchResult) string {
	switch r.(type) {
	case onboarding.Matched:
		return "matched"
	case onboarding.NotMatched:
		return "not_matched"
	default:
		return "pending"
	}
}

// ========== 会话依赖适配 ==========

type selectionAdapter struct {
	userID int64
	writer SelectionWriter
}

func (a selectionAdapter) SaveSelection(ctx context.Context, _ string, sel onboarding.Selection) error {
	return a.writer.Apply(ctx, a.userID, sel)
}

type navigatorAdapter struct {
	userID    int64
	publisher CompletionPublisher
	now       func() time.Time
}

func (a navigatorAdapter) EnterApp(ctx context.Context, summary onboarding.Summary) error {
	return a.publisher.PublishOnboardingCompleted(ctx, &model.OnboardingCompletedMessage{
		UserID:      a.userID,
		SessionID:   summary.SessionID,
		Summary:     summary,
		CompletedAt: a.now(),
	})
}
