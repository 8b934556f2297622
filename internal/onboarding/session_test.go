package onboarding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type matcherFunc func(ctx context.Context, q RoleQuery) ([]RoleCandidate, error)

func (f matcherFunc) MatchRoles(ctx context.Context, q RoleQuery) ([]RoleCandidate, error) {
	return f(ctx, q)
}

type recommenderFunc func(ctx context.Context, q CourseQuery) (CourseRecommendation, error)

func (f recommenderFunc) RecommendCourses(ctx context.Context, q CourseQuery) (CourseRecommendation, error) {
	return f(ctx, q)
}

type recordingStore struct {
	mu    sync.Mutex
	saved []Selection
	fail  map[SelectionKind]error
}

func (s *recordingStore) SaveSelection(_ context.Context, _ string, sel Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[sel.Kind]; err != nil {
		return err
	}
	s.saved = append(s.saved, sel)
	return nil
}

func (s *recordingStore) kinds() []SelectionKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SelectionKind, len(s.saved))
	for i, sel := range s.saved {
		out[i] = sel.Kind
	}
	return out
}

type recordingNavigator struct {
	summaries []Summary
	err       error
}

func (n *recordingNavigator) EnterApp(_ context.Context, summary Summary) error {
	n.summaries = append(n.summaries, summary)
	return n.err
}

var testCandidates = []RoleCandidate{
	{ID: "r-1", Title: "Financial Analyst", Industry: "Banking & Finance", CommonTasks: []string{"Reports"}, ConfidenceScore: 0.9},
	{ID: "r-2", Title: "Investment Banker", Industry: "Banking & Finance", CommonTasks: []string{"Pitches"}, ConfidenceScore: 0.7},
	{ID: "r-3", Title: "Account Manager", Industry: "Any", CommonTasks: []string{"Calls"}, ConfidenceScore: 0.4},
}

func staticMatcher(candidates []RoleCandidate) RoleMatcher {
	return matcherFunc(func(context.Context, RoleQuery) ([]RoleCandidate, error) {
		return candidates, nil
	})
}

func toRoleStep(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Begin())
	require.NoError(t, s.ContinueFromIntro())
	require.NoError(t, s.SelectLanguage(ctx, LanguageSpanish))
	require.NoError(t, s.SelectIndustry(ctx, IndustryBankingFinance))
	require.Equal(t, StepRole, s.BasicInfoStep())
}

func toPartnerSelection(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	toRoleStep(t, s)
	require.NoError(t, s.SubmitRole(ctx, "Analyst", "I analyse portfolios"))
	require.NoError(t, s.SelectRole(ctx, "r-1"))
	require.NoError(t, s.ContinueFromPhase1())
	require.Equal(t, PhaseConversationPartners, s.Phase())
}

func toPhase2Complete(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	toPartnerSelection(t, s)
	require.NoError(t, s.TogglePartner(PartnerClients))
	require.NoError(t, s.TogglePartner(PartnerColleagues))
	require.NoError(t, s.ContinueFromPartnerSelection(ctx))
	require.NoError(t, s.ToggleSituation(SituationMeetings))
	require.NoError(t, s.ContinueFromSituationSelection(ctx))
	require.NoError(t, s.ToggleSituation(SituationPhoneCalls))
	require.NoError(t, s.ContinueFromSituationSelection(ctx))
	require.Equal(t, PhasePhase2Complete, s.Phase())
}

func TestSession_HappyPathPersistsEverySelection(t *testing.T) {
	store := &recordingStore{}
	nav := &recordingNavigator{}
	s := NewSession("s-1", Dependencies{
		RoleMatcher:    staticMatcher(testCandidates),
		SelectionStore: store,
		Navigator:      nav,
	})

	toPhase2Complete(t, s)
	require.NoError(t, s.Finish(context.Background()))

	assert.Equal(t, PhaseOnboardingComplete, s.Phase())
	assert.Equal(t, []SelectionKind{
		SelectionLanguage,
		SelectionIndustry,
		SelectionRole,
		SelectionPartners,
		SelectionPartnerSituations,
		SelectionPartnerSituations,
		SelectionCompleted,
	}, store.kinds())

	require.Len(t, nav.summaries, 1)
	sum := nav.summaries[0]
	assert.Equal(t, PhaseOnboardingComplete, sum.Phase)
	assert.Equal(t, 100, sum.Progress)
	assert.Equal(t, StatusCompleted, sum.Status)
	assert.Empty(t, sum.NextStep)
	assert.Len(t, sum.CompletedSteps, len(phaseOrder)-1)
	assert.Nil(t, s.LastError())
	assert.False(t, s.IsLoading())
}

func TestSession_UnmetPreconditionsKeepPhase(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		setup func(t *testing.T, s *Session)
		op    func(s *Session) error
		field string
	}{
		{
			name: "unknown language",
			setup: func(t *testing.T, s *Session) {
				require.NoError(t, s.Begin())
				require.NoError(t, s.ContinueFromIntro())
			},
			op:    func(s *Session) error { return s.SelectLanguage(ctx, "Klingon") },
			field: "native_language",
		},
		{
			name: "unknown industry",
			setup: func(t *testing.T, s *Session) {
				require.NoError(t, s.Begin())
				require.NoError(t, s.ContinueFromIntro())
				require.NoError(t, s.SelectLanguage(ctx, LanguageEnglish))
			},
			op:    func(s *Session) error { return s.SelectIndustry(ctx, "") },
			field: "industry",
		},
		{
			name:  "empty role description",
			setup: toRoleStep,
			op:    func(s *Session) error { return s.SubmitRole(ctx, "Analyst", "   ") },
			field: "role_description",
		},
		{
			name: "role not among candidates",
			setup: func(t *testing.T, s *Session) {
				toRoleStep(t, s)
				require.NoError(t, s.SubmitRole(ctx, "Analyst", "Numbers"))
			},
			op:    func(s *Session) error { return s.SelectRole(ctx, "missing") },
			field: "role_id",
		},
		{
			name:  "no partners selected",
			setup: toPartnerSelection,
			op:    func(s *Session) error { return s.ContinueFromPartnerSelection(ctx) },
			field: "partners",
		},
		{
			name: "no situations selected",
			setup: func(t *testing.T, s *Session) {
				toPartnerSelection(t, s)
				require.NoError(t, s.TogglePartner(PartnerSuppliers))
				require.NoError(t, s.ContinueFromPartnerSelection(ctx))
			},
			op:    func(s *Session) error { return s.ContinueFromSituationSelection(ctx) },
			field: "situations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(testCandidates)})
			tt.setup(t, s)
			phase, step := s.Phase(), s.BasicInfoStep()

			err := tt.op(s)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, phase, s.Phase())
			assert.Equal(t, step, s.BasicInfoStep())
			assert.Equal(t, err, s.LastError())
		})
	}
}

func TestSession_SubmitRoleEmptyInputStaysOnRole(t *testing.T) {
	called := false
	s := NewSession("s-1", Dependencies{RoleMatcher: matcherFunc(func(context.Context, RoleQuery) ([]RoleCandidate, error) {
		called = true
		return nil, nil
	})})
	toRoleStep(t, s)

	err := s.SubmitRole(context.Background(), "", "")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "role_title", ve.Field)
	assert.Equal(t, StepRole, s.BasicInfoStep())
	assert.False(t, called)
	assert.Nil(t, s.Answers().RoleMatch())
}

func TestSession_WrongPhaseIsStateError(t *testing.T) {
	s := NewSession("s-1", Dependencies{})

	err := s.Finish(context.Background())

	var se *StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, OpFinish, se.Op)
	assert.Equal(t, PhaseWelcome, se.Phase)
	assert.Equal(t, PhaseWelcome, s.Phase())

	require.NoError(t, s.Begin())
	assert.Nil(t, s.LastError())
	assert.ErrorAs(t, s.Begin(), &se)
}

func TestSession_TogglePartnerIsItsOwnInverse(t *testing.T) {
	s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(testCandidates)})
	toPartnerSelection(t, s)

	require.NoError(t, s.TogglePartner(PartnerColleagues))
	require.NoError(t, s.TogglePartner(PartnerClients))
	assert.Equal(t, []ConversationPartner{PartnerClients, PartnerColleagues}, s.Answers().SelectedPartners)

	require.NoError(t, s.TogglePartner(PartnerSuppliers))
	require.NoError(t, s.TogglePartner(PartnerSuppliers))
	assert.Equal(t, []ConversationPartner{PartnerClients, PartnerColleagues}, s.Answers().SelectedPartners)

	// 正常流程中记录场景后不会回到 partners 阶段，用快照构造该状态
	st := s.Snapshot()
	st.Answers.PartnerSituations = []PartnerSituations{
		{Partner: PartnerClients, Situations: []ConversationSituation{SituationMeetings}},
		{Partner: PartnerColleagues, Situations: []ConversationSituation{SituationBriefings}},
	}
	restored, err := Restore(st, Dependencies{})
	require.NoError(t, err)

	require.NoError(t, restored.TogglePartner(PartnerClients))
	a := restored.Answers()
	assert.Equal(t, []ConversationPartner{PartnerColleagues}, a.SelectedPartners)
	_, ok := a.SituationsFor(PartnerClients)
	assert.False(t, ok)
	_, ok = a.SituationsFor(PartnerColleagues)
	assert.True(t, ok)

	require.NoError(t, restored.TogglePartner(PartnerClients))
	assert.Equal(t, []ConversationPartner{PartnerClients, PartnerColleagues}, restored.Answers().SelectedPartners)
}

func TestSession_PartnerSituationScenario(t *testing.T) {
	ctx := context.Background()
	s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(testCandidates)})
	toPartnerSelection(t, s)

	require.NoError(t, s.TogglePartner(PartnerClients))
	require.NoError(t, s.TogglePartner(PartnerColleagues))
	require.NoError(t, s.ContinueFromPartnerSelection(ctx))
	assert.Equal(t, PhaseConversationSituations, s.Phase())
	assert.Equal(t, 0, s.Answers().CurrentPartnerIndex)

	require.NoError(t, s.ToggleSituation(SituationMeetings))
	require.NoError(t, s.ContinueFromSituationSelection(ctx))
	a := s.Answers()
	assert.Equal(t, 1, a.CurrentPartnerIndex)
	assert.Len(t, a.PartnerSituations, 1)
	assert.Empty(t, a.PendingSituations)

	require.NoError(t, s.ToggleSituation(SituationPhoneCalls))
	require.NoError(t, s.ContinueFromSituationSelection(ctx))
	assert.Equal(t, PhasePhase2Complete, s.Phase())
	assert.Len(t, s.Answers().PartnerSituations, 2)
}

func TestSession_ResubmitSituationsDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(testCandidates)})
	toPartnerSelection(t, s)
	require.NoError(t, s.TogglePartner(PartnerClients))
	require.NoError(t, s.TogglePartner(PartnerColleagues))
	require.NoError(t, s.ContinueFromPartnerSelection(ctx))

	require.NoError(t, s.ToggleSituation(SituationMeetings))
	require.NoError(t, s.ContinueFromSituationSelection(ctx))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.PreviousPartner())
		a := s.Answers()
		require.Equal(t, 0, a.CurrentPartnerIndex)
		require.Equal(t, []ConversationSituation{SituationMeetings}, a.PendingSituations)
		require.NoError(t, s.ContinueFromSituationSelection(ctx))
	}

	a := s.Answers()
	assert.Len(t, a.PartnerSituations, 1)
	assert.Equal(t, 1, a.CurrentPartnerIndex)

	// 修改后重新提交会覆盖原记录
	require.NoError(t, s.PreviousPartner())
	require.NoError(t, s.ToggleSituation(SituationNegotiations))
	require.NoError(t, s.ContinueFromSituationSelection(ctx))
	situations, ok := s.Answers().SituationsFor(PartnerClients)
	require.True(t, ok)
	assert.Equal(t, []ConversationSituation{SituationNegotiations, SituationMeetings}, situations)
	assert.Len(t, s.Answers().PartnerSituations, 1)
}

func TestSession_PreviousPartnerAtFirstIsNoop(t *testing.T) {
	ctx := context.Background()
	s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(testCandidates)})
	toPartnerSelection(t, s)
	require.NoError(t, s.TogglePartner(PartnerClients))
	require.NoError(t, s.ContinueFromPartnerSelection(ctx))
	require.NoError(t, s.ToggleSituation(SituationMeetings))

	require.NoError(t, s.PreviousPartner())

	a := s.Answers()
	assert.Equal(t, 0, a.CurrentPartnerIndex)
	assert.Equal(t, []ConversationSituation{SituationMeetings}, a.PendingSituations)
}

func TestSession_PreviousBasicInfoStep(t *testing.T) {
	ctx := context.Background()
	s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(testCandidates)})
	require.NoError(t, s.Begin())
	require.NoError(t, s.ContinueFromIntro())

	require.NoError(t, s.PreviousBasicInfoStep())
	assert.Equal(t, StepLanguage, s.BasicInfoStep())
	assert.Equal(t, PhaseBasicInfo, s.Phase())

	require.NoError(t, s.SelectLanguage(ctx, LanguageGerman))
	require.NoError(t, s.SelectIndustry(ctx, IndustryRetail))
	require.NoError(t, s.SubmitRole(ctx, "Buyer", "I buy stock"))
	require.NotNil(t, s.Answers().RoleMatch())

	require.NoError(t, s.PreviousBasicInfoStep())
	assert.Equal(t, StepRole, s.BasicInfoStep())
	a := s.Answers()
	assert.Nil(t, a.RoleMatch())
	assert.Empty(t, a.MatchedRoles)

	require.NoError(t, s.PreviousBasicInfoStep())
	require.NoError(t, s.PreviousBasicInfoStep())
	require.NoError(t, s.PreviousBasicInfoStep())
	assert.Equal(t, StepLanguage, s.BasicInfoStep())
}

func TestSession_MatchedRolesKeepCollaboratorOrder(t *testing.T) {
	// 故意不按置信度排序，确认会话不重新排序
	unsorted := []RoleCandidate{testCandidates[2], testCandidates[0], testCandidates[1]}
	s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(unsorted)})
	toRoleStep(t, s)

	require.NoError(t, s.SubmitRole(context.Background(), "Analyst", "Numbers"))

	a := s.Answers()
	require.Len(t, a.MatchedRoles, 3)
	for i := range unsorted {
		assert.Equal(t, unsorted[i].ID, a.MatchedRoles[i].ID)
	}
	matched, ok := a.RoleMatch().(Matched)
	require.True(t, ok)
	assert.Equal(t, a.MatchedRoles, matched.Candidates)
}

func TestSession_NoMatchScenario(t *testing.T) {
	ctx := context.Background()
	var got RoleQuery
	s := NewSession("s-1", Dependencies{RoleMatcher: matcherFunc(func(_ context.Context, q RoleQuery) ([]RoleCandidate, error) {
		got = q
		return []RoleCandidate{}, nil
	})})
	require.NoError(t, s.Begin())
	require.NoError(t, s.ContinueFromIntro())
	require.NoError(t, s.SelectLanguage(ctx, LanguageEnglish))
	require.NoError(t, s.SelectIndustry(ctx, IndustryHospitality))

	require.NoError(t, s.SubmitRole(ctx, "Nurse", "ER nurse"))
	assert.Equal(t, RoleQuery{Title: "Nurse", Description: "ER nurse", Industry: IndustryHospitality}, got)
	assert.Equal(t, StepRoleResult, s.BasicInfoStep())
	assert.IsType(t, NotMatched{}, s.Answers().RoleMatch())

	require.NoError(t, s.SelectNoMatch(ctx))
	a := s.Answers()
	assert.Equal(t, PhasePhase1Complete, s.Phase())
	assert.True(t, a.DidSelectNoMatch)
	assert.Nil(t, a.SelectedRole)
}

func TestSession_PersistenceFailureDoesNotAdvance(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("db down")
	store := &recordingStore{fail: map[SelectionKind]error{SelectionLanguage: boom}}
	s := NewSession("s-1", Dependencies{SelectionStore: store})
	require.NoError(t, s.Begin())
	require.NoError(t, s.ContinueFromIntro())

	err := s.SelectLanguage(ctx, LanguageFrench)

	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
	assert.Equal(t, StepLanguage, s.BasicInfoStep())
	assert.Nil(t, s.Answers().NativeLanguage)
	assert.Equal(t, OpFailed, s.OpState(OpSelectLanguage).Status)
	assert.Equal(t, err, s.LastError())

	store.mu.Lock()
	store.fail = nil
	store.mu.Unlock()
	require.NoError(t, s.SelectLanguage(ctx, LanguageFrench))
	assert.Equal(t, StepIndustry, s.BasicInfoStep())
	assert.Equal(t, OpIdle, s.OpState(OpSelectLanguage).Status)
	assert.Nil(t, s.LastError())
}

func TestSession_CollaboratorTimeout(t *testing.T) {
	s := NewSession("s-1", Dependencies{
		CallTimeout: 20 * time.Millisecond,
		RoleMatcher: matcherFunc(func(ctx context.Context, _ RoleQuery) ([]RoleCandidate, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	})
	toRoleStep(t, s)

	err := s.SubmitRole(context.Background(), "Analyst", "Numbers")

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, StepRole, s.BasicInfoStep())
	assert.False(t, s.RoleSearchInProgress())
}

func TestSession_InFlightGuard(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := NewSession("s-1", Dependencies{
		RoleMatcher: matcherFunc(func(ctx context.Context, _ RoleQuery) ([]RoleCandidate, error) {
			close(started)
			select {
			case <-release:
				return testCandidates, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}),
	})
	toRoleStep(t, s)

	done := make(chan error, 1)
	go func() {
		done <- s.SubmitRole(context.Background(), "Analyst", "Numbers")
	}()
	<-started

	assert.True(t, s.RoleSearchInProgress())
	assert.True(t, s.IsLoading())
	assert.True(t, s.OpState(OpSubmitRole).InFlight())
	assert.ErrorIs(t, s.SubmitRole(context.Background(), "Analyst", "Numbers"), ErrOperationInFlight)
	assert.ErrorIs(t, s.Restart("s-2"), ErrOperationInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.RoleSearchInProgress())
	assert.False(t, s.IsLoading())
	assert.Equal(t, StepRoleResult, s.BasicInfoStep())
	assert.Len(t, s.Answers().MatchedRoles, 3)
}

func TestSession_StepChangedDuringCallIsRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := NewSession("s-1", Dependencies{
		RoleMatcher: matcherFunc(func(context.Context, RoleQuery) ([]RoleCandidate, error) {
			close(started)
			<-release
			return testCandidates, nil
		}),
	})
	toRoleStep(t, s)

	done := make(chan error, 1)
	go func() {
		done <- s.SubmitRole(context.Background(), "Analyst", "Numbers")
	}()
	<-started
	require.NoError(t, s.PreviousBasicInfoStep())
	close(release)

	var se *StateError
	require.ErrorAs(t, <-done, &se)
	assert.Equal(t, StepIndustry, s.BasicInfoStep())
	assert.Empty(t, s.Answers().MatchedRoles)
}

func TestSession_RecommendCourses(t *testing.T) {
	ctx := context.Background()
	var got CourseQuery
	wait := "24-48 hours"
	s := NewSession("s-1", Dependencies{
		RoleMatcher: staticMatcher(testCandidates),
		CourseRecommender: recommenderFunc(func(_ context.Context, q CourseQuery) (CourseRecommendation, error) {
			got = q
			return CourseRecommendation{CustomCoursesBeingGenerated: true, EstimatedWait: &wait}, nil
		}),
	})
	toPhase2Complete(t, s)

	require.NoError(t, s.RecommendCourses(ctx))

	require.NotNil(t, got.RoleID)
	assert.Equal(t, "r-1", *got.RoleID)
	assert.Equal(t, IndustryBankingFinance, got.Industry)
	assert.Equal(t, LanguageSpanish, got.NativeLanguage)
	assert.Equal(t, []string{"Clients: Meetings", "Colleagues: Phone Calls"}, got.IdentifiedNeeds)

	rec := s.Answers().Recommendation
	require.NotNil(t, rec)
	assert.Equal(t, CoursesGenerating, rec.Outcome())
	assert.Equal(t, PhasePhase2Complete, s.Phase())
}

func TestSession_RecommendCoursesWithoutRecommender(t *testing.T) {
	s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(testCandidates)})
	toPhase2Complete(t, s)

	err := s.RecommendCourses(context.Background())

	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Nil(t, s.Answers().Recommendation)
}

func TestSession_Restart(t *testing.T) {
	s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(testCandidates)})
	toPartnerSelection(t, s)
	require.NoError(t, s.TogglePartner(PartnerOther))

	require.NoError(t, s.Restart("s-2"))

	assert.Equal(t, "s-2", s.ID())
	assert.Equal(t, "s-2", s.Summary().SessionID)
	assert.Equal(t, PhaseWelcome, s.Phase())
	assert.Equal(t, StepLanguage, s.BasicInfoStep())
	a := s.Answers()
	assert.Nil(t, a.NativeLanguage)
	assert.Empty(t, a.SelectedPartners)
	assert.Nil(t, a.SelectedRole)
}

func TestSession_RestartNeedsNewSessionID(t *testing.T) {
	s := NewSession("s-1", Dependencies{})
	require.NoError(t, s.Begin())

	assert.Error(t, s.Restart(""))
	assert.Error(t, s.Restart("s-1"))
	assert.Equal(t, "s-1", s.ID())
	assert.Equal(t, PhaseIntro, s.Phase())
}

func TestSession_AnswersReturnsCopy(t *testing.T) {
	s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(testCandidates)})
	toRoleStep(t, s)
	require.NoError(t, s.SubmitRole(context.Background(), "Analyst", "Numbers"))

	a := s.Answers()
	a.MatchedRoles[0].Title = "changed"
	a.MatchedRoles[0].CommonTasks[0] = "changed"

	b := s.Answers()
	assert.Equal(t, "Financial Analyst", b.MatchedRoles[0].Title)
	assert.Equal(t, "Reports", b.MatchedRoles[0].CommonTasks[0])
}

func TestSession_FinishHandsOffBeforeRecordingCompletion(t *testing.T) {
	store := &recordingStore{}
	nav := &recordingNavigator{err: errors.New("navigation failed")}
	s := NewSession("s-1", Dependencies{
		RoleMatcher:    staticMatcher(testCandidates),
		SelectionStore: store,
		Navigator:      nav,
	})
	toPhase2Complete(t, s)

	require.Error(t, s.Finish(context.Background()))
	assert.Equal(t, PhasePhase2Complete, s.Phase())
	assert.NotContains(t, store.kinds(), SelectionCompleted)

	// 重试时再次交接
	nav.err = nil
	require.NoError(t, s.Finish(context.Background()))
	assert.Equal(t, PhaseOnboardingComplete, s.Phase())
	assert.Len(t, nav.summaries, 2)
	assert.Equal(t, SelectionCompleted, store.kinds()[len(store.kinds())-1])
}

func TestSession_FinishRecordFailureKeepsPhase(t *testing.T) {
	store := &recordingStore{fail: map[SelectionKind]error{SelectionCompleted: errors.New("db down")}}
	nav := &recordingNavigator{}
	s := NewSession("s-1", Dependencies{
		RoleMatcher:    staticMatcher(testCandidates),
		SelectionStore: store,
		Navigator:      nav,
	})
	toPhase2Complete(t, s)

	require.Error(t, s.Finish(context.Background()))
	assert.Equal(t, PhasePhase2Complete, s.Phase())
	assert.Len(t, nav.summaries, 1)
}

var testCourses = CourseRecommendation{Courses: []Course{
	{ID: "c-1", Name: "Client Meetings"},
	{ID: "c-2", Name: "Phone English"},
}}

func staticRecommender(rec CourseRecommendation) CourseRecommender {
	return recommenderFunc(func(context.Context, CourseQuery) (CourseRecommendation, error) {
		return rec, nil
	})
}

func TestSession_SelectCourse(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	nav := &recordingNavigator{}
	s := NewSession("s-1", Dependencies{
		RoleMatcher:       staticMatcher(testCandidates),
		CourseRecommender: staticRecommender(testCourses),
		SelectionStore:    store,
		Navigator:         nav,
	})

	var se *StateError
	require.ErrorAs(t, s.SelectCourse(ctx, "c-1"), &se)

	toPhase2Complete(t, s)
	var ve *ValidationError
	require.ErrorAs(t, s.SelectCourse(ctx, "c-1"), &ve)
	assert.Equal(t, "course_id", ve.Field)

	require.NoError(t, s.RecommendCourses(ctx))
	require.ErrorAs(t, s.SelectCourse(ctx, "c-9"), &ve)
	assert.Empty(t, s.Answers().SelectedCourseID)

	require.NoError(t, s.SelectCourse(ctx, "c-2"))
	assert.Equal(t, "c-2", s.Answers().SelectedCourseID)
	assert.Equal(t, "c-2", s.Summary().SelectedCourseID)
	assert.Equal(t, PhasePhase2Complete, s.Phase())

	last := store.saved[len(store.saved)-1]
	assert.Equal(t, SelectionCourse, last.Kind)
	assert.Equal(t, "c-2", last.CourseID)

	require.NoError(t, s.Finish(ctx))
	require.Len(t, nav.summaries, 1)
	assert.Equal(t, "c-2", nav.summaries[0].SelectedCourseID)
	completed := store.saved[len(store.saved)-1]
	assert.Equal(t, SelectionCompleted, completed.Kind)
	assert.Equal(t, "c-2", completed.CourseID)
}

func TestSession_SelectCourseFailureKeepsSelection(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	s := NewSession("s-1", Dependencies{
		RoleMatcher:       staticMatcher(testCandidates),
		CourseRecommender: staticRecommender(testCourses),
		SelectionStore:    store,
	})
	toPhase2Complete(t, s)
	require.NoError(t, s.RecommendCourses(ctx))
	require.NoError(t, s.SelectCourse(ctx, "c-1"))

	store.fail = map[SelectionKind]error{SelectionCourse: errors.New("db down")}
	require.Error(t, s.SelectCourse(ctx, "c-2"))
	assert.Equal(t, "c-1", s.Answers().SelectedCourseID)
}

func TestSession_RecommendAgainDropsStaleCourse(t *testing.T) {
	ctx := context.Background()
	rec := testCourses
	s := NewSession("s-1", Dependencies{
		RoleMatcher: staticMatcher(testCandidates),
		CourseRecommender: recommenderFunc(func(context.Context, CourseQuery) (CourseRecommendation, error) {
			return rec, nil
		}),
	})
	toPhase2Complete(t, s)
	require.NoError(t, s.RecommendCourses(ctx))
	require.NoError(t, s.SelectCourse(ctx, "c-2"))

	// 仍在新结果中的课程保留
	rec = CourseRecommendation{Courses: []Course{{ID: "c-2"}, {ID: "c-3"}}}
	require.NoError(t, s.RecommendCourses(ctx))
	assert.Equal(t, "c-2", s.Answers().SelectedCourseID)

	rec = CourseRecommendation{CustomCoursesBeingGenerated: true}
	require.NoError(t, s.RecommendCourses(ctx))
	assert.Empty(t, s.Answers().SelectedCourseID)
}

func langPtr(l Language) *Language { return &l }

func industryPtr(i Industry) *Industry { return &i }

func fullProfile() Profile {
	role := testCandidates[0]
	return Profile{
		NativeLanguage: langPtr(LanguageSpanish),
		Industry:       industryPtr(IndustryBankingFinance),
		SelectedRole:   &role,
		// 故意打乱次序
		Partners: []PartnerSituations{
			{Partner: PartnerColleagues, Situations: []ConversationSituation{SituationPhoneCalls}},
			{Partner: PartnerClients, Situations: []ConversationSituation{SituationMeetings}},
		},
		SelectedCourseID: "c-1",
	}
}

func TestResume(t *testing.T) {
	s := Resume("s-1", StatusPersonalisation, Profile{}, Dependencies{})
	assert.Equal(t, PhaseBasicInfo, s.Phase())
	assert.Equal(t, StepLanguage, s.BasicInfoStep())

	s = Resume("s-2", "garbage", Profile{}, Dependencies{})
	assert.Equal(t, PhaseWelcome, s.Phase())

	s = Resume("s-3", StatusNotStarted, fullProfile(), Dependencies{})
	assert.Equal(t, PhaseWelcome, s.Phase())
	assert.Nil(t, s.Answers().NativeLanguage)
}

func TestResume_MissingBasicInfoFallsBackToStep(t *testing.T) {
	p := fullProfile()
	p.Industry = nil
	s := Resume("s-1", StatusCourseAssignment, p, Dependencies{})
	assert.Equal(t, PhaseBasicInfo, s.Phase())
	assert.Equal(t, StepIndustry, s.BasicInfoStep())
	require.NotNil(t, s.Answers().NativeLanguage)
	assert.Equal(t, LanguageSpanish, *s.Answers().NativeLanguage)

	// 无效的行业值等同于缺失
	bad := Industry("Astrology")
	p.Industry = &bad
	s = Resume("s-1", StatusCourseAssignment, p, Dependencies{})
	assert.Equal(t, StepIndustry, s.BasicInfoStep())

	p = fullProfile()
	p.SelectedRole = nil
	s = Resume("s-1", StatusPersonalisation, p, Dependencies{})
	assert.Equal(t, PhaseBasicInfo, s.Phase())
	assert.Equal(t, StepRole, s.BasicInfoStep())
}

func TestResume_CompleteBasicInfoSkipsToPhase1Complete(t *testing.T) {
	p := fullProfile()
	p.SelectedRole = nil
	p.CustomRoleTitle = "Quant"
	p.CustomRoleDescription = "Builds models"

	s := Resume("s-1", StatusBasicInfo, p, Dependencies{})

	assert.Equal(t, PhasePhase1Complete, s.Phase())
	a := s.Answers()
	assert.True(t, a.DidSelectNoMatch)
	assert.Equal(t, "Quant", a.RoleTitle)
	require.NoError(t, s.ContinueFromPhase1())
	assert.Equal(t, PhaseConversationPartners, s.Phase())
}

func TestResume_CourseAssignmentCanRecommendAndFinish(t *testing.T) {
	ctx := context.Background()
	var got CourseQuery
	nav := &recordingNavigator{}
	s := Resume("s-1", StatusCourseAssignment, fullProfile(), Dependencies{
		CourseRecommender: recommenderFunc(func(_ context.Context, q CourseQuery) (CourseRecommendation, error) {
			got = q
			return testCourses, nil
		}),
		Navigator: nav,
	})

	require.Equal(t, PhasePhase2Complete, s.Phase())
	a := s.Answers()
	assert.Equal(t, []ConversationPartner{PartnerClients, PartnerColleagues}, a.SelectedPartners)
	assert.Equal(t, len(a.SelectedPartners), a.CurrentPartnerIndex)
	// 只有完成状态才恢复已选课程
	assert.Empty(t, a.SelectedCourseID)

	require.NoError(t, s.RecommendCourses(ctx))
	require.NotNil(t, got.RoleID)
	assert.Equal(t, "r-1", *got.RoleID)
	assert.Equal(t, IndustryBankingFinance, got.Industry)
	assert.Equal(t, LanguageSpanish, got.NativeLanguage)
	assert.Equal(t, []string{"Clients: Meetings", "Colleagues: Phone Calls"}, got.IdentifiedNeeds)

	require.NoError(t, s.SelectCourse(ctx, "c-1"))
	require.NoError(t, s.Finish(ctx))
	assert.Equal(t, PhaseOnboardingComplete, s.Phase())
	require.Len(t, nav.summaries, 1)
	assert.Equal(t, "Financial Analyst", nav.summaries[0].RoleTitle)
}

func TestResume_IncompleteSituationsReturnToPartners(t *testing.T) {
	p := fullProfile()
	p.Partners[1].Situations = nil

	s := Resume("s-1", StatusCourseAssignment, p, Dependencies{})

	assert.Equal(t, PhaseConversationPartners, s.Phase())
	assert.Equal(t, []ConversationPartner{PartnerClients, PartnerColleagues}, s.Answers().SelectedPartners)
	assert.Empty(t, s.Answers().PartnerSituations)
	require.NoError(t, s.ContinueFromPartnerSelection(context.Background()))
	assert.Equal(t, PhaseConversationSituations, s.Phase())
}

func TestResume_CompletedRestoresCourse(t *testing.T) {
	s := Resume("s-1", StatusCompleted, fullProfile(), Dependencies{})
	assert.Equal(t, PhaseOnboardingComplete, s.Phase())
	assert.Equal(t, "c-1", s.Answers().SelectedCourseID)
	assert.Equal(t, "c-1", s.Summary().SelectedCourseID)
}
