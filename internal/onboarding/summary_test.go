package onboarding

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Summary(t *testing.T) {
	s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(testCandidates)})
	toPhase2Complete(t, s)

	lang := LanguageSpanish
	industry := IndustryBankingFinance
	role := testCandidates[0]
	want := Summary{
		SessionID: "s-1",
		Status:    StatusCourseAssignment,
		Phase:     PhasePhase2Complete,
		Progress:  85,
		CompletedSteps: []Phase{
			PhaseWelcome,
			PhaseIntro,
			PhaseBasicInfo,
			PhasePhase1Complete,
			PhaseConversationPartners,
			PhaseConversationSituations,
		},
		NextStep:        PhaseOnboardingComplete,
		NativeLanguage:  &lang,
		Industry:        &industry,
		RoleTitle:       "Analyst",
		RoleDescription: "I analyse portfolios",
		SelectedRole:    &role,
		Partners: []PartnerSituations{
			{Partner: PartnerClients, Situations: []ConversationSituation{SituationMeetings}},
			{Partner: PartnerColleagues, Situations: []ConversationSituation{SituationPhoneCalls}},
		},
	}

	if diff := cmp.Diff(want, s.Summary()); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_SummaryAtWelcome(t *testing.T) {
	sum := NewSession("s-1", Dependencies{}).Summary()

	assert.Equal(t, StatusNotStarted, sum.Status)
	assert.Equal(t, 0, sum.Progress)
	assert.Empty(t, sum.CompletedSteps)
	assert.Equal(t, PhaseIntro, sum.NextStep)
	assert.NotNil(t, sum.Partners)
}

func TestSnapshotRestore(t *testing.T) {
	s := NewSession("s-1", Dependencies{RoleMatcher: staticMatcher(testCandidates)})
	toPartnerSelection(t, s)
	require.NoError(t, s.TogglePartner(PartnerStakeholders))

	restored, err := Restore(s.Snapshot(), Dependencies{})
	require.NoError(t, err)

	if diff := cmp.Diff(s.Snapshot(), restored.Snapshot()); diff != "" {
		t.Errorf("restored snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, PhaseConversationPartners, restored.Phase())
	require.NoError(t, restored.ContinueFromPartnerSelection(t.Context()))
}

func TestRestore_RejectsInvalidState(t *testing.T) {
	_, err := Restore(State{SessionID: "s-1", Phase: "nope", Step: StepLanguage}, Dependencies{})
	assert.Error(t, err)

	_, err = Restore(State{Phase: PhaseIntro, Step: StepLanguage}, Dependencies{})
	assert.Error(t, err)

	_, err = Restore(State{
		SessionID: "s-1",
		Phase:     PhaseConversationSituations,
		Step:      StepRoleResult,
		Answers:   Answers{CurrentPartnerIndex: 3},
	}, Dependencies{})
	assert.Error(t, err)
}

func TestSummary_CourseQuery(t *testing.T) {
	_, ok := Summary{}.CourseQuery()
	assert.False(t, ok)

	industry := IndustryLegal
	lang := LanguageFrench
	q, ok := Summary{
		Industry:       &industry,
		NativeLanguage: &lang,
		SelectedRole:   &RoleCandidate{ID: "r-9"},
		Partners: []PartnerSituations{
			{Partner: PartnerClients, Situations: []ConversationSituation{SituationMeetings, SituationPhoneCalls}},
			{Partner: PartnerColleagues, Situations: []ConversationSituation{SituationBriefings}},
		},
	}.CourseQuery()
	require.True(t, ok)
	require.NotNil(t, q.RoleID)
	assert.Equal(t, "r-9", *q.RoleID)
	assert.Equal(t, LanguageFrench, q.NativeLanguage)
	assert.Equal(t, []string{
		"Clients: Meetings",
		"Clients: Phone Calls",
		"Colleagues: Briefings",
	}, q.IdentifiedNeeds)
}
