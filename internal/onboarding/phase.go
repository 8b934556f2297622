package onboarding

// Phase 引导流程的顶层阶段，只能按 phaseOrder 向前推进
type Phase string

const (
	PhaseWelcome                Phase = "welcome"
	PhaseIntro                  Phase = "intro"
	PhaseBasicInfo              Phase = "basic_info"
	PhasePhase1Complete         Phase = "phase1_complete"
	PhaseConversationPartners   Phase = "conversation_partners"
	PhaseConversationSituations Phase = "conversation_situations"
	PhasePhase2Complete         Phase = "phase2_complete"
	PhaseOnboardingComplete     Phase = "onboarding_complete"
)

var phaseOrder = []Phase{
	PhaseWelcome,
	PhaseIntro,
	PhaseBasicInfo,
	PhasePhase1Complete,
	PhaseConversationPartners,
	PhaseConversationSituations,
	PhasePhase2Complete,
	PhaseOnboardingComplete,
}

// Phases 返回全部阶段（按顺序）
func Phases() []Phase {
	out := make([]Phase, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

// Ordinal 阶段序号，未知阶段返回 -1
func (p Phase) Ordinal() int { return indexOf(phaseOrder, p) }

func (p Phase) Valid() bool { return p.Ordinal() >= 0 }

// Next 下一个阶段，终态返回自身
func (p Phase) Next() Phase {
	i := p.Ordinal()
	if i < 0 || i == len(phaseOrder)-1 {
		return p
	}
	return phaseOrder[i+1]
}

// Progress 进度百分比（0-100），用于进度条
func (p Phase) Progress() int {
	i := p.Ordinal()
	if i <= 0 {
		return 0
	}
	return i * 100 / (len(phaseOrder) - 1)
}

// BasicInfoStep basic_info 阶段内的子步骤
type BasicInfoStep string

const (
	StepLanguage   BasicInfoStep = "language"
	StepIndustry   BasicInfoStep = "industry"
	StepRole       BasicInfoStep = "role"
	StepRoleResult BasicInfoStep = "role_result"
)

var stepOrder = []BasicInfoStep{StepLanguage, StepIndustry, StepRole, StepRoleResult}

func (s BasicInfoStep) Ordinal() int { return indexOf(stepOrder, s) }

func (s BasicInfoStep) Valid() bool { return s.Ordinal() >= 0 }

// Previous 上一个子步骤，language 之前没有步骤，返回自身
func (s BasicInfoStep) Previous() BasicInfoStep {
	i := s.Ordinal()
	if i <= 0 {
		return StepLanguage
	}
	return stepOrder[i-1]
}

// 服务端记录的引导状态字符串
const (
	StatusNotStarted       = "not_started"
	StatusBasicInfo        = "basic_info"
	StatusPersonalisation  = "personalisation"
	StatusCourseAssignment = "course_assignment"
	StatusCompleted        = "completed"
)

// Status 阶段对应的服务端引导状态
func (p Phase) Status() string {
	switch p {
	case PhaseWelcome, PhaseIntro:
		return StatusNotStarted
	case PhaseBasicInfo:
		return StatusBasicInfo
	case PhasePhase1Complete, PhaseConversationPartners, PhaseConversationSituations:
		return StatusPersonalisation
	case PhasePhase2Complete:
		return StatusCourseAssignment
	case PhaseOnboardingComplete:
		return StatusCompleted
	default:
		return StatusNotStarted
	}
}

// PhaseForStatus 根据服务端状态推导恢复时的阶段，只能恢复到阶段边界
func PhaseForStatus(status string) (Phase, BasicInfoStep) {
	switch status {
	case StatusBasicInfo:
		return PhaseBasicInfo, StepLanguage
	case StatusPersonalisation:
		return PhaseConversationPartners, StepRoleResult
	case StatusCourseAssignment:
		return PhasePhase2Complete, StepRoleResult
	case StatusCompleted:
		return PhaseOnboardingComplete, StepRoleResult
	default:
		return PhaseWelcome, StepLanguage
	}
}
