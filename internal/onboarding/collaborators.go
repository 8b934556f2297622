package onboarding

import "context"

// RoleQuery 角色匹配请求
type RoleQuery struct {
	Title       string
	Description string
	Industry    Industry
}

// RoleMatcher 根据职位名称、描述和行业返回按置信度降序排列的候选角色。
// 返回空列表表示没有匹配，不是错误。
type RoleMatcher interface {
	MatchRoles(ctx context.Context, q RoleQuery) ([]RoleCandidate, error)
}

// CourseQuery 课程推荐请求
type CourseQuery struct {
	RoleID          *string  `json:"role_id,omitempty"`
	Industry        Industry `json:"industry"`
	IdentifiedNeeds []string `json:"identified_needs"`
	NativeLanguage  Language `json:"native_language,omitempty"`
}

// Course 推荐课程
type Course struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Level              string   `json:"level"`
	EstimatedDuration  string   `json:"estimated_duration"`
	Rating             float64  `json:"rating"`
	TargetSkills       []string `json:"target_skills,omitempty"`
	FunctionalLanguage []string `json:"functional_language,omitempty"`
}

// CourseRecommendation 课程推荐结果
type CourseRecommendation struct {
	Courses                     []Course `json:"courses"`
	CustomCoursesBeingGenerated bool     `json:"custom_courses_being_generated"`
	EstimatedWait               *string  `json:"estimated_wait,omitempty"`
}

// CourseOutcome 推荐结果的分类，界面据此走不同的确认路径
type CourseOutcome string

const (
	CoursesReady      CourseOutcome = "ready"
	CoursesGenerating CourseOutcome = "generating"
	NoCourses         CourseOutcome = "none"
)

func (r CourseRecommendation) Outcome() CourseOutcome {
	switch {
	case len(r.Courses) > 0:
		return CoursesReady
	case r.CustomCoursesBeingGenerated:
		return CoursesGenerating
	default:
		return NoCourses
	}
}

func (r CourseRecommendation) clone() CourseRecommendation {
	out := r
	out.Courses = make([]Course, len(r.Courses))
	for i, c := range r.Courses {
		c.TargetSkills = append([]string(nil), c.TargetSkills...)
		c.FunctionalLanguage = append([]string(nil), c.FunctionalLanguage...)
		out.Courses[i] = c
	}
	if r.EstimatedWait != nil {
		v := *r.EstimatedWait
		out.EstimatedWait = &v
	}
	return out
}

// CourseRecommender 根据角色和需求推荐课程
type CourseRecommender interface {
	RecommendCourses(ctx context.Context, q CourseQuery) (CourseRecommendation, error)
}

// SelectionKind 需要持久化的选择类型
type SelectionKind string

const (
	SelectionLanguage          SelectionKind = "language"
	SelectionIndustry          SelectionKind = "industry"
	SelectionRole              SelectionKind = "role"
	SelectionCustomRole        SelectionKind = "custom_role"
	SelectionPartners          SelectionKind = "partners"
	SelectionPartnerSituations SelectionKind = "partner_situations"
	SelectionCourse            SelectionKind = "course"
	SelectionCompleted         SelectionKind = "completed"
)

// Selection 一次被确认的选择，按 Kind 读取对应字段
type Selection struct {
	Kind            SelectionKind
	Language        Language
	Industry        Industry
	Role            *RoleCandidate
	RoleTitle       string
	RoleDescription string
	Partners        []ConversationPartner
	Partner         ConversationPartner
	Situations      []ConversationSituation
	// Priority 沟通对象在已选列表中的次序，从 1 开始
	Priority int
	CourseID string
}

// SelectionStore 持久化用户选择，成功后会话才推进状态
type SelectionStore interface {
	SaveSelection(ctx context.Context, sessionID string, sel Selection) error
}

// Navigator 引导完成后进入应用的交接方
type Navigator interface {
	EnterApp(ctx context.Context, summary Summary) error
}

type noopStore struct{}

func (noopStore) SaveSelection(context.Context, string, Selection) error { return nil }

type noopNavigator struct{}

func (noopNavigator) EnterApp(context.Context, Summary) error { return nil }
