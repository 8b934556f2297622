package onboarding

// 引导流程中可选的枚举值，顺序即展示顺序，也是排序依据

// Language 用户母语
type Language string

const (
	LanguageEnglish    Language = "English"
	LanguageSpanish    Language = "Spanish"
	LanguageFrench     Language = "French"
	LanguageGerman     Language = "German"
	LanguageItalian    Language = "Italian"
	LanguagePortuguese Language = "Portuguese"
	LanguageRussian    Language = "Russian"
	LanguageChinese    Language = "Chinese"
	LanguageJapanese   Language = "Japanese"
	LanguageKorean     Language = "Korean"
	LanguageArabic     Language = "Arabic"
	LanguageHindi      Language = "Hindi"
)

// Languages 所有支持的母语
var Languages = []Language{
	LanguageEnglish, LanguageSpanish, LanguageFrench, LanguageGerman,
	LanguageItalian, LanguagePortuguese, LanguageRussian, LanguageChinese,
	LanguageJapanese, LanguageKorean, LanguageArabic, LanguageHindi,
}

// Industry 用户所在行业
type Industry string

const (
	IndustryBankingFinance    Industry = "Banking & Finance"
	IndustryShippingLogistics Industry = "Shipping & Logistics"
	IndustryRealEstate        Industry = "Real Estate"
	IndustryHospitality       Industry = "Hotels & Hospitality"
	IndustryTechnology        Industry = "Technology"
	IndustryHealthcare        Industry = "Healthcare"
	IndustryRetail            Industry = "Retail"
	IndustryManufacturing     Industry = "Manufacturing"
	IndustryEducation         Industry = "Education"
	IndustryConsulting        Industry = "Consulting"
	IndustryLegal             Industry = "Legal"
	IndustryMarketing         Industry = "Marketing & Advertising"
)

// Industries 所有支持的行业
var Industries = []Industry{
	IndustryBankingFinance, IndustryShippingLogistics, IndustryRealEstate, IndustryHospitality,
	IndustryTechnology, IndustryHealthcare, IndustryRetail, IndustryManufacturing,
	IndustryEducation, IndustryConsulting, IndustryLegal, IndustryMarketing,
}

// ConversationPartner 用户工作中沟通的对象类别
type ConversationPartner string

const (
	PartnerClients          ConversationPartner = "Clients"
	PartnerCustomers        ConversationPartner = "Customers"
	PartnerColleagues       ConversationPartner = "Colleagues"
	PartnerSuppliers        ConversationPartner = "Suppliers"
	PartnerPartners         ConversationPartner = "Partners"
	PartnerSeniorManagement ConversationPartner = "Senior Management"
	PartnerStakeholders     ConversationPartner = "Stakeholders"
	PartnerOther            ConversationPartner = "Other"
)

// ConversationPartners 所有沟通对象，顺序决定逐个收集场景时的先后
var ConversationPartners = []ConversationPartner{
	PartnerClients, PartnerCustomers, PartnerColleagues, PartnerSuppliers,
	PartnerPartners, PartnerSeniorManagement, PartnerStakeholders, PartnerOther,
}

// ConversationSituation 沟通场景
type ConversationSituation string

const (
	SituationInterviews          ConversationSituation = "Interviews"
	SituationConflictResolution  ConversationSituation = "Conflict Resolution"
	SituationPhoneCalls          ConversationSituation = "Phone Calls"
	SituationOneOnOnes           ConversationSituation = "One-on-ones"
	SituationFeedbackSessions    ConversationSituation = "Feedback Sessions"
	SituationTeamDiscussions     ConversationSituation = "Team Discussions"
	SituationNegotiations        ConversationSituation = "Negotiations"
	SituationStatusUpdates       ConversationSituation = "Status Updates"
	SituationInformalChats       ConversationSituation = "Informal Chats"
	SituationBriefings           ConversationSituation = "Briefings"
	SituationMeetings            ConversationSituation = "Meetings"
	SituationPresentations       ConversationSituation = "Presentations"
	SituationTrainingSessions    ConversationSituation = "Training Sessions"
	SituationClientConversations ConversationSituation = "Client Conversations"
	SituationVideoConferences    ConversationSituation = "Video Conferences"
)

// ConversationSituations 所有沟通场景
var ConversationSituations = []ConversationSituation{
	SituationInterviews, SituationConflictResolution, SituationPhoneCalls, SituationOneOnOnes,
	SituationFeedbackSessions, SituationTeamDiscussions, SituationNegotiations, SituationStatusUpdates,
	SituationInformalChats, SituationBriefings, SituationMeetings, SituationPresentations,
	SituationTrainingSessions, SituationClientConversations, SituationVideoConferences,
}

func indexOf[T comparable](all []T, v T) int {
	for i, item := range all {
		if item == v {
			return i
		}
	}
	return -1
}

// Valid 判断是否为已知取值
func (l Language) Valid() bool { return indexOf(Languages, l) >= 0 }

func (i Industry) Valid() bool { return indexOf(Industries, i) >= 0 }

func (p ConversationPartner) Valid() bool { return indexOf(ConversationPartners, p) >= 0 }

func (s ConversationSituation) Valid() bool { return indexOf(ConversationSituations, s) >= 0 }

// ParseLanguage 解析母语，未知取值返回 ValidationError
func ParseLanguage(v string) (Language, error) {
	l := Language(v)
	if !l.Valid() {
		return "", newValidationError("native_language", "Please select a supported native language")
	}
	return l, nil
}

func ParseIndustry(v string) (Industry, error) {
	i := Industry(v)
	if !i.Valid() {
		return "", newValidationError("industry", "Please select a supported industry")
	}
	return i, nil
}

func ParsePartner(v string) (ConversationPartner, error) {
	p := ConversationPartner(v)
	if !p.Valid() {
		return "", newValidationError("partner", "Unknown conversation partner")
	}
	return p, nil
}

func ParseSituation(v string) (ConversationSituation, error) {
	s := ConversationSituation(v)
	if !s.Valid() {
		return "", newValidationError("situation", "Unknown conversation situation")
	}
	return s, nil
}

// toggle 在按 catalog 顺序排列的集合中加入或移除 v，返回新集合以及是否为移除
func toggle[T comparable](set []T, v T, catalog []T) ([]T, bool) {
	if i := indexOf(set, v); i >= 0 {
		out := make([]T, 0, len(set)-1)
		out = append(out, set[:i]...)
		return append(out, set[i+1:]...), true
	}

	out := make([]T, 0, len(set)+1)
	inserted := false
	pos := indexOf(catalog, v)
	for _, item := range set {
		if !inserted && indexOf(catalog, item) > pos {
			out = append(out, v)
			inserted = true
		}
		out = append(out, item)
	}
	if !inserted {
		out = append(out, v)
	}
	return out, false
}
