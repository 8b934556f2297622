package repository

import (
	"fmt"

	"gorm.io/gen"

	"FluentPro/internal/model"
	"FluentPro/storage/database"
)

// 以下接口供 cmd/gen 生成类型安全的查询代码（输出到 internal/repository/query）

// UserQuerier 用户查询接口
type UserQuerier interface {
	// GetByEmail 根据邮箱查询用户
	//
	// SELECT * FROM @@table WHERE email = @email LIMIT 1
	GetByEmail(email string) (*gen.T, error)

	// GetByPublicID 根据 PublicID 查询用户（API 中 userID 是 public_id）
	//
	// SELECT * FROM @@table WHERE public_id = @publicID LIMIT 1
	GetByPublicID(publicID int64) (*gen.T, error)

	// CountByOnboardingStatus 各引导状态的用户数
	//
	// SELECT onboarding_status, COUNT(*) AS total FROM @@table
	// WHERE deleted_at IS NULL
	// GROUP BY onboarding_status
	CountByOnboardingStatus() ([]gen.M, error)
}

// OnboardingSessionQuerier 会话快照查询接口
type OnboardingSessionQuerier interface {
	// GetByUserID 根据用户查询会话
	//
	// SELECT * FROM @@table WHERE user_id = @userID LIMIT 1
	GetByUserID(userID int64) (*gen.T, error)

	// ListStale 长时间未推进的会话
	//
	// SELECT * FROM @@table
	// WHERE phase <> 'onboarding_complete' AND updated_at < NOW() - (@hours || ' hours')::interval
	// ORDER BY updated_at ASC
	// LIMIT @limit
	ListStale(hours int, limit int) ([]*gen.T, error)
}

// UserPartnerSituationQuerier 沟通对象查询接口
type UserPartnerSituationQuerier interface {
	// ListByUserID 按选择次序返回用户的沟通对象
	//
	// SELECT * FROM @@table WHERE user_id = @userID ORDER BY priority ASC
	ListByUserID(userID int64) ([]*gen.T, error)
}

// CourseRecommendationQuerier 课程推荐查询接口
type CourseRecommendationQuerier interface {
	// ListGenerating 仍在等待定制课程的记录
	//
	// SELECT * FROM @@table WHERE status = 'generating' ORDER BY updated_at ASC LIMIT @limit
	ListGenerating(limit int) ([]*gen.T, error)
}

// Generate 根据模型和 Querier 注释生成类型安全的查询代码到 outPath
func Generate(outPath string) error {
	if err := database.Init(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	db := database.DB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           outPath,
		ModelPkgPath:      "FluentPro/internal/model",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface | gen.WithoutContext,
		FieldNullable:     true,
		FieldCoverable:    false,
		FieldSignable:     false,
		FieldWithIndexTag: false,
		FieldWithTypeTag:  true,
	})

	g.UseDB(db)

	g.ApplyBasic(
		&model.User{},
		&model.OnboardingSession{},
		&model.UserPartnerSituation{},
		&model.CourseRecommendation{},
	)

	g.ApplyInterface(func(UserQuerier) {}, &model.User{})
	g.ApplyInterface(func(OnboardingSessionQuerier) {}, &model.OnboardingSession{})
	g.ApplyInterface(func(UserPartnerSituationQuerier) {}, &model.UserPartnerSituation{})
	g.ApplyInterface(func(CourseRecommendationQuerier) {}, &model.CourseRecommendation{})

	g.Execute()

	return nil
}
