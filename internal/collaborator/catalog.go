package collaborator

import (
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"FluentPro/internal/onboarding"
)

// AnyIndustry 跨行业角色的行业标记
const AnyIndustry = "Any"

//go:embed catalog.yaml
var defaultCatalog []byte

// 角色 ID 由标题派生，重启后保持不变
var roleNamespace = uuid.MustParse("6f1c2a58-3d7e-4b0a-9a51-2f6d8c1e4b77")

type catalogRole struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	Description    string   `yaml:"description"`
	Industry       string   `yaml:"industry"`
	HierarchyLevel string   `yaml:"hierarchy_level"`
	CommonTasks    []string `yaml:"common_tasks"`
}

type catalogCourse struct {
	ID                 string   `yaml:"id"`
	Name               string   `yaml:"name"`
	Description        string   `yaml:"description"`
	Level              string   `yaml:"level"`
	EstimatedDuration  string   `yaml:"estimated_duration"`
	Rating             float64  `yaml:"rating"`
	TargetSkills       []string `yaml:"target_skills"`
	FunctionalLanguage []string `yaml:"functional_language"`
}

// Catalog 本地角色和课程目录
type Catalog struct {
	Roles            []catalogRole   `yaml:"roles"`
	Courses          []catalogCourse `yaml:"courses"`
	CustomCourseWait string          `yaml:"custom_course_wait"`
}

// DefaultCatalog 返回内置目录
func DefaultCatalog() (*Catalog, error) {
	return parseCatalog(defaultCatalog)
}

// LoadCatalog 从文件系统读取目录，path 为空时返回内置目录
func LoadCatalog(fs afero.Fs, path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for i := range c.Roles {
		r := &c.Roles[i]
		if r.Title == "" {
			return nil, fmt.Errorf("parse catalog: role %d has no title", i)
		}
		if r.ID == "" {
			r.ID = uuid.NewSHA1(roleNamespace, []byte(r.Title)).String()
		}
	}
	for i, course := range c.Courses {
		if course.ID == "" || course.Name == "" {
			return nil, fmt.Errorf("parse catalog: course %d needs id and name", i)
		}
	}
	if c.CustomCourseWait == "" {
		c.CustomCourseWait = "24-48 hours"
	}

	return &c, nil
}

func (r catalogRole) candidate(score float64) onboarding.RoleCandidate {
	return onboarding.RoleCandidate{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Industry:        r.Industry,
		HierarchyLevel:  r.HierarchyLevel,
		CommonTasks:     append([]string(nil), r.CommonTasks...),
		ConfidenceScore: score,
	}
}

func (c catalogCourse) course() onboarding.Course {
	return onboarding.Course{
		ID:                 c.ID,
		Name:               c.Name,
		Description:        c.Description,
		Level:              c.Level,
		EstimatedDuration:  c.EstimatedDuration,
		Rating:             c.Rating,
		TargetSkills:       append([]string(nil), c.TargetSkills...),
		FunctionalLanguage: append([]string(nil), c.FunctionalLanguage...),
	}
}
