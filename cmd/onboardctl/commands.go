package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"FluentPro/config"
	"FluentPro/internal/collaborator"
	"FluentPro/internal/onboarding"
)

// rootFlags 所有子命令共用的参数
type rootFlags struct {
	provider string
	timeout  time.Duration
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "onboardctl",
		Short: "Call the role matcher and course recommender used by onboarding",
		Long: `onboardctl sends the same requests the onboarding flow sends to its
collaborators, so a provider can be checked without walking through the app.

Examples:
  onboardctl match --title "Financial Analyst" --industry "Banking & Finance"
  onboardctl recommend --industry "Technology" --need "Clients: Meetings"
  onboardctl catalog --file ./catalog.yaml`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.provider, "provider", config.Cfg.CollaboratorProvider, "collaborator provider (mock, http)")
	cmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", config.Cfg.OnboardingCallTimeout, "timeout for each call")

	cmd.AddCommand(
		newMatchCmd(flags),
		newRecommendCmd(flags),
		newCatalogCmd(),
	)
	return cmd
}

func (f *rootFlags) collaborators() (collaborator.Set, error) {
	cfg := config.Cfg
	cfg.CollaboratorProvider = f.provider
	return collaborator.New(&cfg)
}

func (f *rootFlags) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}

func newMatchCmd(root *rootFlags) *cobra.Command {
	var title, description, industry string

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match a job title against the role catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ind, err := onboarding.ParseIndustry(industry)
			if err != nil {
				return err
			}
			set, err := root.collaborators()
			if err != nil {
				return err
			}

			ctx, cancel := root.callContext(cmd.Context())
			defer cancel()
			candidates, err := set.RoleMatcher.MatchRoles(ctx, onboarding.RoleQuery{
				Title:       title,
				Description: description,
				Industry:    ind,
			})
			if err != nil {
				return fmt.Errorf("match roles: %w", err)
			}
			if candidates == nil {
				candidates = []onboarding.RoleCandidate{}
			}
			return writeJSON(cmd.OutOrStdout(), candidates)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "job title")
	cmd.Flags().StringVar(&description, "description", "", "job description")
	cmd.Flags().StringVar(&industry, "industry", "", "industry, one of the catalog industries")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("industry")
	return cmd
}

func newRecommendCmd(root *rootFlags) *cobra.Command {
	var (
		roleID   string
		industry string
		language string
		needs    []string
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Request course recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ind, err := onboarding.ParseIndustry(industry)
			if err != nil {
				return err
			}
			q := onboarding.CourseQuery{Industry: ind, IdentifiedNeeds: needs}
			if q.IdentifiedNeeds == nil {
				q.IdentifiedNeeds = []string{}
			}
			if roleID != "" {
				q.RoleID = &roleID
			}
			if language != "" {
				if q.NativeLanguage, err = onboarding.ParseLanguage(language); err != nil {
					return err
				}
			}

			set, err := root.collaborators()
			if err != nil {
				return err
			}

			ctx, cancel := root.callContext(cmd.Context())
			defer cancel()
			rec, err := set.CourseRecommender.RecommendCourses(ctx, q)
			if err != nil {
				return fmt.Errorf("recommend courses: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Outcome onboarding.CourseOutcome `json:"outcome"`
				onboarding.CourseRecommendation
			}{rec.Outcome(), rec})
		},
	}

	cmd.Flags().StringVar(&roleID, "role-id", "", "matched role id, empty for a custom role")
	cmd.Flags().StringVar(&industry, "industry", "", "industry, one of the catalog industries")
	cmd.Flags().StringVar(&language, "language", "", "native language")
	cmd.Flags().StringArrayVar(&needs, "need", nil, `identified need as "Partner: Situation", repeatable`)
	_ = cmd.MarkFlagRequired("industry")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate a mock catalog file and print it, or print the built-in one",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := collaborator.LoadCatalog(afero.NewOsFs(), file)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(catalog)
		},
	}

	cmd.Flags().StringVar(&file, "file", config.Cfg.MockCatalogPath, "catalog yaml, empty for the built-in catalog")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
