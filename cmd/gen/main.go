package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"FluentPro/internal/repository"
	"FluentPro/pkg/logger"
	"FluentPro/storage/database"
)

func main() {
	logger.Init()
	defer logger.Sync()

	var out string
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate gorm/gen query code for the onboarding models",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = database.Close(cmd.Context()) }()
			if err := repository.Generate(out); err != nil {
				return err
			}
			logger.Logger.Info("Code generation completed", zap.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "./internal/repository/query", "output directory")

	if err := cmd.Execute(); err != nil {
		logger.Logger.Error("Failed to generate code", zap.Error(err))
		os.Exit(1)
	}
}
