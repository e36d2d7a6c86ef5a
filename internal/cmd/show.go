package cmd

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/akave-ai/frontlog/internal/config"
	"github.com/akave-ai/frontlog/internal/service"
	"github.com/akave-ai/frontlog/internal/storage"
)

func newShowCmd() *cobra.Command {
	var date, level, logDir string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a day's log file",
		Example: `  frontlog show
  frontlog show --date 2024-01-01 --level error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if logDir != "" {
				cfg.Storage.LogDir = logDir
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}

			svc := service.NewLogService(store, zerolog.Nop())
			data, err := svc.Retrieve(cmd.Context(), date, level)
			if errors.Is(err, service.ErrNotFound) {
				return fmt.Errorf("no log file for date=%q level=%q in %s", date, level, store.Dir())
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "day to print, YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&level, "level", "l", service.AllLevels, "level file to print, or all")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "log directory (overrides storage.log_dir)")
	return cmd
}

func openStore(cfg *config.Config) (*storage.FileStore, error) {
	dirMode, err := cfg.Storage.DirMode()
	if err != nil {
		return nil, err
	}
	fileMode, err := cfg.Storage.FileMode()
	if err != nil {
		return nil, err
	}
	return storage.NewFileStore(cfg.Storage.LogDir, dirMode, fileMode)
}
