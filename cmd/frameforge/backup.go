package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oxbowmantella/frameforge/internal/backup"
	"github.com/oxbowmantella/frameforge/internal/config"
	"github.com/oxbowmantella/frameforge/internal/version"
)

var (
	backupOutput string

	restoreInput   string
	restoreDataDir string
	restoreForce   bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive the build database and config file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		out := backupOutput
		if out == "" {
			out = fmt.Sprintf("frameforge-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
		}
		m, err := backup.Backup(cmd.Context(), cfg.GetString("database.path"), configPath, out)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s (database %s", out, m.Database)
		if m.Config != "" {
			fmt.Fprintf(cmd.OutOrStdout(), ", config %s", m.Config)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ")")
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a backup archive into a data directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := backup.Restore(cmd.Context(), restoreInput, restoreDataDir, restoreForce)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restore complete: %s from FrameForge %s (%s) restored to %s\n",
			m.Database, m.Version, m.CreatedAt.Format(time.RFC3339), restoreDataDir)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Info())
	},
}

func init() {
	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "output file (default frameforge-backup-<timestamp>.tar.gz)")

	restoreCmd.Flags().StringVarP(&restoreInput, "input", "i", "", "backup archive to restore")
	restoreCmd.Flags().StringVar(&restoreDataDir, "data-dir", ".", "target directory for restored files")
	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "overwrite existing files")
	_ = restoreCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(backupCmd, restoreCmd, versionCmd)
}
