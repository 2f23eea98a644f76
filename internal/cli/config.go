package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/flashtask/internal/config"
	"github.com/idilsaglam/flashtask/internal/ui"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage flashtask configuration",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var global, force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.ProjectConfigPath()
			if global {
				path = config.GlobalConfigPath()
			}
			if a.configPath != "" {
				path = a.configPath
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), "wrote "+path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&global, "global", false, "write ~/.flashtask/config.yaml instead of ./.flashtask/config.yaml")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the merged configuration",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			b, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("yaml marshal: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "# Merged configuration (defaults + global + project + env)")
			fmt.Fprint(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Global:  %s\n", config.GlobalConfigPath())
			fmt.Fprintf(cmd.OutOrStdout(), "Project: %s\n", config.ProjectConfigPath())
		},
	}

	cmd.AddCommand(initCmd, showCmd, pathCmd)
	return cmd
}
