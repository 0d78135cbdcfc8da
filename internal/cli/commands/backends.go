package commands

import (
	"github.com/leapstack-labs/leapsense/internal/cli/config"
	"github.com/leapstack-labs/leapsense/internal/cli/output"
	"github.com/leapstack-labs/leapsense/pkg/analysis"
	"github.com/spf13/cobra"
)

// NewBackendsCommand creates the backends command.
func NewBackendsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List registered analyzer backends",
		Long: `List the analyzer backends compiled into this binary.

The active backend is selected with --backend or "backend" in leapsense.yaml.

Use --output to override: auto, text, markdown, json, yaml`,
		Example: `  # List backends
  leapsense backends

  # List backends as JSON
  leapsense backends --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackends(cmd)
		},
	}

	return cmd
}

func runBackends(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	infos := make([]output.BackendInfo, 0)
	for _, name := range analysis.ListBackends() {
		infos = append(infos, output.BackendInfo{
			Name:    name,
			Default: name == config.DefaultBackend,
			Active:  name == cmdCtx.Cfg.Backend,
		})
	}

	if handled, err := r.Structured(infos); handled {
		return err
	}

	if len(infos) == 0 {
		r.Warning("No backends registered")
		return nil
	}

	r.Header(1, "Backends")
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{info.Name, yesNo(info.Default), yesNo(info.Active)})
	}
	r.Table([]string{"Name", "Default", "Active"}, rows)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
