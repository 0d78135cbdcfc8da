package commands

import (
	"os"

	"github.com/leapstack-labs/leapsense/internal/cli/config"
	"github.com/leapstack-labs/leapsense/internal/lsp"
	"github.com/spf13/cobra"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for editor integration.

The server communicates over stdin/stdout using JSON-RPC.
Each open document gets its own analysis session. Include paths and
compile flags come from leapsense.yaml at the client's workspace root.`,
		Example: `  # Start LSP server (usually called by an editor)
  leapsense lsp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLSP(cmd)
		},
	}

	return cmd
}

func runLSP(cmd *cobra.Command) error {
	logger := config.GetLogger(cmd.Context())
	server := lsp.NewServerWithLogger(os.Stdin, os.Stdout, logger)
	return server.Run()
}
