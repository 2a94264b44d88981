// Package cli provides the command-line interface for LeapExtract.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapextract/internal/cli/commands"
	"github.com/leapstack-labs/leapextract/internal/cli/output"
	"github.com/leapstack-labs/leapextract/internal/config"

	// Register adapters and the dialects they do not import themselves.
	_ "github.com/leapstack-labs/leapextract/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapextract/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapextract/pkg/adapters/sqlite"
	_ "github.com/leapstack-labs/leapextract/pkg/dialects/ansi"
	_ "github.com/leapstack-labs/leapextract/pkg/dialects/oracle"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// skipConfig lists commands that run without loading configuration.
var skipConfig = map[string]bool{
	"help":       true,
	"completion": true,
	"__complete": true,
	"version":    true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "leapextract",
		Short: "LeapExtract - Fishery Data Extraction Engine",
		Long: `LeapExtract extracts fishery observation data into standard exchange
formats (RDB, COST, ...) and aggregated products.

Each format is a set of sheets rendered from SQL templates, filtered at run
time and written as tables in the target database.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipConfig[cmd.Name()] {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			logger.Debug("configuration loaded",
				slog.String("project_root", cfg.ProjectRoot),
				slog.String("target", cfg.Target.Type),
				slog.String("dialect", cfg.DialectName()),
				slog.String("state", cfg.StatePath))

			cmd.SetContext(commands.WithRuntime(cmd.Context(), &commands.Runtime{
				Config: cfg,
				Logger: logger,
				Out:    output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
			}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./leapextract.yaml, searched upward)")
	flags.String("env", "", "Environment overriding the target (e.g., staging, prod)")
	flags.String("target-type", "", "Target database type (duckdb|postgres|sqlite)")
	flags.String("database", "", "Target database (file path for duckdb and sqlite)")
	flags.String("schema", "", "Target schema")
	flags.String("dialect", "", "SQL dialect overriding the target type (e.g., oracle)")
	flags.String("state", "", "Path to state database")
	flags.Bool("keep-failed", false, "Keep the tables of failed extractions")
	flags.Int64("max-jobs", 0, "Maximum extractions running at once")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (auto|table|json|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "table", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("target-type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"duckdb", "postgres", "sqlite"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewFormatsCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewJobsCommand())
	rootCmd.AddCommand(commands.NewProductsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for LeapExtract.

To load completions:

Bash:
  $ source <(leapextract completion bash)

Zsh:
  $ leapextract completion zsh > "${fpath[1]}/_leapextract"

Fish:
  $ leapextract completion fish | source

PowerShell:
  PS> leapextract completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
