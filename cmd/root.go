package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "llm-fleet",
	Short: "Model fleet provisioner for the chat platform",
	Long: `llm-fleet provisions the fleet of LLM inference endpoints backing the chat
platform. It resolves a declarative list of model ids against a fixed catalog,
deploys one KServe InferenceService per model, publishes a registry document
the serving layer uses to route requests, and optionally installs recurring
start/stop triggers so idle endpoints are scaled to zero outside working hours.

All functionality is also exposed via an MCP server ('llm-fleet serve').`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

var (
	buildCommit = "unknown"
	buildDate   = "unknown"
)

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// SetBuildInfo sets the commit and build date for the version command.
func SetBuildInfo(commit, date string) {
	buildCommit = commit
	buildDate = date
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "llm-fleet version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newRegistryCmd())
	rootCmd.AddCommand(newTeardownCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newServeCmd())

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("kubeconfig", "", "Path to kubeconfig file")
	rootCmd.PersistentFlags().Bool("in-cluster", false, "Use in-cluster Kubernetes authentication")
	rootCmd.PersistentFlags().StringP("namespace", "n", "llm-fleet", "Kubernetes namespace for fleet resources")
}
