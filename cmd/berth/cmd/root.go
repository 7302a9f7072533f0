package cmd

import (
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/reiken/berth/internal/app"
)

var (
	dirFlag   string
	debugFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "berth",
	Short: "berth — ship a static site as an NGINX container",
	Long: "Builds a single-site NGINX image from a manifest, runs it locally,\n" +
		"and pushes commit-tagged releases to a container registry.",
	SilenceUsage: true,
}

// newApp wires an App for the workspace selected by --dir. Callers own Close.
func newApp() (*app.App, error) {
	return app.New(app.Config{Dir: dirFlag, Debug: debugFlag})
}

// binaryVersion reads the module version the toolchain stamped into the
// binary, so `go install` builds report a real version without linker flags.
func binaryVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = binaryVersion()
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", ".", "Workspace directory (holds berth.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Structured debug logs on stderr")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(previewCmd)
}
