package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/reiken/berth/internal/app"
)

var (
	buildNoCache bool
	buildPull    bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the site image",
	Long: "Assembles the build context from the manifest, streams it to the container\n" +
		"engine, and tags the image with the commit-derived tag.",
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "Build without layer cache")
	buildCmd.Flags().BoolVar(&buildPull, "pull", false, "Always pull a newer base image")
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.Build(cmd.Context(), app.BuildRequest{
		NoCache:  buildNoCache,
		Pull:     buildPull,
		Progress: os.Stdout,
	})
	if err != nil {
		return diagnose(err)
	}

	printBuildOutcome(out)
	return nil
}
