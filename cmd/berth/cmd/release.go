package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/reiken/berth/internal/app"
)

var (
	releaseTag     string
	releaseNoCache bool
	releasePull    bool
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Build, push, and verify in one step",
	Long: "The CI entrypoint: builds the image for the current commit, pushes the\n" +
		"derived tags, verifies the registry digests, and records the release.",
	RunE: runRelease,
}

func init() {
	releaseCmd.Flags().StringVar(&releaseTag, "tag", "", "Override the commit-derived tag")
	releaseCmd.Flags().BoolVar(&releaseNoCache, "no-cache", false, "Build without layer cache")
	releaseCmd.Flags().BoolVar(&releasePull, "pull", false, "Always pull a newer base image")
}

func runRelease(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	build, push, err := a.Release(cmd.Context(), app.ReleaseRequest{
		Tag:      releaseTag,
		NoCache:  releaseNoCache,
		Pull:     releasePull,
		Progress: os.Stdout,
	})
	if build != nil {
		printBuildOutcome(build)
	}
	if err != nil {
		if isAuthError(err) {
			return diagnoseAuth(err)
		}
		return diagnose(err)
	}

	printPushOutcome(push)
	return nil
}
