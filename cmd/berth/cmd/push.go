package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/reiken/berth/internal/app"
)

var pushTag string

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the built image to the registry",
	Long: "Tags the local image for image.repository, uploads every derived tag, and\n" +
		"verifies each one against the registry before recording the release.",
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushTag, "tag", "", "Override the commit-derived tag")
}

func runPush(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.Push(cmd.Context(), app.PushRequest{Tag: pushTag, Progress: os.Stdout})
	if err != nil {
		if isAuthError(err) {
			return diagnoseAuth(err)
		}
		return diagnose(err)
	}

	printPushOutcome(out)
	return nil
}
