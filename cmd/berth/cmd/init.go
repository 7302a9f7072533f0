package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reiken/berth/internal/app"
)

var (
	initCI         bool
	initDockerfile bool
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Scaffold a site workspace",
	Long: "Writes berth.yaml and a starter site/. Existing files are never overwritten,\n" +
		"so init can fill in the gaps of a half-scaffolded workspace.",
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initCI, "ci", false, "Also write the GitHub Actions release workflow")
	initCmd.Flags().BoolVar(&initDockerfile, "dockerfile", false, "Materialize the generated Dockerfile for editing")
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	req := app.ScaffoldRequest{CI: initCI, Dockerfile: initDockerfile}
	if len(args) > 0 {
		req.Name = args[0]
	}

	out, err := a.Scaffold(req)
	if err != nil {
		return err
	}

	fmt.Printf("%s⚓ scaffolded %s%s\n", colorBold, out.Name, colorReset)
	for _, f := range out.Created {
		fmt.Printf("  %screated%s  %s\n", colorGreen, colorReset, f)
	}
	for _, f := range out.Skipped {
		fmt.Printf("  %sskipped%s  %s %s(exists)%s\n", colorYellow, colorReset, f, colorGray, colorReset)
	}

	fmt.Printf("\nNext:\n")
	fmt.Printf("  berth build\n")
	fmt.Printf("  berth run\n")
	if initCI {
		fmt.Printf("\nThe workflow needs repository secrets before it can push:\n")
		fmt.Printf("  AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY (or your registry's equivalent)\n")
		fmt.Printf("  and image.repository filled in berth.yaml\n")
	}
	return nil
}
