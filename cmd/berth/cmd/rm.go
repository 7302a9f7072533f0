package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmForce bool

var rmCmd = &cobra.Command{
	Use:   "rm",
	Short: "Remove the site container",
	RunE:  runRm,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "Remove even while running")
}

func runRm(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	name, err := a.Remove(cmd.Context(), rmForce)
	if err != nil {
		return diagnose(err)
	}
	fmt.Printf("⚓ %s removed\n", name)
	return nil
}
