package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the site container",
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	name, err := a.Stop(cmd.Context())
	if err != nil {
		return diagnose(err)
	}
	fmt.Printf("⚓ %s stopped\n", name)
	return nil
}
