package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the stopped site container",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	name, err := a.Start(cmd.Context())
	if err != nil {
		return diagnose(err)
	}
	fmt.Printf("⚓ %s started\n", name)
	return nil
}
