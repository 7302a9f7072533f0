package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show delivery history",
	Long:  "Builds, runs, and releases on record for this site, newest first.",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Most recent n records (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.Manifest()
	if err != nil {
		return diagnose(err)
	}
	store, err := a.Store()
	if err != nil {
		return diagnose(err)
	}

	entries, err := store.History(m.Site.Name, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("⚓ no history yet — berth build is the first step")
		return nil
	}

	fmt.Print(formatHistory(entries))
	return nil
}
