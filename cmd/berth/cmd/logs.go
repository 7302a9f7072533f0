package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/reiken/berth/internal/ports"
)

var (
	logsFollow bool
	logsTail   int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show container logs",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Stream new log lines")
	logsCmd.Flags().IntVar(&logsTail, "tail", 0, "Only the last n lines (0 = all)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	opts := ports.LogOptions{Follow: logsFollow, Tail: logsTail}
	if err := a.Logs(cmd.Context(), opts, os.Stdout, os.Stderr); err != nil {
		return diagnose(err)
	}
	return nil
}
