package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var previewWatch bool

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview the site without the engine",
	Long: "Serves the site directory straight from disk on localhost.\n" +
		"--watch reloads open pages when files change.",
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&previewWatch, "watch", false, "Reload open pages on file changes")
}

func runPreview(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.StartPreview(previewWatch)
	if err != nil {
		return diagnose(err)
	}

	fmt.Printf("%s⚓ preview%s at %s%s%s (Ctrl-C to stop)\n",
		colorBold, colorReset, colorCyan, p.Server.URL(), colorReset)
	if previewWatch {
		fmt.Println("  watching for changes — open pages reload on save")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\n⚓ preview stopped")
	p.Stop()
	return nil
}
