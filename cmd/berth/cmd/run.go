package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runSync bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the site container",
	Long: "Creates and starts the container with the manifest's port mapping.\n" +
		"--sync keeps the running container's web root in step with site edits.",
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runSync, "sync", false, "Live-sync site edits into the running container")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.Run(cmd.Context())
	if err != nil {
		return diagnose(err)
	}

	fmt.Printf("%s⚓ %s running%s at %s%s%s\n",
		colorBold, out.Container, colorReset, colorCyan, out.URL, colorReset)
	fmt.Printf("  image: %s\n", out.Image)

	if !runSync {
		return nil
	}

	sess, err := a.StartSync(cmd.Context(), func(path string, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s⚠ sync %s: %v%s\n", colorYellow, path, err, colorReset)
			return
		}
		fmt.Printf("  %ssynced%s %s\n", colorGreen, colorReset, path)
	})
	if err != nil {
		return diagnose(err)
	}

	fmt.Println("⚓ live sync on — edit the site, reload the page (Ctrl-C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\n⚓ sync stopped (container keeps running)")
	sess.Stop()
	return nil
}
