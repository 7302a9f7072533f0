package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusProbe bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show site status",
	Long: "Engine state for the container and image plus the latest build and release\n" +
		"on record. --probe additionally sends one HTTP request to the mapped port.",
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusProbe, "probe", false, "HTTP-probe the mapped port")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Status(cmd.Context())
	if err != nil {
		return diagnose(err)
	}
	fmt.Print(formatStatus(st))

	if statusProbe {
		switch {
		case st.Container == nil || !st.Container.Running:
			fmt.Print(statusLine("Probe:",
				fmt.Sprintf("%s✗ container not running%s", colorYellow, colorReset)))
		default:
			code, elapsed, err := a.Probe(cmd.Context(), st.Container.HostPort)
			if err != nil {
				fmt.Print(statusLine("Probe:",
					fmt.Sprintf("%s✗ %v%s", colorYellow, err, colorReset)))
			} else {
				fmt.Print(statusLine("Probe:",
					fmt.Sprintf("%s✓ HTTP %d%s in %s", colorGreen, code, colorReset,
						elapsed.Round(time.Millisecond))))
			}
		}
	}
	return nil
}
