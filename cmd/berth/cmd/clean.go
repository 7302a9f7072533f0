package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var cleanForce bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the containers and delivery history",
	Long: "Removes the site's containers (running or not), wipes its delivery history,\n" +
		"and clears state files. Images are left to the engine's own housekeeping.",
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanForce, "force", false, "Skip confirmation prompt")
}

func runClean(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.Manifest()
	if err != nil {
		return diagnose(err)
	}

	if !cleanForce {
		fmt.Printf("⚠ This removes every %s container and deletes its delivery history. Continue? [y/N] ",
			m.Site.Name)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("cancelled")
			return nil
		}
	}

	out, err := a.Clean(cmd.Context())
	if err != nil {
		return diagnose(err)
	}

	for _, name := range out.Removed {
		fmt.Printf("⚓ container %s removed\n", name)
	}
	fmt.Printf("⚓ history wiped for %s\n", m.Site.Name)
	return nil
}
