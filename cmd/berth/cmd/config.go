package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reiken/berth/internal/app"
	"github.com/reiken/berth/internal/manifest"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	Long:  "Manifest values after defaulting, state paths, and engine reachability.",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.Manifest()
	if err != nil {
		return diagnose(err)
	}

	repo := m.Image.Repository
	if repo == "" {
		repo = fmt.Sprintf("%s(not set — local builds only)%s", colorGray, colorReset)
	}

	fmt.Printf("%s⚓ berth config%s\n", colorBold, colorReset)
	fmt.Print(statusLine("Site:", fmt.Sprintf("%s (%s/)", m.Site.Name, m.Site.Dir)))
	fmt.Print(statusLine("Root:", a.Root))
	fmt.Print(statusLine("DB:", a.Paths.DB))
	fmt.Print(statusLine("Base:", m.Image.Base))
	fmt.Print(statusLine("Repository:", repo))
	fmt.Print(statusLine("Container:", fmt.Sprintf("%s on localhost:%d", m.Run.Name, m.Run.HostPort)))
	fmt.Print(statusLine("Auth:", authStrategy(m)))
	fmt.Print(statusLine("Engine:", engineStatus(cmd.Context(), a)))
	return nil
}

// authStrategy names the credential source the manifest selects. Values are
// never shown, only where they come from.
func authStrategy(m *manifest.Manifest) string {
	switch {
	case m.Registry.ECR != nil:
		return fmt.Sprintf("ecr (region %s, AWS default chain)", m.Registry.ECR.Region)
	case m.Registry.Username != "":
		return fmt.Sprintf("static (user %s, password from $%s)", m.Registry.Username, m.Registry.PasswordEnv)
	default:
		return "keychain (docker login state)"
	}
}

// engineStatus pings the engine with a short deadline so config stays fast
// when no daemon is up.
func engineStatus(ctx context.Context, a *app.App) string {
	eng, err := a.Engine()
	if err != nil {
		return fmt.Sprintf("%s✗ %v%s", colorYellow, err, colorReset)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	info, err := eng.Ping(ctx)
	if err != nil {
		return fmt.Sprintf("%s✗ not reachable%s (is docker running?)", colorYellow, colorReset)
	}
	return fmt.Sprintf("%s✓ %s%s (api %s)", colorGreen, info.OSType, colorReset, info.APIVersion)
}
