package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/dustin/go-humanize"

	"github.com/reiken/berth/internal/app"
	"github.com/reiken/berth/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorCyan    = "\033[36m"
	colorMagenta = "\033[35m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorGray    = "\033[90m"
)

// ago renders a timestamp docker-style: "3 hours ago".
func ago(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return units.HumanDuration(time.Since(t)) + " ago"
}

// shortDigest truncates "sha256:9f86d081..." to the first 12 hex characters.
func shortDigest(d string) string {
	if i := strings.IndexByte(d, ':'); i >= 0 && len(d) > i+13 {
		return d[i+1 : i+13]
	}
	return d
}

func printBuildOutcome(out *app.BuildOutcome) {
	for _, w := range out.Warnings {
		fmt.Printf("%s⚠ %s%s\n", colorYellow, w, colorReset)
	}
	fmt.Printf("%s⚓ built %s%s (%d files, %s, %s)\n",
		colorBold, out.Ref, colorReset,
		out.Files, humanize.Bytes(uint64(out.ContextBytes)),
		out.Duration.Round(time.Millisecond))
}

func printPushOutcome(out *app.PushOutcome) {
	fmt.Printf("%s⚓ pushed %s%s [%s]\n",
		colorBold, out.Repository, colorReset, strings.Join(out.Tags, ", "))
	fmt.Printf("  digest: %s%s%s (verified, auth: %s)\n",
		colorGray, out.Digest, colorReset, out.Auth)
}

func statusLine(label, value string) string {
	return fmt.Sprintf("  %-13s %s\n", label, value)
}

// formatStatus renders the status block:
//
//	⚓ landing
//	  Container:    ✓ running (started 3 hours ago)
//	  Ports:        localhost:8080 → container 80
//	  Image:        landing:4f2d9a81c3e7 (24 MB, created 3 hours ago)
//	  Last build:   landing:4f2d9a81c3e7 (3 files, 2 hours ago)
//	  Last release: ghcr.io/acme/landing [4f2d9a81c3e7, latest] (2 days ago)
func formatStatus(st *app.SiteStatus) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚓ %s%s\n", colorBold, st.Site, colorReset))

	switch {
	case st.Container == nil:
		sb.WriteString(statusLine("Container:",
			fmt.Sprintf("%s✗ not created%s (run: berth run)", colorYellow, colorReset)))
	case st.Container.Running:
		sb.WriteString(statusLine("Container:",
			fmt.Sprintf("%s✓ running%s (started %s)", colorGreen, colorReset, ago(st.Container.StartedAt))))
		sb.WriteString(statusLine("Ports:",
			fmt.Sprintf("localhost:%d → container %d", st.Container.HostPort, st.Container.ContainerPort)))
	default:
		sb.WriteString(statusLine("Container:",
			fmt.Sprintf("%s✗ %s%s (run: berth start)", colorYellow, st.Container.Status, colorReset)))
	}

	switch {
	case st.Image != nil:
		sb.WriteString(statusLine("Image:",
			fmt.Sprintf("%s (%s, created %s)", st.ImageRef,
				humanize.Bytes(uint64(st.Image.Size)), ago(st.Image.Created))))
	case st.ImageRef != "":
		sb.WriteString(statusLine("Image:",
			fmt.Sprintf("%s✗ %s not built%s (run: berth build)", colorYellow, st.ImageRef, colorReset)))
	}

	if st.LastBuild != nil {
		sb.WriteString(statusLine("Last build:",
			fmt.Sprintf("%s (%d files, %s)", st.LastBuild.Ref, st.LastBuild.Files, ago(st.LastBuild.At))))
	}
	if r := st.LastRelease; r != nil {
		sb.WriteString(statusLine("Last release:",
			fmt.Sprintf("%s [%s] %s(%s)%s", r.Repository, strings.Join(r.Tags, ", "),
				colorGray, ago(r.At), colorReset)))
	}
	return sb.String()
}

// formatHistory renders mixed history records, newest first:
//
//	⚓ 3 records
//	  2026-08-25 14:09  release  ghcr.io/acme/landing [4f2d9a81c3e7, latest] @ 9f86d0818a3f
//	  2026-08-25 14:05  run      landing on :8080
//	  2026-08-25 14:03  build    landing:4f2d9a81c3e7 (3 files, 14 kB, 1.2s)
func formatHistory(entries []ports.HistoryEntry) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚓ %d records%s\n", colorBold, len(entries), colorReset))

	for _, e := range entries {
		var detail string
		switch {
		case e.Build != nil:
			b := e.Build
			detail = fmt.Sprintf("%sbuild%s    %s (%d files, %s, %s)",
				colorCyan, colorReset, b.Ref, b.Files,
				humanize.Bytes(uint64(b.ContextBytes)),
				time.Duration(b.DurationMs)*time.Millisecond)
		case e.Run != nil:
			detail = fmt.Sprintf("%srun%s      %s on :%d",
				colorGreen, colorReset, e.Run.Container, e.Run.HostPort)
		case e.Release != nil:
			r := e.Release
			detail = fmt.Sprintf("%srelease%s  %s [%s] @ %s",
				colorMagenta, colorReset, r.Repository,
				strings.Join(r.Tags, ", "), shortDigest(r.Digest))
		}
		sb.WriteString(fmt.Sprintf("  %s%s%s  %s\n",
			colorGray, e.At.Local().Format("2006-01-02 15:04"), colorReset, detail))
	}
	return sb.String()
}
