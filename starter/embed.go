// Package starter embeds the files `berth init` writes into a fresh
// workspace: the manifest template, a two-page site, and a GitHub Actions
// workflow that releases on push.
//
// Usage:
//
//	data, err := starter.FS.ReadFile("templates/404.html")
package starter

import "embed"

//go:embed templates
var FS embed.FS
