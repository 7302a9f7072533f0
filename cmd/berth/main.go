// berth ships a static site as an NGINX container.
// One manifest, one image, one container — build, run, push, release.
package main

import (
	"os"

	"github.com/reiken/berth/cmd/berth/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
