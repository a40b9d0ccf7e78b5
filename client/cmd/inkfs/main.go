// Command inkfs mounts the remote inkfs tree as a local FUSE filesystem
// (spec §3).
package main

import (
	"fmt"
	"os"

	"github.com/inkfs/inkfs/client/cmd/inkfs/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
