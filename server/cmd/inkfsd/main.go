// Command inkfsd is the inkfs metadata/content server: it exposes the HTTP
// surface of spec §6 backed by a relational metadata store and a
// content-addressed blob store.
package main

import (
	"fmt"
	"os"

	"github.com/inkfs/inkfs/server/cmd/inkfsd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
