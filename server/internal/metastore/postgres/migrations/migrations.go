// Package migrations embeds the SQL migration files for the inkfs schema
// (spec §3) so they ship inside the inkfsd binary.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql migration file.
//
//go:embed *.sql
var FS embed.FS
