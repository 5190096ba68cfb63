// Package migrations embeds the SQL schema migrations.
//
//   - local: the device store (habits, completions, moods, outbox)
//   - sqlite, postgres: the server store (per-user entities and the
//     idempotency ledger) for each supported backend
package migrations

import "embed"

//go:embed local/*.sql sqlite/*.sql postgres/*.sql
var FS embed.FS
