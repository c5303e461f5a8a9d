// migrations содержит SQL-миграции PostgreSQL (goose), встроенные в бинарник.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
