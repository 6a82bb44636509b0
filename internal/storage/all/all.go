// Package all links in every sink backend. Binaries that want
// configuration-driven backend selection blank-import this package.
package all

import (
	_ "github.com/Smart-Speaker/sf-data-service/internal/storage/mssql"
	_ "github.com/Smart-Speaker/sf-data-service/internal/storage/postgres"
	_ "github.com/Smart-Speaker/sf-data-service/internal/storage/sqlite"
)
