package web

import (
	"embed"
	"io/fs"
)

//go:embed all:migrations
var content embed.FS

func MigrationsFS() fs.FS {
	return content
}
