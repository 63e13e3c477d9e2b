package theme

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed themes
var embedded embed.FS

// Embedded returns the built-in themes.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "themes")
	if err != nil {
		panic(err)
	}
	return sub
}

// Dir returns the themes below dir, or the embedded ones when dir is empty.
func Dir(dir string) fs.FS {
	if dir == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}
