// Package migrations embeds the SQL schema.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Up returns the forward migrations in apply order.
func Up() ([]Migration, error) {
	return load(".up.sql", false)
}

// Down returns the rollback migrations in apply order.
func Down() ([]Migration, error) {
	return load(".down.sql", true)
}

// Migration is one named SQL script.
type Migration struct {
	Name string
	SQL  string
}

func load(suffix string, reverse bool) ([]Migration, error) {
	names, err := fs.Glob(files, "*"+suffix)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	out := make([]Migration, 0, len(names))
	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: strings.TrimSuffix(name, suffix), SQL: string(body)})
	}
	return out, nil
}
