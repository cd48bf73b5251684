// Package schema embeds the JSON schemas for documents accepted by the CLI.
package schema

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

const (
	Options    = "options"
	URLRequest = "url_request"
	Token      = "token"
	Search     = "search"
	Breakpoint = "breakpoints"
)

//go:embed schemas/v1/*.schema.json
var files embed.FS

// Load returns the raw schema document for name.
func Load(name string) ([]byte, error) {
	data, err := files.ReadFile("schemas/v1/" + name + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return data, nil
}

// Names lists the embedded schemas.
func Names() []string {
	entries, err := files.ReadDir("schemas/v1")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".schema.json"))
	}
	sort.Strings(names)
	return names
}
