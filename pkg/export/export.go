package export

import "strings"

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// Lookup resolves a renderer by format name.
func Lookup(format string, renderers ...Renderer) (Renderer, bool) {
	format = strings.ToLower(strings.TrimSpace(format))
	for _, r := range renderers {
		if r.Extension() == format {
			return r, true
		}
	}
	return nil, false
}
