package cli

import (
	"encoding/json"
	"io"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// NormalizeFormat defaults an unrecognized or empty --format value to
// text rather than failing the command outright.
func NormalizeFormat(format string) string {
	if format == FormatJSON {
		return FormatJSON
	}
	return FormatText
}

// WriteJSON writes v as indented JSON followed by a trailing newline.
func WriteJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
