package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nvstore/nvstore/pkg/settings"
)

// renderTable writes the entry list as an aligned table:
//
//	+---+------//------+------//------+----------+
//	|IDX| Key          | Value        |   Type   |
//	+---+------//------+------//------+----------+
//	|0  | MAGICVERSION | 305397761    | INT      |
func renderTable(w io.Writer, entries []settings.Entry) {
	keyDashes := strings.Repeat("-", settings.MaxKeyLength+2)
	valueDashes := strings.Repeat("-", settings.MaxValueLength+2)
	rule := fmt.Sprintf("+---+%s+%s+----------+\n", keyDashes, valueDashes)

	fmt.Fprint(w, rule)
	fmt.Fprintf(w, "|IDX| %-*s | %-*s |   Type   |\n", settings.MaxKeyLength, "Key", settings.MaxValueLength, "Value")
	fmt.Fprint(w, rule)
	for i, e := range entries {
		fmt.Fprintf(w, "|%-3d| %-*s | %-*s | %-8s |\n", i, settings.MaxKeyLength, e.Key, settings.MaxValueLength, e.Value, e.Type)
	}
	fmt.Fprint(w, rule)
}

// parseBoolArg accepts the boolean spellings true/t/1 and false/f/0.
func parseBoolArg(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "t", "1":
		return true, nil
	case "false", "f", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q: use true, false, t, f, 1, or 0", s)
	}
}
