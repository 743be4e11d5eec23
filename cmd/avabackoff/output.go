package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
)

func checkOutput(output string) error {
	if output != outputTable && output != outputJSON {
		return fmt.Errorf("unsupported output %q: use %s or %s", output, outputTable, outputJSON)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
