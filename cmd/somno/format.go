package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/viper"

	"github.com/somnolab/somno/pkg/somno/output"
)

// renderResult formats a result with the selected formatter and prints it.
func renderResult(r *output.Result) error {
	format := viper.GetString("format")
	if format == "" {
		format = "pretty"
	}

	formatter, err := output.Get(format)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", format, output.Available())
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}
