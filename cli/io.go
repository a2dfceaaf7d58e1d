package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
	"github.com/spf13/cobra"
)

// readDocument parses the message at path, or stdin when path is "-" or empty.
func readDocument(cmd *cobra.Command, path string) (*etree.Document, error) {
	doc := etree.NewDocument()

	if path == "" || path == "-" {
		if _, err := doc.ReadFrom(cmd.InOrStdin()); err != nil {
			return nil, fmt.Errorf("failed to parse XML from stdin: %w", err)
		}
		return doc, nil
	}

	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("failed to parse XML %s: %w", path, err)
	}
	return doc, nil
}

// writeDocument serializes doc to path, or stdout when path is "-" or empty.
func writeDocument(cmd *cobra.Command, path string, doc *etree.Document) (err error) {
	var w io.Writer = cmd.OutOrStdout()

	if path != "" && path != "-" {
		f, ferr := os.Create(path)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if _, err = doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write signed XML: %w", err)
	}
	return nil
}
