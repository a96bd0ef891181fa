package cmd

import (
	"fmt"

	"uiccscan/card"
	"uiccscan/output"
)

// listReaders prints the list of available smart card readers.
func listReaders() error {
	readers, err := card.ListReaders()
	if err != nil {
		return fmt.Errorf("failed to list readers: %w", err)
	}
	output.PrintReaderList(readers)
	return nil
}
