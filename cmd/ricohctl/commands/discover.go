package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// RunDiscover browses for printers and prints them. When pub is non-nil
// the result is also published.
func RunDiscover(ctx context.Context, b PrinterCollector, pub PrinterPublisher, w io.Writer) error {
	printers, err := b.Collect(ctx)
	if err != nil {
		return err
	}
	if len(printers) == 0 {
		fmt.Fprintln(w, "No printers found.")
	} else {
		rows := make([][]string, 0, len(printers))
		for _, p := range printers {
			rows = append(rows, []string{
				p.InstanceName,
				p.Address(),
				p.Manufacturer,
				p.Model,
				p.Location,
				strings.Join(p.Services, ", "),
			})
		}
		renderTable(w, []string{"Name", "Address", "Make", "Model", "Location", "Services"}, rows)
	}
	if pub != nil {
		return pub.PublishPrinters(printers)
	}
	return nil
}
