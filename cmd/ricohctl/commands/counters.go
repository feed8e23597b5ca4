package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gheeres/ricoh-go/pkg/model"
	"github.com/gheeres/ricoh-go/pkg/persistence"
)

// CounterOptions controls what RunCounters does with the counters it reads.
type CounterOptions struct {
	// Store receives snapshots. Required by Save and Diff.
	Store SnapshotStore

	// Save stores the snapshot and prunes to Keep.
	Save bool
	Keep int

	// Diff prints usage since the previous stored snapshot.
	Diff bool

	// Publisher, when set, receives the snapshot and the usage.
	Publisher SnapshotPublisher

	Now func() time.Time
}

// RunCounters reads and prints the user counters.
func RunCounters(ctx context.Context, svc CounterService, opts CounterOptions, w io.Writer) error {
	if (opts.Save || opts.Diff) && opts.Store == nil {
		return ErrNoStore
	}

	counters, err := svc.GetUserCounters(ctx)
	if err := tolerate(w, err); err != nil {
		return err
	}
	printCounters(w, counters)

	snap := persistence.NewSnapshot(svc.Host(), now(opts.Now), counters)

	var deltas []persistence.Delta
	if opts.Diff {
		deltas, err = opts.Store.Diff(snap)
		if err != nil {
			return fmt.Errorf("diff failed: %w", err)
		}
		printDeltas(w, deltas)
	}

	if opts.Save {
		if err := opts.Store.Save(snap); err != nil {
			return fmt.Errorf("save failed: %w", err)
		}
		if opts.Keep > 0 {
			if _, err := opts.Store.Prune(snap.Host, opts.Keep); err != nil {
				return fmt.Errorf("prune failed: %w", err)
			}
		}
		fmt.Fprintf(w, "Saved snapshot of %d users\n", len(snap.Users))
	}

	if opts.Publisher != nil {
		if err := opts.Publisher.PublishSnapshot(snap); err != nil {
			return err
		}
		if deltas != nil {
			if err := opts.Publisher.PublishUsage(snap.Host, deltas); err != nil {
				return err
			}
		}
	}
	return nil
}

func printCounters(w io.Writer, counters []*model.UserCounter) {
	if len(counters) == 0 {
		fmt.Fprintln(w, "No user counters.")
		return
	}
	rows := make([][]string, 0, len(counters))
	for _, c := range counters {
		copier, printer, scanner := c.Copier(), c.Printer(), c.Scanner()
		rows = append(rows, []string{
			itoa(c.Index()),
			c.Authentication,
			c.Username,
			itoa(copier.Black), itoa(copier.Color),
			itoa(printer.Black), itoa(printer.Color),
			itoa(scanner.Total()),
			itoa(c.Fax()),
			itoa(c.Sent()),
		})
	}
	renderTable(w,
		[]string{"Index", "User", "Name", "Copy B/W", "Copy Color", "Print B/W", "Print Color", "Scan", "Fax", "Sent"},
		rows, 0, 3, 4, 5, 6, 7, 8, 9)
}

func printDeltas(w io.Writer, deltas []persistence.Delta) {
	if deltas == nil {
		fmt.Fprintln(w, "No previous snapshot.")
		return
	}
	rows := make([][]string, 0, len(deltas))
	for _, d := range deltas {
		note := ""
		if d.Reset {
			note = "reset"
		}
		rows = append(rows, []string{itoa(d.Index), d.Authentication, d.Username, itoa(d.Usage()), note})
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No usage.")
		return
	}
	if from := deltas[0].From; from.IsZero() {
		fmt.Fprintln(w, "No previous snapshot, usage counted from zero:")
	} else {
		fmt.Fprintf(w, "Usage since %s:\n", from.Local().Format(time.DateTime))
	}
	renderTable(w, []string{"Index", "User", "Name", "Pages", ""}, rows, 0, 3)
}

// RunClear resets counters. With all set every counter on the device is
// cleared; otherwise only the given slot indexes.
func RunClear(ctx context.Context, svc CounterService, all bool, indexes []uint32, w io.Writer) error {
	if all {
		n, err := svc.ClearAll(ctx)
		if err := tolerate(w, err); err != nil {
			return err
		}
		fmt.Fprintf(w, "Cleared %d counters\n", n)
		return nil
	}
	if len(indexes) == 0 {
		return fmt.Errorf("no counters selected (give indexes or -all)")
	}

	counters, err := svc.GetUserCounters(ctx)
	if err := tolerate(w, err); err != nil {
		return err
	}
	byIndex := make(map[uint32]*model.UserCounter, len(counters))
	for _, c := range counters {
		byIndex[c.Index()] = c
	}
	selected := make([]*model.UserCounter, 0, len(indexes))
	for _, idx := range indexes {
		c, ok := byIndex[idx]
		if !ok {
			return fmt.Errorf("counter %d: %w", idx, ErrNotFound)
		}
		selected = append(selected, c)
	}

	n, err := svc.ClearCounters(ctx, selected)
	if err := tolerate(w, err); err != nil {
		return err
	}
	fmt.Fprintf(w, "Cleared %d of %d counters\n", n, len(selected))
	return nil
}
