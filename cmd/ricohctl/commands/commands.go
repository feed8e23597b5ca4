// Package commands implements the ricohctl CLI commands.
//
// Each command takes the narrow service interface it needs and writes
// human-readable output to an io.Writer, so the same code serves the
// one-shot CLI and the interactive shell.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gheeres/ricoh-go/pkg/connection"
	"github.com/gheeres/ricoh-go/pkg/discovery"
	"github.com/gheeres/ricoh-go/pkg/model"
	"github.com/gheeres/ricoh-go/pkg/persistence"
	"github.com/gheeres/ricoh-go/pkg/udirectory"
)

var (
	// ErrNoStore is returned when a command needs the snapshot store.
	ErrNoStore = errors.New("no snapshot store configured")

	// ErrNotFound is returned when an index or id matches nothing.
	ErrNotFound = errors.New("not found")
)

// CounterService reads and clears user counters.
type CounterService interface {
	Host() string
	GetUserCounters(ctx context.Context) ([]*model.UserCounter, error)
	ClearCounters(ctx context.Context, counters []*model.UserCounter) (int, error)
	ClearAll(ctx context.Context) (int, error)
}

// AccessService reads and changes user restrictions.
type AccessService interface {
	GetDeviceAccessControlCapabilities(ctx context.Context) (model.Category, error)
	GetUserAccessControls(ctx context.Context) ([]*model.UserAccessControl, error)
	RestrictAccess(ctx context.Context, ac *model.UserAccessControl, c model.Category) (bool, error)
	AllowAccess(ctx context.Context, ac *model.UserAccessControl, c model.Category) (bool, error)
}

// DirectoryService manages the address book.
type DirectoryService interface {
	GetAddressBook(ctx context.Context) ([]*model.AddressBookEntry, error)
	GetTags(ctx context.Context) (map[uint32]string, error)
	AddUser(ctx context.Context, u udirectory.User) (uint32, error)
	Delete(ctx context.Context, ids ...uint32) (uint32, error)
}

// SnapshotStore keeps counter snapshots.
type SnapshotStore interface {
	Save(snap *persistence.Snapshot) error
	Diff(cur *persistence.Snapshot) ([]persistence.Delta, error)
	Prune(host string, keep int) (int, error)
}

// SnapshotPublisher forwards snapshots and usage.
type SnapshotPublisher interface {
	PublishSnapshot(snap *persistence.Snapshot) error
	PublishUsage(host string, deltas []persistence.Delta) error
}

// PrinterCollector discovers printers.
type PrinterCollector interface {
	Collect(ctx context.Context) ([]*discovery.Printer, error)
}

// PrinterPublisher forwards discovery results.
type PrinterPublisher interface {
	PublishPrinters(printers []*discovery.Printer) error
}

// Doer sends a raw envelope.
type Doer interface {
	Do(ctx context.Context, action string, env []byte) ([]byte, error)
}

// tolerate reports a partial failure as a warning and returns nil for it;
// any other error is returned.
func tolerate(w io.Writer, err error) error {
	if err == nil {
		return nil
	}
	var partial *connection.PartialError
	if errors.As(err, &partial) {
		fmt.Fprintf(w, "Warning: %v\n", err)
		return nil
	}
	return err
}

func now(f func() time.Time) time.Time {
	if f != nil {
		return f()
	}
	return time.Now()
}
