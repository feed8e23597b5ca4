package commands

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/gheeres/ricoh-go/pkg/udirectory"
)

// RunUsers prints the address book.
func RunUsers(ctx context.Context, svc DirectoryService, w io.Writer) error {
	entries, err := svc.GetAddressBook(ctx)
	if err := tolerate(w, err); err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "Address book is empty.")
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			itoa(e.ID()),
			e.EntryType().String(),
			e.Name(),
			e.Usercode(),
			e.DisplayName(),
			e.Email(),
		})
	}
	renderTable(w, []string{"ID", "Type", "Name", "User Code", "Display Name", "Email"}, rows, 0)
	return nil
}

// RunTags prints the address book tags.
func RunTags(ctx context.Context, svc DirectoryService, w io.Writer) error {
	tags, err := svc.GetTags(ctx)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		fmt.Fprintln(w, "No tags.")
		return nil
	}
	rows := make([][]string, 0, len(tags))
	for _, id := range slices.Sorted(maps.Keys(tags)) {
		rows = append(rows, []string{itoa(id), tags[id]})
	}
	renderTable(w, []string{"ID", "Label"}, rows, 0)
	return nil
}

// RunAddUser creates a user entry.
func RunAddUser(ctx context.Context, svc DirectoryService, u udirectory.User, w io.Writer) error {
	id, err := svc.AddUser(ctx, u)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Added %s as entry %d\n", u.Name, id)
	return nil
}

// RunDelete removes entries by id.
func RunDelete(ctx context.Context, svc DirectoryService, ids []uint32, w io.Writer) error {
	if len(ids) == 0 {
		return fmt.Errorf("no entries selected")
	}
	n, err := svc.Delete(ctx, ids...)
	if err := tolerate(w, err); err != nil {
		return err
	}
	fmt.Fprintf(w, "Deleted %d of %d entries\n", n, len(ids))
	return nil
}
