package udirectory

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gheeres/ricoh-go/pkg/connection"
	"github.com/gheeres/ricoh-go/pkg/model"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// User describes a new address book user.
type User struct {
	// Name is the entry name (required).
	Name string

	// Usercode is the authentication code.
	Usercode string

	// DisplayName is shown on the control panel.
	DisplayName string

	Email string
}

// entryDefaults are sent with every new entry unless it sets them itself.
var entryDefaults = wire.PropertyList{
	{Name: model.PropIsDestination, Value: "true"},
	{Name: model.PropIsSender, Value: "true"},
}

// AddUser creates a user entry and returns its ID. Users with an email
// address are filed under the index tag matching the first letter of their
// display name. A device fault is returned as *DuplicateEntryError.
func (s *Service) AddUser(ctx context.Context, u User) (uint32, error) {
	if strings.TrimSpace(u.Name) == "" {
		return 0, ErrNameRequired
	}
	entry := model.NewAddressBookEntry(model.EntryTypeUser)
	entry.SetName(u.Name)
	if u.Usercode != "" {
		entry.SetUsercode(u.Usercode)
	}
	if u.DisplayName != "" {
		entry.SetDisplayName(u.DisplayName)
	}
	if u.Email != "" {
		entry.SetEmail(u.Email)
	}
	return s.add(ctx, entry, true)
}

// AddEntry creates entry as given and returns its ID.
func (s *Service) AddEntry(ctx context.Context, entry *model.AddressBookEntry) (uint32, error) {
	if entry == nil || strings.TrimSpace(entry.Name()) == "" {
		return 0, ErrNameRequired
	}
	return s.add(ctx, entry, false)
}

func (s *Service) add(ctx context.Context, entry *model.AddressBookEntry, assignTag bool) (uint32, error) {
	var id uint32
	err := s.manager.WithSession(ctx, wire.SessionExclusive, func(ctx context.Context, session *connection.Session) error {
		if assignTag {
			s.assignTag(ctx, session, entry)
		}

		var props wire.PropertyList
		for _, p := range entryDefaults {
			if entry.Get(p.Name) == "" {
				props = append(props, p)
			}
		}
		props = model.Truncate(append(props, entry.Properties(nil)...), limits(session))

		ids, err := connection.Retry(ctx, s.retrier, wire.ActionPutObjects, func(ctx context.Context) ([]string, error) {
			return s.remote.PutObjects(ctx, session.ID, ClassEntry, []wire.Row{{Properties: props}})
		})
		if err != nil {
			if wire.IsFault(err, "") {
				return &DuplicateEntryError{Host: s.config.Host, Usercode: entry.Usercode(), Name: entry.Name(), Err: err}
			}
			return err
		}
		if len(ids) == 0 {
			return ErrNotCreated
		}
		id, err = parseEntryID(ids[0])
		if err != nil {
			return fmt.Errorf("%w: unexpected id %q", ErrNotCreated, ids[0])
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to add entry", "host", s.config.Host, "name", entry.Name(), "usercode", entry.Usercode(), "error", err)
		return 0, err
	}

	entry.SetID(id)
	entry.MarkClean()
	s.logger.Info("entry added", "host", s.config.Host, "id", id, "name", entry.Name())

	if s.hasHandlers() {
		added, err := s.GetEntry(ctx, id)
		if err != nil {
			s.logger.Warn("failed to read added entry", "host", s.config.Host, "id", id, "error", err)
		} else {
			s.emit(Event{Type: EventEntryAdded, ID: id, Entry: added})
		}
	}
	return id, nil
}

// assignTag files entries with an email address under the index tag of
// their display name.
func (s *Service) assignTag(ctx context.Context, session *connection.Session, entry *model.AddressBookEntry) {
	if entry.Email() == "" {
		return
	}
	tags, err := s.tags(ctx, session)
	if err != nil {
		s.logger.Warn("failed to read tags", "host", s.config.Host, "error", err)
		return
	}
	if id := tagFor(tags, entry.DisplayName()); id > 0 {
		entry.Set(model.PropTagID, "1,"+strconv.FormatUint(uint64(id), 10))
	}
}

// tagFor returns the lowest tag ID whose label contains the upper-case
// first letter of name, or 0.
func tagFor(tags map[uint32]string, name string) uint32 {
	if name == "" || len(tags) == 0 {
		return 0
	}
	first, _ := utf8.DecodeRuneInString(name)
	letter := string(unicode.ToUpper(first))

	ids := make([]uint32, 0, len(tags))
	for id := range tags {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if strings.Contains(tags[id], letter) {
			return id
		}
	}
	return 0
}

// UpdateEntry writes the properties changed since entry was read. It
// returns false when nothing changed or the device rejected the update.
func (s *Service) UpdateEntry(ctx context.Context, entry *model.AddressBookEntry) (bool, error) {
	if entry == nil {
		return false, nil
	}
	id := entry.ID()
	if id == 0 {
		return false, ErrNotCreated
	}
	var changes wire.PropertyList
	for _, p := range entry.Changes() {
		if !strings.EqualFold(p.Name, model.PropID) {
			changes = append(changes, p)
		}
	}
	if len(changes) == 0 {
		return false, nil
	}

	var ok bool
	err := s.manager.WithSession(ctx, wire.SessionExclusive, func(ctx context.Context, session *connection.Session) error {
		props := model.Truncate(changes, limits(session))
		status, err := connection.Retry(ctx, s.retrier, wire.ActionPutObjectProps, func(ctx context.Context) (wire.Status, error) {
			return s.remote.PutObjectProps(ctx, session.ID, []string{objectID(strconv.FormatUint(uint64(id), 10))}, []wire.Row{{Properties: props}})
		})
		if err != nil {
			return err
		}
		if !status.IsOK() {
			s.logger.Warn("update rejected", "host", s.config.Host, "id", id, "status", status)
			return nil
		}
		ok = true
		return nil
	})
	if err != nil || !ok {
		return false, err
	}
	entry.MarkClean()
	s.logger.Info("entry updated", "host", s.config.Host, "id", id, "properties", changes.Names())
	return true, nil
}

// Delete removes the entries with the given IDs and returns how many the
// device removed.
func (s *Service) Delete(ctx context.Context, ids ...uint32) (uint32, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	objectIDs := make([]string, len(ids))
	for i, id := range ids {
		objectIDs[i] = objectID(strconv.FormatUint(uint64(id), 10))
	}

	count, err := connection.Within(ctx, s.manager, wire.SessionExclusive, func(ctx context.Context, session *connection.Session) (uint32, error) {
		return connection.Retry(ctx, s.retrier, wire.ActionDeleteObjects, func(ctx context.Context) (uint32, error) {
			return s.remote.DeleteObjects(ctx, session.ID, objectIDs)
		})
	})
	if err != nil {
		return 0, err
	}

	if int(count) != len(ids) {
		s.logger.Warn("not all entries removed", "host", s.config.Host, "requested", len(ids), "removed", count)
		return count, nil
	}
	for _, id := range ids {
		s.emit(Event{Type: EventEntryRemoved, ID: id})
	}
	s.logger.Info("entries removed", "host", s.config.Host, "count", count)
	return count, nil
}

// DeleteEntries removes entries. Entries without an ID are ignored.
func (s *Service) DeleteEntries(ctx context.Context, entries ...*model.AddressBookEntry) (uint32, error) {
	var ids []uint32
	for _, e := range entries {
		if e != nil && e.ID() > 0 {
			ids = append(ids, e.ID())
		}
	}
	return s.Delete(ctx, ids...)
}
