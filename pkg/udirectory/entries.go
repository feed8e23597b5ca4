package udirectory

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/gheeres/ricoh-go/pkg/connection"
	"github.com/gheeres/ricoh-go/pkg/model"
	"github.com/gheeres/ricoh-go/pkg/pagination"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// GetAddressBook reads every user and group entry. Built-in entries are
// skipped. Rows that are not valid entries are reported through a
// *connection.PartialError returned with the valid entries.
func (s *Service) GetAddressBook(ctx context.Context) ([]*model.AddressBookEntry, error) {
	var entries []*model.AddressBookEntry
	err := s.manager.WithSession(ctx, s.config.SessionType, func(ctx context.Context, session *connection.Session) error {
		var invalid []error
		q := pagination.Query{
			SessionID:   session.ID,
			Class:       ClassEntry,
			SelectProps: []string{model.PropID},
			PageSize:    session.MaxObjectPerCall(),
		}
		results, stats, err := pagination.Search(ctx, s.engine, q, func(ctx context.Context, rows []wire.Row) ([]*model.AddressBookEntry, error) {
			page, bad, err := s.fetchEntries(ctx, session, entryIDs(rows))
			invalid = append(invalid, bad...)
			return page, err
		})
		entries = results
		if err != nil {
			return err
		}
		s.logger.Info("address book read", "host", s.config.Host, "entries", len(results), "invalid", len(invalid), "pages", stats.Pages)
		return invalidRows("getAddressBook", len(results), invalid)
	})
	return entries, err
}

// GetEntries reads the entries with the given IDs, at most
// maxObjectPerCall per request.
func (s *Service) GetEntries(ctx context.Context, ids ...uint32) ([]*model.AddressBookEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = strconv.FormatUint(uint64(id), 10)
	}

	var entries []*model.AddressBookEntry
	err := s.manager.WithSession(ctx, s.config.SessionType, func(ctx context.Context, session *connection.Session) error {
		var invalid []error
		for chunk := range slices.Chunk(raw, int(session.MaxObjectPerCall())) {
			page, bad, err := s.fetchEntries(ctx, session, chunk)
			entries = append(entries, page...)
			invalid = append(invalid, bad...)
			if err != nil {
				return err
			}
		}
		return invalidRows("getEntries", len(entries), invalid)
	})
	return entries, err
}

// GetEntry reads one entry.
func (s *Service) GetEntry(ctx context.Context, id uint32) (*model.AddressBookEntry, error) {
	entries, err := s.GetEntries(ctx, id)
	for _, e := range entries {
		if e.ID() == id {
			return e, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return nil, ErrEntryNotFound
}

// GetTags returns the index tags by ID. Devices that allow a single tag
// per entry have none to offer and return an empty map.
func (s *Service) GetTags(ctx context.Context) (map[uint32]string, error) {
	return connection.Within(ctx, s.manager, s.config.SessionType, s.tags)
}

type tag struct {
	id    uint32
	label string
}

func (s *Service) tags(ctx context.Context, session *connection.Session) (map[uint32]string, error) {
	out := make(map[uint32]string)
	if session.MaxTagPerEntry() <= 1 {
		return out, nil
	}

	q := pagination.Query{
		SessionID:      session.ID,
		Class:          ClassTag,
		SelectProps:    []string{model.PropID, model.PropLabel},
		ParentObjectID: s.config.TagParentID,
		PageSize:       session.MaxObjectPerCall(),
	}
	tags, _, err := pagination.Search(ctx, s.engine, q, func(_ context.Context, rows []wire.Row) ([]tag, error) {
		var page []tag
		for _, row := range rows {
			id, err := strconv.ParseUint(row.Properties.Value(model.PropID), 10, 32)
			if err != nil {
				continue
			}
			page = append(page, tag{id: uint32(id), label: row.Properties.Value(model.PropLabel)})
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		out[t.id] = t.label
	}
	return out, nil
}

// fetchEntries reads the properties of ids in one call. Invalid rows are
// reported as events and returned separately.
func (s *Service) fetchEntries(ctx context.Context, session *connection.Session, ids []string) ([]*model.AddressBookEntry, []error, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	objectIDs := make([]string, len(ids))
	for i, id := range ids {
		objectIDs[i] = objectID(id)
	}
	fields := SupportedFields(session)

	rows, err := connection.Retry(ctx, s.retrier, wire.ActionGetObjectsProps, func(ctx context.Context) ([]wire.Row, error) {
		return s.remote.GetObjectsProps(ctx, session.ID, objectIDs, fields)
	})
	if err != nil {
		return nil, nil, err
	}

	var (
		entries []*model.AddressBookEntry
		invalid []error
	)
	for _, row := range rows {
		entry, err := model.EntryFromProperties(row.Properties)
		if err != nil {
			s.logger.Warn("invalid address book entry", "host", s.config.Host, "error", err)
			id, _ := parseEntryID(row.Properties.Value(model.PropID))
			s.emit(Event{Type: EventEntryInvalid, ID: id, Properties: row.Properties, Error: err})
			invalid = append(invalid, err)
			continue
		}
		s.emit(Event{Type: EventEntryRetrieved, ID: entry.ID(), Entry: entry})
		entries = append(entries, entry)
	}
	return entries, invalid, nil
}

// entryIDs returns the IDs of the search rows, skipping built-in entries.
func entryIDs(rows []wire.Row) []string {
	var ids []string
	for _, row := range rows {
		for _, p := range row.Properties {
			if strings.EqualFold(p.Name, model.PropID) && p.Value != "" && len(p.Value) < maxEntryIDLength {
				ids = append(ids, p.Value)
			}
		}
	}
	return ids
}

func invalidRows(operation string, succeeded int, invalid []error) error {
	if len(invalid) == 0 {
		return nil
	}
	return &connection.PartialError{
		Operation: operation,
		Succeeded: succeeded,
		Failed:    len(invalid),
		Err:       multierr.Combine(invalid...),
	}
}
