package devicemanagement

import (
	"context"
	"sync/atomic"

	"github.com/gheeres/ricoh-go/pkg/connection"
	"github.com/gheeres/ricoh-go/pkg/model"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// GetUserCounters reads every user counter. When some counters cannot be
// read the others are returned with a *connection.PartialError.
func (s *Service) GetUserCounters(ctx context.Context) ([]*model.UserCounter, error) {
	var counters []*model.UserCounter
	err := s.manager.WithSession(ctx, wire.SessionShared, func(ctx context.Context, session *connection.Session) error {
		results, failures, err := fetchAll(ctx, s, session.ID, model.ClassUserCounter, func(obj *wire.Object, capabilities []wire.FieldCapability) *model.UserCounter {
			c := model.NewUserCounter(s.resolver, obj, capabilities)
			s.emit(Event{Type: EventCounterRetrieved, ObjectID: c.ID, Counter: c})
			return c
		})
		if err != nil {
			return err
		}
		counters = results
		return partial("getUserCounters", len(results), failures)
	})
	return counters, err
}

// ClearCounter resets the clearable fields of counter. It returns false
// when there was nothing to clear or the device rejected the update.
func (s *Service) ClearCounter(ctx context.Context, counter *model.UserCounter) (bool, error) {
	if counter == nil {
		return false, nil
	}
	var ok bool
	err := s.manager.WithSession(ctx, wire.SessionShared, func(ctx context.Context, session *connection.Session) error {
		var err error
		ok, err = s.clear(ctx, session.ID, counter)
		return err
	})
	return ok, err
}

// ClearCounters resets counters in one session and returns how many were
// cleared.
func (s *Service) ClearCounters(ctx context.Context, counters []*model.UserCounter) (int, error) {
	byID := make(map[uint32]*model.UserCounter, len(counters))
	ids := make([]uint32, 0, len(counters))
	for _, c := range counters {
		if c == nil {
			continue
		}
		if _, dup := byID[c.ID]; !dup {
			ids = append(ids, c.ID)
		}
		byID[c.ID] = c
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var cleared atomic.Int32
	err := s.manager.WithSession(ctx, wire.SessionShared, func(ctx context.Context, session *connection.Session) error {
		failures, err := s.fanOut(ctx, ids, func(ctx context.Context, id uint32) error {
			ok, err := s.clear(ctx, session.ID, byID[id])
			if ok {
				cleared.Add(1)
			}
			return err
		})
		if err != nil {
			return err
		}
		return partial("clearCounters", int(cleared.Load()), failures)
	})
	return int(cleared.Load()), err
}

// ClearAll resets every user counter without reading them first. The
// fields written come from the capability of the counter class.
func (s *Service) ClearAll(ctx context.Context) (int, error) {
	var cleared atomic.Int32
	err := s.manager.WithSession(ctx, wire.SessionShared, func(ctx context.Context, session *connection.Session) error {
		ids, err := s.objectIDs(ctx, session.ID, model.ClassUserCounter)
		if err != nil {
			return err
		}

		cache := &capabilityCache{}
		failures, err := s.fanOut(ctx, ids, func(ctx context.Context, id uint32) error {
			capability, err := cache.get(ctx, func(ctx context.Context) (*wire.ObjectCapability, error) {
				return s.objectCapability(ctx, session.ID, id)
			})
			if err != nil {
				return err
			}
			fields := model.WritableCapabilities(capability.Fields, "0", clearable)
			if len(fields) == 0 {
				return nil
			}

			obj := model.Object{ID: id, Base: model.BaseUserCounter, Class: model.ClassUserCounter}
			ok, err := s.update(ctx, session.ID, obj.Update(fields), replaceAll)
			if err != nil || !ok {
				return err
			}
			cleared.Add(1)
			s.emit(Event{Type: EventCounterReset, ObjectID: id})
			return nil
		})
		if err != nil {
			return err
		}
		return partial("clearAll", int(cleared.Load()), failures)
	})
	return int(cleared.Load()), err
}

func (s *Service) clear(ctx context.Context, sessionID string, counter *model.UserCounter) (bool, error) {
	fields := counter.ClearableFields()
	if len(fields) == 0 {
		s.logger.Debug("nothing to clear", "host", s.config.Host, "index", counter.Index())
		return false, nil
	}
	ok, err := s.update(ctx, sessionID, counter.Update(fields), replaceAll)
	if err != nil || !ok {
		return false, err
	}
	s.logger.Info("counter cleared", "host", s.config.Host, "index", counter.Index(), "user", counter.Authentication)
	s.emit(Event{Type: EventCounterReset, ObjectID: counter.ID, Counter: counter})
	return true, nil
}

func clearable(c *wire.FieldCapability) bool {
	return model.IsClearableCounter(c.Name, model.IsNumericCapability(c))
}
