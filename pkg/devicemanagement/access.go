package devicemanagement

import (
	"context"
	"sync"

	"github.com/gheeres/ricoh-go/pkg/connection"
	"github.com/gheeres/ricoh-go/pkg/model"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// GetDeviceAccessControlCapabilities returns the categories the device can
// restrict. The first successful answer is kept for the lifetime of the
// Service.
func (s *Service) GetDeviceAccessControlCapabilities(ctx context.Context) (model.Category, error) {
	s.mu.RLock()
	if s.accessKnown {
		c := s.access
		s.mu.RUnlock()
		return c, nil
	}
	s.mu.RUnlock()

	var found model.Category
	err := s.manager.WithSession(ctx, wire.SessionShared, func(ctx context.Context, session *connection.Session) error {
		ids, err := s.objectIDs(ctx, session.ID, model.ClassApplicationRestrict)
		if err != nil {
			return err
		}

		var mu sync.Mutex
		failures, err := s.fanOut(ctx, ids, func(ctx context.Context, id uint32) error {
			capability, err := s.objectCapability(ctx, session.ID, id)
			if err != nil {
				return err
			}
			c := model.CategoryFromCapability(capability.Name)
			if c == model.CategoryNone {
				s.logger.Debug("unmapped restriction", "host", s.config.Host, "name", capability.Name)
				return nil
			}
			mu.Lock()
			found |= c
			mu.Unlock()
			return nil
		})
		if err != nil {
			return err
		}
		return partial("getDeviceAccessControlCapabilities", len(ids)-len(failures), failures)
	})
	if err != nil {
		return found, err
	}

	s.mu.Lock()
	s.access = found
	s.accessKnown = true
	s.mu.Unlock()
	s.logger.Info("access control capabilities", "host", s.config.Host, "categories", found)
	return found, nil
}

// HasAccessControl reports whether the device can restrict every function
// of c. CategoryAll stands for every known category.
func (s *Service) HasAccessControl(ctx context.Context, c model.Category) (bool, error) {
	supported, err := s.GetDeviceAccessControlCapabilities(ctx)
	if err != nil {
		return false, err
	}
	want := c & knownCategories()
	return want != model.CategoryNone && supported.Has(want), nil
}

// GetUserAccessControls reads every user restriction. When some cannot be
// read the others are returned with a *connection.PartialError.
func (s *Service) GetUserAccessControls(ctx context.Context) ([]*model.UserAccessControl, error) {
	var controls []*model.UserAccessControl
	err := s.manager.WithSession(ctx, wire.SessionShared, func(ctx context.Context, session *connection.Session) error {
		results, failures, err := fetchAll(ctx, s, session.ID, model.ClassUserRestrict, func(obj *wire.Object, capabilities []wire.FieldCapability) *model.UserAccessControl {
			ac := model.NewUserAccessControl(s.resolver, obj, capabilities)
			s.emit(Event{Type: EventAccessControlRetrieved, ObjectID: ac.ID, AccessControl: ac})
			return ac
		})
		if err != nil {
			return err
		}
		controls = results
		return partial("getUserAccessControls", len(results), failures)
	})
	return controls, err
}

// RestrictAccess blocks the functions of c for the user of ac.
func (s *Service) RestrictAccess(ctx context.Context, ac *model.UserAccessControl, c model.Category) (bool, error) {
	return s.setAccess(ctx, ac, c, false)
}

// AllowAccess unblocks the functions of c for the user of ac.
func (s *Service) AllowAccess(ctx context.Context, ac *model.UserAccessControl, c model.Category) (bool, error) {
	return s.setAccess(ctx, ac, c, true)
}

func (s *Service) setAccess(ctx context.Context, ac *model.UserAccessControl, c model.Category, allow bool) (bool, error) {
	if ac == nil || c == model.CategoryNone {
		return false, nil
	}
	fields := ac.Changes(c, allow)
	if len(fields) == 0 {
		s.logger.Debug("no restriction fields", "host", s.config.Host, "index", ac.Index())
		return false, nil
	}

	var ok bool
	err := s.manager.WithSession(ctx, wire.SessionShared, func(ctx context.Context, session *connection.Session) error {
		var err error
		ok, err = s.update(ctx, session.ID, ac.Update(fields), mergeFields)
		return err
	})
	if err != nil || !ok {
		return false, err
	}

	s.logger.Info("access changed", "host", s.config.Host, "index", ac.Index(), "category", c, "allow", allow)
	s.emit(Event{Type: EventAccessControlChanged, ObjectID: ac.ID, AccessControl: ac.With(c, allow), Category: c})
	return true, nil
}

func knownCategories() model.Category {
	var all model.Category
	for _, c := range model.Categories() {
		all |= c
	}
	return all
}
