package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/gheeres/ricoh-go/pkg/model"
)

// RunCapabilities prints which functions the device can restrict.
func RunCapabilities(ctx context.Context, svc AccessService, w io.Writer) error {
	caps, err := svc.GetDeviceAccessControlCapabilities(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(model.Categories()))
	for _, c := range model.Categories() {
		supported := "no"
		if caps.Has(c) {
			supported = "yes"
		}
		rows = append(rows, []string{c.String(), c.CapabilityName(), supported})
	}
	renderTable(w, []string{"Function", "Object", "Restrictable"}, rows)
	return nil
}

// RunAccess prints the restrictions of every user. Flags show the allowed
// functions as C(opier) P(rinter) S(canner) F(ax) D(ocument server).
func RunAccess(ctx context.Context, svc AccessService, w io.Writer) error {
	acs, err := svc.GetUserAccessControls(ctx)
	if err := tolerate(w, err); err != nil {
		return err
	}
	if len(acs) == 0 {
		fmt.Fprintln(w, "No user restrictions.")
		return nil
	}
	rows := make([][]string, 0, len(acs))
	for _, ac := range acs {
		rows = append(rows, []string{itoa(ac.Index()), ac.Authentication, ac.Username, ac.Flags()})
	}
	renderTable(w, []string{"Index", "User", "Name", "Allowed"}, rows, 0)
	return nil
}

// RunSetAccess allows or restricts the named functions for one user slot.
func RunSetAccess(ctx context.Context, svc AccessService, index uint32, categories string, allow bool, w io.Writer) error {
	c, err := model.ParseCategory(categories)
	if err != nil {
		return err
	}
	if c == model.CategoryNone {
		return fmt.Errorf("no functions named")
	}

	acs, err := svc.GetUserAccessControls(ctx)
	if err := tolerate(w, err); err != nil {
		return err
	}
	var target *model.UserAccessControl
	for _, ac := range acs {
		if ac.Index() == index {
			target = ac
			break
		}
	}
	if target == nil {
		return fmt.Errorf("user %d: %w", index, ErrNotFound)
	}

	var changed bool
	verb := "Restricted"
	if allow {
		verb = "Allowed"
		changed, err = svc.AllowAccess(ctx, target, c)
	} else {
		changed, err = svc.RestrictAccess(ctx, target, c)
	}
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintf(w, "No change for %s\n", target)
		return nil
	}
	fmt.Fprintf(w, "%s %s for [%04d] %s\n", verb, c, index, target.Authentication)
	return nil
}
