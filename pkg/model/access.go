package model

import (
	"fmt"
	"strings"

	"github.com/gheeres/ricoh-go/pkg/wire"
)

// UserAccessControl holds the function restrictions of one user slot. The
// device stores restrictions: ON means the function is blocked.
type UserAccessControl struct {
	Object
}

// NewUserAccessControl builds an access control from a
// usageControl.userRestrict object.
func NewUserAccessControl(r *Resolver, obj *wire.Object, capabilities []wire.FieldCapability) *UserAccessControl {
	return &UserAccessControl{Object: NewObject(r, ClassUserRestrict, BaseUserRestrict, obj.ObjectID, obj.Fields, capabilities)}
}

// IsAllowed reports whether the functions of c are allowed. It is false
// when no field controls c.
func (u *UserAccessControl) IsAllowed(c Category) bool {
	restricted, found := u.Fields.FirstBool(c.ExternalNames()...)
	if !found {
		return false
	}
	return !restricted
}

func (u *UserAccessControl) Fax() bool            { return u.IsAllowed(CategoryFax) }
func (u *UserAccessControl) Copier() bool         { return u.IsAllowed(CategoryCopier) }
func (u *UserAccessControl) Printer() bool        { return u.IsAllowed(CategoryPrinter) }
func (u *UserAccessControl) Scanner() bool        { return u.IsAllowed(CategoryScanner) }
func (u *UserAccessControl) DocumentServer() bool { return u.IsAllowed(CategoryDocumentServer) }

// Allowed returns the allowed categories.
func (u *UserAccessControl) Allowed() Category {
	var c Category
	for _, cat := range Categories() {
		if u.IsAllowed(cat) {
			c |= cat
		}
	}
	return c
}

// Changes returns every writable boolean field with the fields of c set to
// OFF when allow is true and ON otherwise. Other fields keep their values.
func (u *UserAccessControl) Changes(c Category, allow bool) []wire.Field {
	names := c.ExternalNames()
	fields := u.Fields.Writable(func(f Field) bool {
		return f.Kind() == KindBool
	})
	value := On
	if allow {
		value = Off
	}
	for i := range fields {
		for _, n := range names {
			if strings.EqualFold(n, fields[i].Name) {
				fields[i].Value = value
				break
			}
		}
	}
	return fields
}

// With returns a copy whose writable boolean fields of c are set as
// Changes would write them.
func (u *UserAccessControl) With(c Category, allow bool) *UserAccessControl {
	out := &UserAccessControl{Object: u.Object}
	out.Fields = make(Fields, len(u.Fields))
	for i, f := range u.Fields {
		if f.Kind() == KindBool && f.Access.CanWrite() && CategoryOf(f.Name)&c != 0 {
			f, _ = f.WithValue(!allow)
		}
		out.Fields[i] = f
	}
	return out
}

// Flags renders the allowed functions as "CPSFD" with blanks for
// restricted ones.
func (u *UserAccessControl) Flags() string {
	flag := func(ok bool, r byte) byte {
		if ok {
			return r
		}
		return ' '
	}
	return string([]byte{
		flag(u.Copier(), 'C'),
		flag(u.Printer(), 'P'),
		flag(u.Scanner(), 'S'),
		flag(u.Fax(), 'F'),
		flag(u.DocumentServer(), 'D'),
	})
}

// String implements fmt.Stringer.
func (u *UserAccessControl) String() string {
	return fmt.Sprintf("[%04d] %-8s - %-32s: %s", u.Index(), u.Authentication, u.Username, u.Flags())
}
