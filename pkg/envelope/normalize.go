package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Normalizer errors.
var (
	ErrNoBody              = errors.New("envelope has no body")
	ErrNoOperation         = errors.New("operation element not found in body")
	ErrUnresolvedReference = errors.New("body element is not referenced")
)

// Normalize rewrites a SOAP envelope that uses multi-reference encoding so
// that every value is inlined into the operation element.
//
// The operation element is the body child whose local name equals action,
// ignoring case.
// When action is empty it is taken from the header Action element, and
// failing that the first body child without an id attribute is used. Every
// other body child must carry an id that is referenced by an href="#id"
// somewhere in the body. The referencing element keeps its own attributes
// (minus href), gains the fragment's attributes (minus id) and has its
// content replaced by the fragment's content.
//
// An envelope whose body already has a single child is returned unchanged,
// so applying Normalize twice yields the same bytes as applying it once.
func Normalize(data []byte, action string) ([]byte, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, ErrNoBody
	}
	body := childByTag(root, "Body")
	if body == nil {
		return nil, ErrNoBody
	}

	children := body.ChildElements()
	if len(children) <= 1 {
		return data, nil
	}

	if action == "" {
		action = headerAction(root)
	}
	primary := operationElement(children, action)
	if primary == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoOperation, action)
	}

	for _, fragment := range children {
		if fragment == primary {
			continue
		}
		body.RemoveChild(fragment)

		id := fragment.SelectAttrValue("id", "")
		if id == "" {
			return nil, fmt.Errorf("%w: <%s> has no id", ErrUnresolvedReference, fragment.FullTag())
		}
		ref := findHref(body, "#"+id)
		if ref == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedReference, id)
		}
		inline(ref, fragment)
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("write envelope: %w", err)
	}
	return out, nil
}

// ActionFromSOAPAction extracts the operation name from a SOAPAction header
// or a WS-Addressing Action value ("<namespace>#<operation>").
func ActionFromSOAPAction(value string) string {
	value = strings.Trim(strings.TrimSpace(value), `"`)
	if i := strings.LastIndexByte(value, '#'); i >= 0 {
		return value[i+1:]
	}
	if i := strings.LastIndexByte(value, '/'); i >= 0 {
		return value[i+1:]
	}
	return value
}

// Changed reports whether Normalize would rewrite data. It returns false for
// envelopes it cannot parse.
func Changed(data []byte, action string) bool {
	out, err := Normalize(data, action)
	return err == nil && !bytes.Equal(out, data)
}

func childByTag(e *etree.Element, tag string) *etree.Element {
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func headerAction(root *etree.Element) string {
	header := childByTag(root, "Header")
	if header == nil {
		return ""
	}
	if a := childByTag(header, "Action"); a != nil {
		return ActionFromSOAPAction(a.Text())
	}
	return ""
}

func operationElement(children []*etree.Element, action string) *etree.Element {
	if action != "" {
		for _, c := range children {
			if strings.EqualFold(c.Tag, action) {
				return c
			}
		}
		return nil
	}
	for _, c := range children {
		if c.SelectAttr("id") == nil {
			return c
		}
	}
	return nil
}

// findHref walks e depth first for the element carrying href=ref.
func findHref(e *etree.Element, ref string) *etree.Element {
	for _, c := range e.ChildElements() {
		if c.SelectAttrValue("href", "") == ref {
			return c
		}
		if found := findHref(c, ref); found != nil {
			return found
		}
	}
	return nil
}

func inline(target, fragment *etree.Element) {
	target.RemoveAttr("href")
	for _, a := range fragment.Attr {
		if a.Space == "" && a.Key == "id" {
			continue
		}
		target.CreateAttr(a.FullKey(), a.Value)
	}

	for len(target.Child) > 0 {
		target.RemoveChildAt(0)
	}
	moved := make([]etree.Token, len(fragment.Child))
	copy(moved, fragment.Child)
	for _, t := range moved {
		target.AddChild(t)
	}
}
