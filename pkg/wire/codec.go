package wire

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// NamespaceSOAP is the SOAP 1.1 envelope namespace.
const NamespaceSOAP = "http://schemas.xmlsoap.org/soap/envelope/"

// servicePrefix is the prefix bound to the service namespace in requests.
const servicePrefix = "rdh"

// Codec errors.
var (
	ErrNoBody        = errors.New("envelope has no body")
	ErrEmptyBody     = errors.New("envelope body is empty")
	ErrUnexpectedTag = errors.New("unexpected response element")
)

// Fault is a SOAP fault returned by the device. It is a business failure
// and is never retried.
type Fault struct {
	Code    string
	Message string
	Detail  string

	// Status is the device status code found in the fault detail, if any.
	Status Status
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Status != "" {
		return fmt.Sprintf("soap fault %s: %s (%s)", f.Code, f.Message, f.Status)
	}
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.Message)
}

// faultBody mirrors the SOAP 1.1 fault element.
type faultBody struct {
	Code    string `xml:"faultcode"`
	Message string `xml:"faultstring"`
	Detail  struct {
		Inner string `xml:",innerxml"`
	} `xml:"detail"`
}

// EncodeEnvelope wraps params in a SOAP envelope. The body element is named
// after action and qualified with namespace.
func EncodeEnvelope(namespace, action string, params any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<s:Envelope xmlns:s="` + NamespaceSOAP + `"><s:Body>`)

	start := xml.StartElement{
		Name: xml.Name{Local: servicePrefix + ":" + action},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns:" + servicePrefix}, Value: namespace}},
	}

	enc := xml.NewEncoder(&buf)
	if params == nil {
		if err := enc.EncodeToken(start); err != nil {
			return nil, err
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return nil, err
		}
	} else if err := enc.EncodeElement(params, start); err != nil {
		return nil, fmt.Errorf("encode %s: %w", action, err)
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	buf.WriteString(`</s:Body></s:Envelope>`)
	return buf.Bytes(), nil
}

// DecodeEnvelope decodes the first body element of a SOAP envelope into
// resp. A fault body is returned as *Fault. resp may be nil when the caller
// only needs the fault check.
func DecodeEnvelope(data []byte, resp any) error {
	dec := xml.NewDecoder(bytes.NewReader(data))

	inBody := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if inBody {
				return ErrEmptyBody
			}
			return ErrNoBody
		}
		if err != nil {
			return fmt.Errorf("decode envelope: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			if ee, isEnd := tok.(xml.EndElement); isEnd && inBody && ee.Name.Local == "Body" {
				return ErrEmptyBody
			}
			continue
		}

		if !inBody {
			if se.Name.Local == "Body" {
				inBody = true
			}
			continue
		}

		if se.Name.Local == "Fault" {
			var fb faultBody
			if err := dec.DecodeElement(&fb, &se); err != nil {
				return fmt.Errorf("decode fault: %w", err)
			}
			return &Fault{
				Code:    fb.Code,
				Message: strings.TrimSpace(fb.Message),
				Detail:  fb.Detail.Inner,
				Status:  statusFromDetail(fb.Detail.Inner),
			}
		}

		if resp == nil {
			return dec.Skip()
		}
		if err := dec.DecodeElement(resp, &se); err != nil {
			return fmt.Errorf("decode %s: %w", se.Name.Local, err)
		}
		return nil
	}
}

// statusFromDetail returns the first text node in a fault detail that looks
// like a device status code (upper case letters and underscores).
func statusFromDetail(detail string) Status {
	if detail == "" {
		return ""
	}
	dec := xml.NewDecoder(strings.NewReader("<detail>" + detail + "</detail>"))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		cd, ok := tok.(xml.CharData)
		if !ok {
			continue
		}
		text := strings.TrimSpace(string(cd))
		if isStatusCode(text) {
			return Status(text)
		}
	}
}

func isStatusCode(s string) bool {
	if len(s) < 2 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && r != '_' {
			return false
		}
	}
	return true
}

// IsFault reports whether err is a SOAP fault, optionally carrying status.
func IsFault(err error, status Status) bool {
	var f *Fault
	if !errors.As(err, &f) {
		return false
	}
	return status == "" || strings.EqualFold(string(f.Status), string(status))
}
