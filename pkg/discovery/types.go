package discovery

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Service types browsed for printers.
const (
	ServiceTypePrinter   = "_printer._tcp"
	ServiceTypeIPP       = "_ipp._tcp"
	ServiceTypePDLStream = "_pdl-datastream._tcp"
	Domain               = "local."
	BrowseTimeout        = 5 * time.Second
)

// DefaultServiceTypes lists the service types browsed by default.
var DefaultServiceTypes = []string{ServiceTypeIPP, ServiceTypePrinter, ServiceTypePDLStream}

// TXT record keys.
const (
	TXTKeyType         = "ty"
	TXTKeyManufacturer = "usb_MFG"
	TXTKeyModel        = "usb_MDL"
	TXTKeyProduct      = "product"
	TXTKeyAdminURL     = "adminurl"
	TXTKeyNote         = "note"
)

var (
	// ErrNotFound is returned when no printer matched before the deadline.
	ErrNotFound = errors.New("printer not found")

	// ErrNoServiceTypes is returned when a browser has nothing to browse.
	ErrNoServiceTypes = errors.New("no service types configured")
)

// ricohBrands are manufacturer names that identify Ricoh hardware.
var ricohBrands = []string{"ricoh", "savin", "lanier", "gestetner", "nrg", "infotec"}

// Printer is one discovered device.
type Printer struct {
	// InstanceName is the DNS-SD instance name, e.g. "RICOH MP C3004 [002673A1B2C3]".
	InstanceName string

	// Host is the advertised host name.
	Host string

	// Port is the port of the first service seen.
	Port uint16

	// Addresses are the IPv4 and IPv6 addresses seen across interfaces.
	Addresses []string

	// Services lists the service types the printer was seen under.
	Services []string

	Manufacturer string
	Model        string
	Product      string
	AdminURL     string
	Location     string

	// TXT holds every key seen, later announcements winning.
	TXT TXTRecordMap

	// LastSeen is when the latest announcement arrived.
	LastSeen time.Time
}

// IsRicoh reports whether the printer is a Ricoh or Ricoh-brand device.
func (p *Printer) IsRicoh() bool {
	for _, s := range []string{p.Manufacturer, p.Model, p.Product, p.InstanceName} {
		lower := strings.ToLower(s)
		for _, brand := range ricohBrands {
			if strings.Contains(lower, brand) {
				return true
			}
		}
	}
	return false
}

// Address returns the address to reach the device's SOAP endpoints: the
// admin URL host when one is advertised, else the first IPv4 address, else
// the host name.
func (p *Printer) Address() string {
	if p.AdminURL != "" {
		if u, err := url.Parse(p.AdminURL); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	for _, a := range p.Addresses {
		if !strings.Contains(a, ":") {
			return a
		}
	}
	if len(p.Addresses) > 0 {
		return p.Addresses[0]
	}
	return strings.TrimSuffix(p.Host, ".")
}

// String returns a one-line description.
func (p *Printer) String() string {
	name := p.Model
	if name == "" {
		name = p.InstanceName
	}
	return fmt.Sprintf("%s (%s)", name, p.Address())
}

func (p *Printer) clone() *Printer {
	c := *p
	c.Addresses = slices.Clone(p.Addresses)
	c.Services = slices.Clone(p.Services)
	c.TXT = make(TXTRecordMap, len(p.TXT))
	for k, v := range p.TXT {
		c.TXT[k] = v
	}
	return &c
}

// merge folds a later announcement of the same instance into p.
func (p *Printer) merge(other *Printer) {
	p.Addresses = mergeAddresses(p.Addresses, other.Addresses)
	for _, s := range other.Services {
		if !slices.Contains(p.Services, s) {
			p.Services = append(p.Services, s)
		}
	}
	if p.Host == "" {
		p.Host = other.Host
	}
	if p.Port == 0 {
		p.Port = other.Port
	}
	if p.TXT == nil {
		p.TXT = make(TXTRecordMap)
	}
	for k, v := range other.TXT {
		p.TXT[k] = v
	}
	p.applyTXT()
	if other.LastSeen.After(p.LastSeen) {
		p.LastSeen = other.LastSeen
	}
}
