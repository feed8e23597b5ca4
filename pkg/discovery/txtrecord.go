package discovery

import (
	"net"
	"strings"
	"time"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// Get returns the value of key, matched case-insensitively as DNS-SD
// requires.
func (t TXTRecordMap) Get(key string) string {
	if v, ok := t[key]; ok {
		return v
	}
	for k, v := range t {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// newPrinter builds a Printer from one announcement.
func newPrinter(service, instance, host string, port int, ips []net.IP, text []string) *Printer {
	if instance == "" {
		return nil
	}
	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		if ip != nil {
			addrs = append(addrs, ip.String())
		}
	}
	p := &Printer{
		InstanceName: unescapeInstance(instance),
		Host:         host,
		Port:         uint16(port),
		Addresses:    mergeAddresses(nil, addrs),
		TXT:          StringsToTXTRecords(text),
		LastSeen:     time.Now(),
	}
	if service != "" {
		p.Services = []string{service}
	}
	p.applyTXT()
	return p
}

// applyTXT fills the descriptive fields from the TXT map.
func (p *Printer) applyTXT() {
	if v := p.TXT.Get(TXTKeyManufacturer); v != "" {
		p.Manufacturer = v
	}
	if v := p.TXT.Get(TXTKeyModel); v != "" {
		p.Model = v
	}
	if v := p.TXT.Get(TXTKeyType); v != "" {
		p.Model = v
	}
	if v := p.TXT.Get(TXTKeyProduct); v != "" {
		p.Product = strings.TrimSuffix(strings.TrimPrefix(v, "("), ")")
	}
	if v := p.TXT.Get(TXTKeyAdminURL); v != "" {
		p.AdminURL = v
	}
	if v := p.TXT.Get(TXTKeyNote); v != "" {
		p.Location = v
	}
	if p.Manufacturer == "" && p.Model != "" {
		p.Manufacturer, _, _ = strings.Cut(p.Model, " ")
	}
}

// unescapeInstance removes DNS-SD escapes ("\ " and "\.") from an instance
// name.
func unescapeInstance(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the given addresses from the list.
func removeAddresses(addresses, gone []string) []string {
	toRemove := make(map[string]bool, len(gone))
	for _, a := range gone {
		toRemove[a] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
