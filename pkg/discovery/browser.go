package discovery

import (
	"context"
	"log/slog"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout bounds Collect when the context has no deadline.
	// Default: 5 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// ServiceTypes lists the DNS-SD service types to browse.
	// Default: DefaultServiceTypes.
	ServiceTypes []string

	// RicohOnly drops printers that IsRicoh rejects.
	RicohOnly bool

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
		ServiceTypes:  slices.Clone(DefaultServiceTypes),
		RicohOnly:     true,
	}
}

// announcement is one answer from the network, independent of the mDNS
// library's entry type.
type announcement struct {
	service string
	printer *Printer
	removed bool
}

// source browses one service type and delivers announcements until ctx is
// done.
type source func(ctx context.Context, service string, out chan<- announcement) error

// Browser discovers printers over mDNS.
type Browser struct {
	config BrowserConfig
	logger *slog.Logger
	source source
}

// NewBrowser creates a Browser.
func NewBrowser(config BrowserConfig) (*Browser, error) {
	if len(config.ServiceTypes) == 0 {
		return nil, ErrNoServiceTypes
	}
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Browser{config: config, logger: logger}
	b.source = b.zeroconfSource
	return b, nil
}

// Browse streams a copy of each printer once, when it is first accepted.
// The channel is closed when ctx is done.
func (b *Browser) Browse(ctx context.Context) (<-chan *Printer, error) {
	out := make(chan *Printer)
	in := b.start(ctx)

	go func() {
		defer close(out)
		agg := newAggregator()
		emitted := make(map[string]bool)
		for a := range in {
			p, _ := agg.apply(a)
			if p == nil || a.removed || !b.accept(p) {
				continue
			}
			key := strings.ToLower(p.InstanceName)
			if emitted[key] {
				continue
			}
			emitted[key] = true
			select {
			case out <- p.clone():
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Collect browses until the context is done or the configured timeout
// elapses and returns every printer seen, sorted by instance name.
func (b *Browser) Collect(ctx context.Context) ([]*Printer, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.BrowseTimeout)
		defer cancel()
	}

	agg := newAggregator()
	for a := range b.start(ctx) {
		agg.apply(a)
	}

	var printers []*Printer
	for _, p := range agg.printers() {
		if b.accept(p) {
			printers = append(printers, p)
		}
	}
	b.logger.Info("discovery finished", "printers", len(printers))
	return printers, nil
}

// Find returns the first printer whose instance name, host or address
// contains name (case-insensitive).
func (b *Browser) Find(ctx context.Context, name string) (*Printer, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for p := range results {
		if p.matches(name) {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (b *Browser) accept(p *Printer) bool {
	return !b.config.RicohOnly || p.IsRicoh()
}

// start runs one source per service type and fans their output into a
// single channel that is closed when all sources have returned.
func (b *Browser) start(ctx context.Context) <-chan announcement {
	out := make(chan announcement)
	var wg sync.WaitGroup
	for _, service := range b.config.ServiceTypes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.source(ctx, service, out); err != nil && ctx.Err() == nil {
				b.logger.Warn("browse failed", "service", service, "error", err)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// zeroconfSource browses service with zeroconf.
func (b *Browser) zeroconfSource(ctx context.Context, service string, out chan<- announcement) error {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	done := make(chan error, 1)
	go func() {
		done <- zeroconf.Browse(ctx, service, Domain, entries, removed, b.browserOptions()...)
	}()

	forward := func(entry *zeroconf.ServiceEntry, gone bool) bool {
		p := entryToPrinter(service, entry)
		if p == nil {
			return true
		}
		select {
		case out <- announcement{service: service, printer: p, removed: gone}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			if !forward(entry, false) {
				return nil
			}
		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			if !forward(entry, true) {
				return nil
			}
		case err := <-done:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	// Select specific interface if configured
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		} else {
			b.logger.Warn("unknown interface, browsing all", "interface", b.config.Interface, "error", err)
		}
	}

	return opts
}

// entryToPrinter converts a zeroconf entry to a Printer.
func entryToPrinter(service string, entry *zeroconf.ServiceEntry) *Printer {
	if entry == nil {
		return nil
	}
	ips := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	ips = append(ips, entry.AddrIPv4...)
	ips = append(ips, entry.AddrIPv6...)
	return newPrinter(service, entry.Instance, entry.HostName, entry.Port, ips, entry.Text)
}

// aggregator tracks printers by instance name. Addresses from multiple
// interfaces and service types are combined into a single entry.
type aggregator struct {
	byInstance map[string]*Printer
}

func newAggregator() *aggregator {
	return &aggregator{byInstance: make(map[string]*Printer)}
}

// apply folds a into the known printers and reports whether it introduced
// a new instance.
func (g *aggregator) apply(a announcement) (*Printer, bool) {
	key := strings.ToLower(a.printer.InstanceName)
	existing, found := g.byInstance[key]

	if a.removed {
		if !found {
			return nil, false
		}
		existing.Addresses = removeAddresses(existing.Addresses, a.printer.Addresses)
		if len(existing.Addresses) == 0 {
			delete(g.byInstance, key)
		}
		return existing, false
	}

	if found {
		existing.merge(a.printer)
		return existing, false
	}
	g.byInstance[key] = a.printer
	return a.printer, true
}

// printers returns the known printers sorted by instance name.
func (g *aggregator) printers() []*Printer {
	out := make([]*Printer, 0, len(g.byInstance))
	for _, p := range g.byInstance {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Printer) int {
		return strings.Compare(strings.ToLower(a.InstanceName), strings.ToLower(b.InstanceName))
	})
	return out
}

func (p *Printer) matches(name string) bool {
	name = strings.ToLower(name)
	if strings.Contains(strings.ToLower(p.InstanceName), name) || strings.Contains(strings.ToLower(p.Host), name) {
		return true
	}
	return slices.Contains(p.Addresses, name)
}
