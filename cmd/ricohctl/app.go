package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"go.uber.org/multierr"

	"github.com/gheeres/ricoh-go/cmd/ricohctl/commands"
	"github.com/gheeres/ricoh-go/cmd/ricohctl/interactive"
	"github.com/gheeres/ricoh-go/pkg/config"
	"github.com/gheeres/ricoh-go/pkg/devicemanagement"
	"github.com/gheeres/ricoh-go/pkg/discovery"
	"github.com/gheeres/ricoh-go/pkg/log"
	"github.com/gheeres/ricoh-go/pkg/persistence"
	"github.com/gheeres/ricoh-go/pkg/publish"
	"github.com/gheeres/ricoh-go/pkg/transport"
	"github.com/gheeres/ricoh-go/pkg/udirectory"
	"github.com/gheeres/ricoh-go/pkg/version"
)

var errNoHost = errors.New("no device host (use -host, RICOH_HOST or device.host)")

// commandNames feed shell completion.
var commandNames = []string{
	"discover", "counters", "clear", "caps", "access", "restrict", "allow",
	"users", "tags", "add-user", "delete", "send", "log", "version",
}

// app owns the long-lived clients of one ricohctl run. Clients are created
// on first use and shared by every command, so the shell keeps one device
// session per service.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	capture log.Logger

	// prompt asks for the device password when none is configured.
	prompt func(user string) (string, error)

	dm    *devicemanagement.Service
	dir   *udirectory.Service
	store *persistence.CounterStore
	pub   *publish.Publisher
}

func newApp(cfg *config.Config, logger *slog.Logger, capture log.Logger) *app {
	return &app{cfg: cfg, logger: logger, capture: capture}
}

func (a *app) credentials() error {
	if a.cfg.Device.Host == "" {
		return errNoHost
	}
	if a.cfg.Device.Password != "" || a.prompt == nil {
		return nil
	}
	pw, err := a.prompt(a.cfg.Device.Username)
	if err != nil {
		return err
	}
	a.cfg.Device.Password = pw
	return nil
}

func (a *app) deviceManagement() (*devicemanagement.Service, error) {
	if a.dm != nil {
		return a.dm, nil
	}
	if err := a.credentials(); err != nil {
		return nil, err
	}
	cfg := a.cfg.DeviceManagement()
	cfg.Logger = a.logger
	cfg.ProtocolLogger = a.capture
	svc, err := devicemanagement.Dial(cfg)
	if err != nil {
		return nil, err
	}
	if pub, err := a.publisher(); err != nil {
		a.logger.Warn("events not published", "error", err)
	} else if pub != nil {
		svc.OnEvent(pub.DeviceManagementHandler())
	}
	a.dm = svc
	return svc, nil
}

func (a *app) directory() (*udirectory.Service, error) {
	if a.dir != nil {
		return a.dir, nil
	}
	if err := a.credentials(); err != nil {
		return nil, err
	}
	cfg := a.cfg.Directory()
	cfg.Logger = a.logger
	cfg.ProtocolLogger = a.capture
	svc, err := udirectory.Dial(cfg)
	if err != nil {
		return nil, err
	}
	if pub, err := a.publisher(); err != nil {
		a.logger.Warn("events not published", "error", err)
	} else if pub != nil {
		svc.OnEvent(pub.DirectoryHandler())
	}
	a.dir = svc
	return svc, nil
}

func (a *app) counterStore() (*persistence.CounterStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := persistence.OpenCounterStore(a.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

// publisher returns nil without an error when no broker is configured.
func (a *app) publisher() (*publish.Publisher, error) {
	if a.pub != nil || a.cfg.MQTT.Broker == "" {
		return a.pub, nil
	}
	cfg := a.cfg.Publish()
	cfg.Logger = a.logger
	p, err := publish.Connect(cfg)
	if err != nil {
		return nil, err
	}
	a.pub = p
	return p, nil
}

func (a *app) close(ctx context.Context) error {
	var errs error
	if a.dm != nil {
		errs = multierr.Append(errs, a.dm.Close(ctx))
	}
	if a.dir != nil {
		errs = multierr.Append(errs, a.dir.Close(ctx))
	}
	if a.store != nil {
		errs = multierr.Append(errs, a.store.Close())
	}
	if a.pub != nil {
		a.pub.Close()
	}
	if errs != nil {
		a.logger.Warn("shutdown incomplete", "error", errs)
	}
	return errs
}

func (a *app) shell(ctx context.Context) error {
	sh, err := interactive.New("ricoh> ", commandNames, a.dispatch, printUsage)
	if err != nil {
		return err
	}
	return sh.Run(ctx)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, usage)
}

// newFlagSet returns a flag set that reports errors instead of exiting, so
// a typo in the shell does not end it.
func newFlagSet(name, synopsis string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() {
		fmt.Fprintf(w, "Usage:\n  ricohctl %s %s\n\nFlags:\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args. A help request is reported as done with no error.
func parse(fs *flag.FlagSet, args []string) (done bool, err error) {
	err = fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return true, nil
	}
	return err != nil, err
}

func parseIDs(args []string) ([]uint32, error) {
	ids := make([]uint32, 0, len(args))
	for _, s := range args {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", s)
		}
		ids = append(ids, uint32(v))
	}
	return ids, nil
}

// dispatch runs one command with its arguments.
func (a *app) dispatch(ctx context.Context, cmd string, args []string, w io.Writer) error {
	switch cmd {
	case "discover":
		return a.runDiscover(ctx, args, w)
	case "counters":
		return a.runCounters(ctx, args, w)
	case "clear":
		return a.runClear(ctx, args, w)
	case "caps":
		svc, err := a.deviceManagement()
		if err != nil {
			return err
		}
		return commands.RunCapabilities(ctx, svc, w)
	case "access":
		svc, err := a.deviceManagement()
		if err != nil {
			return err
		}
		return commands.RunAccess(ctx, svc, w)
	case "restrict", "allow":
		return a.runSetAccess(ctx, cmd == "allow", args, w)
	case "users":
		svc, err := a.directory()
		if err != nil {
			return err
		}
		return commands.RunUsers(ctx, svc, w)
	case "tags":
		svc, err := a.directory()
		if err != nil {
			return err
		}
		return commands.RunTags(ctx, svc, w)
	case "add-user":
		return a.runAddUser(ctx, args, w)
	case "delete":
		return a.runDelete(ctx, args, w)
	case "send":
		return a.runSend(ctx, args, w)
	case "log":
		return runLog(args, w)
	case "version":
		fmt.Fprintln(w, version.Get())
		return nil
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
}

func (a *app) runDiscover(ctx context.Context, args []string, w io.Writer) error {
	fs := newFlagSet("discover", "[flags]", w)
	all := fs.Bool("all", a.cfg.Discovery.AllBrands, "Include printers of other brands")
	timeout := fs.Duration("timeout", a.cfg.Discovery.Timeout.Std(), "Browse time")
	doPublish := fs.Bool("publish", false, "Publish the result to MQTT")
	if done, err := parse(fs, args); done {
		return err
	}

	bc := a.cfg.Browser()
	bc.RicohOnly = !*all
	bc.BrowseTimeout = *timeout
	bc.Logger = a.logger
	b, err := discovery.NewBrowser(bc)
	if err != nil {
		return err
	}

	var pub commands.PrinterPublisher
	if *doPublish {
		p, err := a.requirePublisher()
		if err != nil {
			return err
		}
		pub = p
	}
	return commands.RunDiscover(ctx, b, pub, w)
}

func (a *app) requirePublisher() (*publish.Publisher, error) {
	p, err := a.publisher()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("no MQTT broker configured (mqtt.broker)")
	}
	return p, nil
}

func (a *app) runCounters(ctx context.Context, args []string, w io.Writer) error {
	fs := newFlagSet("counters", "[flags]", w)
	save := fs.Bool("save", false, "Store a snapshot")
	diff := fs.Bool("diff", false, "Show usage since the previous snapshot")
	doPublish := fs.Bool("publish", false, "Publish counters (and usage with -diff) to MQTT")
	if done, err := parse(fs, args); done {
		return err
	}

	svc, err := a.deviceManagement()
	if err != nil {
		return err
	}
	opts := commands.CounterOptions{Save: *save, Diff: *diff, Keep: a.cfg.Store.Keep}
	if *save || *diff {
		s, err := a.counterStore()
		if err != nil {
			return err
		}
		opts.Store = s
	}
	if *doPublish {
		p, err := a.requirePublisher()
		if err != nil {
			return err
		}
		opts.Publisher = p
	}
	return commands.RunCounters(ctx, svc, opts, w)
}

func (a *app) runClear(ctx context.Context, args []string, w io.Writer) error {
	fs := newFlagSet("clear", "[-all] [index...]", w)
	all := fs.Bool("all", false, "Reset every counter on the device")
	if done, err := parse(fs, args); done {
		return err
	}
	indexes, err := parseIDs(fs.Args())
	if err != nil {
		return err
	}
	svc, err := a.deviceManagement()
	if err != nil {
		return err
	}
	return commands.RunClear(ctx, svc, *all, indexes, w)
}

func (a *app) runSetAccess(ctx context.Context, allow bool, args []string, w io.Writer) error {
	if len(args) != 2 {
		return errors.New("usage: restrict|allow <index> <function[,function...]>")
	}
	ids, err := parseIDs(args[:1])
	if err != nil {
		return err
	}
	svc, err := a.deviceManagement()
	if err != nil {
		return err
	}
	return commands.RunSetAccess(ctx, svc, ids[0], args[1], allow, w)
}

func (a *app) runAddUser(ctx context.Context, args []string, w io.Writer) error {
	fs := newFlagSet("add-user", "-name <name> [flags]", w)
	var u udirectory.User
	fs.StringVar(&u.Name, "name", "", "Entry name (required)")
	fs.StringVar(&u.Usercode, "code", "", "User code")
	fs.StringVar(&u.DisplayName, "display", "", "Display name")
	fs.StringVar(&u.Email, "email", "", "Email address")
	if done, err := parse(fs, args); done {
		return err
	}
	svc, err := a.directory()
	if err != nil {
		return err
	}
	return commands.RunAddUser(ctx, svc, u, w)
}

func (a *app) runDelete(ctx context.Context, args []string, w io.Writer) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	svc, err := a.directory()
	if err != nil {
		return err
	}
	return commands.RunDelete(ctx, svc, ids, w)
}

func (a *app) runSend(ctx context.Context, args []string, w io.Writer) error {
	fs := newFlagSet("send", "[-service name] <action> <file|->", w)
	service := fs.String("service", devicemanagement.ServiceName, "Service: devicemanagement, udirectory")
	if done, err := parse(fs, args); done {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errors.New("action and envelope file required")
	}
	if *service != devicemanagement.ServiceName && *service != udirectory.ServiceName {
		return fmt.Errorf("unknown service %q", *service)
	}
	if a.cfg.Device.Host == "" {
		return errNoHost
	}

	cc := transport.DefaultClientConfig(a.cfg.Device.Host, *service)
	cc.Timeout = a.cfg.Device.Timeout.Std()
	cc.Logger = a.logger
	cc.ProtocolLogger = a.capture
	client, err := transport.NewClient(cc)
	if err != nil {
		return err
	}
	return commands.RunSend(ctx, client, fs.Arg(0), fs.Arg(1), w)
}

func runLog(args []string, w io.Writer) error {
	fs := newFlagSet("log", "[flags] <capture file>", w)
	var opts commands.LogOptions
	stats := fs.Bool("stats", false, "Show per-action statistics")
	fs.StringVar(&opts.ExchangeID, "exchange", "", "Filter by exchange ID")
	fs.StringVar(&opts.Host, "host", "", "Filter by device host")
	fs.StringVar(&opts.Action, "action", "", "Filter by action")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, envelope, session)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, state, error)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Events at or after (RFC 3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Events before (RFC 3339)")
	fs.BoolVar(&opts.Envelopes, "envelopes", false, "Print captured envelopes")
	if done, err := parse(fs, args); done {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("capture file path required")
	}
	if *stats {
		return commands.RunLogStats(fs.Arg(0), w)
	}
	return commands.RunLogView(fs.Arg(0), opts, w)
}
