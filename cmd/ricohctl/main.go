// Command ricohctl manages user counters, user restrictions and the address
// book of Ricoh multifunction devices.
//
// Usage:
//
//	ricohctl [global flags] <command> [flags] [args]
//
// Examples:
//
//	# Find devices on the local network
//	ricohctl discover
//
//	# Show counters, usage since the last run, and store a snapshot
//	ricohctl -host 10.0.0.20 counters -diff -save
//
//	# Block copying for user slot 12
//	ricohctl -host 10.0.0.20 restrict 12 copier
//
//	# Inspect a protocol capture
//	ricohctl log -category error capture.cbor
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/gheeres/ricoh-go/pkg/config"
	"github.com/gheeres/ricoh-go/pkg/log"
	"github.com/gheeres/ricoh-go/pkg/version"
)

const usage = `ricohctl - Ricoh device management

Usage:
  ricohctl [global flags] <command> [flags] [args]

Commands:
  discover               Find printers via mDNS
  counters               Show user counters (-diff, -save, -publish)
  clear [-all] <index>   Reset user counters
  caps                   Show restrictable functions
  access                 Show user restrictions
  restrict <index> <fn>  Block functions for a user (copier,printer,...)
  allow <index> <fn>     Allow functions for a user
  users                  List the address book
  tags                   List the address book tags
  add-user               Add an address book user
  delete <id>...         Delete address book entries
  send <action> <file>   Post a raw envelope
  log <file>             View a protocol capture (-stats for a summary)
  shell                  Interactive shell
  version                Print the build version

Global flags:
`

// globalFlags are the flags before the command name.
type globalFlags struct {
	configPath string
	host       string
	username   string
	password   string
	logLevel   string
	logFormat  string
	capture    string
}

func parseGlobal(args []string, stderr io.Writer) (globalFlags, []string, error) {
	var g globalFlags
	fs := flag.NewFlagSet("ricohctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&g.configPath, "config", os.Getenv("RICOH_CONFIG"), "Configuration file (.yaml or .toml)")
	fs.StringVar(&g.host, "host", "", "Device host name or address")
	fs.StringVar(&g.username, "user", "", "Device user name")
	fs.StringVar(&g.password, "password", "", "Device password (prompted when empty)")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&g.logFormat, "log-format", "", "Log format: text, json")
	fs.StringVar(&g.capture, "capture", "", "Write protocol capture events to this file")
	if err := fs.Parse(args); err != nil {
		return g, nil, err
	}
	return g, fs.Args(), nil
}

// apply overrides cfg with the flags that were set.
func (g globalFlags) apply(cfg *config.Config) error {
	if g.host != "" {
		cfg.Device.Host = g.host
	}
	if g.username != "" {
		cfg.Device.Username = g.username
	}
	if g.password != "" {
		cfg.Device.Password = g.password
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if g.capture != "" {
		cfg.Log.Capture = g.capture
	}
	return cfg.Validate()
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// promptPassword reads the device password from the terminal.
func promptPassword(user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", user)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

func main() {
	g, args, err := parseGlobal(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "help", "-h", "-help", "--help":
		fmt.Print(usage)
		return
	case "version":
		fmt.Println(version.Get())
		return
	}

	if err := run(cmd, rest, g); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string, g globalFlags) error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if err := g.apply(cfg); err != nil {
		return err
	}

	logger := newLogger(cfg.Log, os.Stderr)

	var capture log.Logger
	if cfg.Log.Capture != "" {
		fl, err := log.NewFileLogger(cfg.Log.Capture)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %w", err)
		}
		defer fl.Close()
		capture = log.NewMultiLogger(fl, log.NewSlogAdapter(logger))
	} else if logger.Enabled(context.Background(), slog.LevelDebug) {
		capture = log.NewSlogAdapter(logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, logger, capture)
	a.prompt = promptPassword
	defer a.close(context.Background())

	if cmd == "shell" {
		return a.shell(ctx)
	}
	return a.dispatch(ctx, cmd, args, os.Stdout)
}
