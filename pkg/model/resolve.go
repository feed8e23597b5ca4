package model

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/gheeres/ricoh-go/pkg/wire"
)

// Field conversion errors.
var (
	ErrUnknownFieldType = errors.New("unknown field type")
	ErrInvalidValue     = errors.New("invalid field value")
)

// Converter turns a raw field into a typed one. capability may be nil.
type Converter func(raw wire.Field, capability *wire.FieldCapability, logger *slog.Logger) (Field, error)

// Resolver converts raw fields into typed fields through a registry keyed
// by type tag. It is safe for concurrent use.
type Resolver struct {
	mu         sync.RWMutex
	converters map[string]Converter
	logger     *slog.Logger
}

// NewResolver creates a resolver with the string, unsigned int and enum
// converters registered.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Resolver{
		converters: make(map[string]Converter),
		logger:     logger,
	}
	r.Register(TypeString, convertString)
	r.Register(TypeUnsignedInt, convertUint)
	r.Register(TypeEnum, convertEnum)
	return r
}

// Register installs conv for tag, replacing any existing converter.
func (r *Resolver) Register(tag string, conv Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[strings.ToUpper(tag)] = conv
}

// Convert converts one raw field. Unknown tags yield ErrUnknownFieldType.
func (r *Resolver) Convert(raw wire.Field, capability *wire.FieldCapability) (Field, error) {
	r.mu.RLock()
	conv, ok := r.converters[strings.ToUpper(strings.TrimSpace(raw.Type))]
	r.mu.RUnlock()
	if !ok {
		return Field{}, fmt.Errorf("%w: %q", ErrUnknownFieldType, raw.Type)
	}
	f, err := conv(raw, capability, r.logger)
	if err != nil {
		return Field{}, err
	}
	f.Name = raw.Name
	f.ExternalType = raw.Type
	f.Access = AccessOf(capability)
	return f, nil
}

// Resolve converts one raw field and reports whether a field was produced.
// Failures are logged and never returned.
func (r *Resolver) Resolve(raw wire.Field, capability *wire.FieldCapability) (Field, bool) {
	f, err := r.Convert(raw, capability)
	if err != nil {
		r.logger.Warn("field skipped",
			"name", raw.Name,
			"type", raw.Type,
			"value", raw.Value,
			"error", err)
		return Field{}, false
	}
	return f, true
}

// ResolveAll converts raws in order, matching each to its capability by
// name. Fields that do not convert are left out.
func (r *Resolver) ResolveAll(raws []wire.Field, capabilities []wire.FieldCapability) Fields {
	out := make(Fields, 0, len(raws))
	for _, raw := range raws {
		if f, ok := r.Resolve(raw, FindCapability(capabilities, raw.Name)); ok {
			out = append(out, f)
		}
	}
	return out
}

func convertString(raw wire.Field, _ *wire.FieldCapability, _ *slog.Logger) (Field, error) {
	return Field{kind: KindString, str: raw.Value}, nil
}

func convertUint(raw wire.Field, _ *wire.FieldCapability, _ *slog.Logger) (Field, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw.Value), 10, 32)
	if err != nil {
		return Field{}, fmt.Errorf("%w: %q is not an unsigned integer", ErrInvalidValue, raw.Value)
	}
	return Field{kind: KindUint, num: uint32(n)}, nil
}

func convertEnum(raw wire.Field, capability *wire.FieldCapability, logger *slog.Logger) (Field, error) {
	v := strings.TrimSpace(raw.Value)
	switch {
	case strings.EqualFold(v, On):
		return Field{kind: KindBool, flag: true}, nil
	case strings.EqualFold(v, Off):
		return Field{kind: KindBool, flag: false}, nil
	}

	attrs := []any{"name", raw.Name, "value", raw.Value}
	if capability != nil {
		attrs = append(attrs, "rangeType", capability.RangeType, "valueEnum", strings.Join(capability.ValueEnum, ","))
	}
	logger.Warn("unknown enum value", attrs...)

	b, err := strconv.ParseBool(v)
	if err != nil {
		return Field{}, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, raw.Value)
	}
	return Field{kind: KindBool, flag: b}, nil
}
