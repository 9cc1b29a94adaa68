package factory

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
)

var (
	// ErrUnknownType is returned by Create for a type nobody registered.
	ErrUnknownType = errors.New("unknown module type")
	// ErrDuplicateType is returned by Register when the name is taken.
	ErrDuplicateType = errors.New("module type already registered")
)

// ModuleConfig selects a module by type and carries its raw settings, as
// found under e.g. metrics.sinks in the config file.
type ModuleConfig struct {
	Type string         `json:"type" validate:"required"`
	Conf map[string]any `json:"conf"`
}

// Factory builds a module from its raw settings.
type Factory[T any] func(conf map[string]any) (T, error)

// Registry maps type names to factories. Names are matched
// case-insensitively so "Influx" and "influx" select the same module.
type Registry[T any] struct {
	kind string

	mu     sync.RWMutex
	byName map[string]Factory[T]
}

// NewRegistry returns an empty registry. kind names the module family in
// error messages, e.g. "metrics sink".
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, byName: map[string]Factory[T]{}}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds f under name.
func (r *Registry[T]) Register(name string, f Factory[T]) error {
	key := normalize(name)
	if key == "" || f == nil {
		return fmt.Errorf("register %s %q: name and factory are required", r.kind, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byName[key]; taken {
		return fmt.Errorf("register %s %q: %w", r.kind, key, ErrDuplicateType)
	}
	r.byName[key] = f
	return nil
}

// Types lists the registered names, sorted.
func (r *Registry[T]) Types() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Create builds the module cfg selects. An unknown type reports the known
// ones so a typo in the config file is easy to spot.
func (r *Registry[T]) Create(cfg ModuleConfig) (T, error) {
	var zero T
	key := normalize(cfg.Type)
	r.mu.RLock()
	f, ok := r.byName[key]
	r.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%s %q: %w (known: %s)", r.kind, cfg.Type, ErrUnknownType, strings.Join(r.Types(), ", "))
	}
	mod, err := f(cfg.Conf)
	if err != nil {
		return zero, fmt.Errorf("%s %q: %w", r.kind, key, err)
	}
	return mod, nil
}

// CreateAll builds every entry of cfgs in order. Each failing entry is
// reported with its index and the errors are joined.
func (r *Registry[T]) CreateAll(cfgs []ModuleConfig) ([]T, error) {
	mods := make([]T, 0, len(cfgs))
	var errs []error
	for i, cfg := range cfgs {
		mod, err := r.Create(cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("[%d] %w", i, err))
			continue
		}
		mods = append(mods, mod)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return mods, nil
}

// Decode copies conf into out, matching keys against json tags. Durations
// may be given as strings such as "30s". Keys out does not declare are
// rejected.
func Decode(conf map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      out,
		ErrorUnused: true,
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(conf)
}
