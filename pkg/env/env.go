// Package env provides helpers shared by the chain daemons to set up
// their environment.
package env

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves the unique ID identifying the machine.
func MachineID() string {
	id, err := machineid.ID()
	if err != nil {
		panic(err)
	}
	return id
}

// ShortMachineID returns the first n characters of MachineID, or
// fallback if the machine ID is not available.
func ShortMachineID(n int, fallback string) string {
	id, err := machineid.ID()
	if err != nil || id == "" {
		return fallback
	}
	if len(id) > n {
		id = id[:n]
	}
	return id
}

// File is a decoded TOML config file.
type File struct {
	meta toml.MetaData
}

// LoadFile decodes the TOML file at path into out. The returned File
// tells which keys were present, so defaults are only overridden by
// keys actually set.
func LoadFile(path string, out interface{}) (*File, error) {
	meta, err := toml.DecodeFile(path, out)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for n, key := range undecoded {
			keys[n] = key.String()
		}
		return nil, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return &File{meta: meta}, nil
}

// IsDefined tells whether key is set in the file.
func (f *File) IsDefined(key ...string) bool {
	return f.meta.IsDefined(key...)
}

// String overrides dst with val when key is set.
func (f *File) String(key string, val string, dst *string) {
	if f.IsDefined(key) {
		*dst = strings.TrimSpace(val)
	}
}

// Int overrides dst with val when key is set.
func (f *File) Int(key string, val int, dst *int) {
	if f.IsDefined(key) {
		*dst = val
	}
}

// Duration parses val into dst when key is set.
func (f *File) Duration(key string, val string, dst *time.Duration) error {
	if !f.IsDefined(key) {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}

// ConfigPath finds the value of the -config flag in args before flags
// are parsed, so a config file can provide defaults that command line
// flags still override.
func ConfigPath(args []string) string {
	for n, arg := range args {
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg || len(arg)-len(name) > 2 {
			continue
		}
		switch {
		case name == "config" && n+1 < len(args):
			return args[n+1]
		case strings.HasPrefix(name, "config="):
			return name[len("config="):]
		}
	}
	return ""
}
