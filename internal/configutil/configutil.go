// Package configutil reads json5 configuration files.
package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalName returns the name of the local override of a config file, ex.
// "config.json5" -> "config.local.json5".
func LocalName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// parse reads a json5 file into out. ${VAR} references are expanded from the
// environment first, so secrets can stay out of the file.
func parse[T any](name string, out *T) (found bool, err error) {
	content, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(content) == 0) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	expanded := os.Expand(string(content), func(key string) string {
		value, ok := os.LookupEnv(key)
		if !ok {
			return "${" + key + "}"
		}
		return value
	})
	err = json5.Unmarshal([]byte(expanded), out)
	if err != nil {
		return true, fmt.Errorf("parse %s: %w", name, err)
	}
	return true, nil
}

// ReadConfig reads a configuration file, values of <name>.local.<ext> take
// precedence over the ones of <name>.<ext>. os.ErrNotExist is returned only
// when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found, err := parse(name, &out)
	if err != nil {
		return out, err
	}

	local := LocalName(name)
	var override T
	foundLocal, err := parse(local, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", local, err)
		}
		slog.Info("merging config with local overrides", "local", local)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}
