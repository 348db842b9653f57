package cli

import (
	"fmt"
	"os"

	"github.com/perales/rite/internal/config"
	"github.com/perales/rite/internal/storage"
)

// resolveDBPath returns the --db flag value, falling back to the
// environment-configured default when the flag was not given.
func resolveDBPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", WrapExitError(ExitCommandError, "load configuration", err)
	}
	return cfg.DBPath, nil
}

// openStore opens the validation store at path, refusing to create one.
// storage.Open would happily initialize an empty database at a mistyped
// path, so a missing file is surfaced as a command error instead.
func openStore(path string) (*storage.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}

	store, err := storage.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open validation store", err)
	}
	return store, nil
}
