package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/davsync/pkg/errors"
)

// parseErrTemplate is shown when the config file isn't valid YAML for the
// User type. The parser's errors don't say which field is at fault, so its
// message is passed on as is.
const parseErrTemplate = "The davsync config %q could not be parsed.\n" +
	"Check that every field has the right type, and that there are no " +
	"misspelled or extra fields.\n\n" +
	"Parser error: %s"

type incompatibleVersionError struct {
	path, exp, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("The config %q was written for a different version "+
		"of davsync.\nExpected version %q, but got %q.", err.path, err.exp, err.actual)
}

// readUser fills `cfg` from the file at `path`. Fields missing from the file
// keep their current value, so `cfg` should start as the defaults.
func readUser(path string, cfg *User) error {
	contents, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return errors.FileNotFound{Path: path}
	}
	if err != nil {
		return errors.WithContext(err, "read file")
	}

	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return errors.NewFriendlyError(parseErrTemplate, path, err)
	}

	// The version is checked before unknown fields, since a config from
	// another version is likely to have fields this version doesn't know.
	if cfg.Version != SupportedUserConfigVersion {
		return incompatibleVersionError{path, SupportedUserConfigVersion, cfg.Version}
	}

	if err := yaml.UnmarshalStrict(contents, cfg, yaml.DisallowUnknownFields); err != nil {
		return errors.NewFriendlyError(parseErrTemplate, path, err)
	}
	return nil
}
