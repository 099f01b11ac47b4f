package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/davsync/pkg/errors"
)

const (
	// UserConfigPath is the default path to the davsync config.
	UserConfigPath = "~/.davsync.yaml"

	// InitialUserConfigVersion is the first version of the davsync config.
	// Config files that do not specify a version will default to this
	// version.
	InitialUserConfigVersion = "v1alpha1"

	// SupportedUserConfigVersion is the supported version of the davsync
	// config of the current davsync binary.
	SupportedUserConfigVersion = "v1alpha1"

	// DefaultSyncIntervalSeconds is how often the agent syncs when nothing
	// else triggers it.
	DefaultSyncIntervalSeconds = 300

	// DefaultAPIAddress is the loopback address the agent serves its
	// command API on.
	DefaultAPIAddress = "127.0.0.1:47321"

	defaultPersonalSyncPath = "~/DavSync/Personal"
	defaultSharedSyncPath   = "~/DavSync/Shared"
)

// User contains the account and sync directory settings of the agent.
type User struct {
	Version string `json:"version,omitempty"`

	// ServerURL is the base URL of the document server, e.g.
	// "https://docs.example.com". The WebDAV endpoints live below it.
	ServerURL string `json:"serverURL"`

	// UserEmail identifies the account, and is used as the WebDAV username.
	UserEmail string `json:"userEmail"`
	TenantID  string `json:"tenantID,omitempty"`

	PersonalSyncPath string `json:"personalSyncPath"`
	SharedSyncPath   string `json:"sharedSyncPath"`

	SyncIntervalSeconds int   `json:"syncIntervalSeconds"`
	WatchLocalChanges   bool  `json:"watchLocalChanges"`
	SyncOnStartup       bool  `json:"syncOnStartup"`
	MaxFileSizeBytes    int64 `json:"maxFileSizeBytes"`

	RclonePath string `json:"rclonePath,omitempty"`
	APIAddress string `json:"apiAddress,omitempty"`
}

// Default returns the config used for any field that isn't set in the
// config file.
func Default() User {
	return User{
		Version:             InitialUserConfigVersion,
		PersonalSyncPath:    defaultPersonalSyncPath,
		SharedSyncPath:      defaultSharedSyncPath,
		SyncIntervalSeconds: DefaultSyncIntervalSeconds,
		WatchLocalChanges:   true,
		SyncOnStartup:       true,
		RclonePath:          "rclone",
		APIAddress:          DefaultAPIAddress,
	}
}

// IsConfigured returns whether the server and account are known, which is
// required before anything can be synced.
func (u User) IsConfigured() bool {
	return len(u.missingFields()) == 0
}

// MissingFields returns the names of the fields that prevent the config from
// being usable for syncing.
func (u User) MissingFields() []string {
	return u.missingFields()
}

func (u User) missingFields() (missing []string) {
	if u.ServerURL == "" {
		missing = append(missing, "serverURL")
	}
	if u.UserEmail == "" {
		missing = append(missing, "userEmail")
	}
	return missing
}

// PersonalWebDAVURL returns the WebDAV endpoint for the user's own files.
func (u User) PersonalWebDAVURL() string {
	return strings.TrimRight(u.ServerURL, "/") + "/dav/personal"
}

// SharedWebDAVURL returns the WebDAV endpoint for the files shared with the
// user.
func (u User) SharedWebDAVURL() string {
	return strings.TrimRight(u.ServerURL, "/") + "/dav/shared"
}

// SyncInterval returns the time between scheduled syncs.
func (u User) SyncInterval() time.Duration {
	return time.Duration(u.SyncIntervalSeconds) * time.Second
}

// Validate checks the fields that have a fixed format.
func (u User) Validate() error {
	if u.ServerURL != "" {
		parsed, err := url.Parse(u.ServerURL)
		if err != nil || parsed.Host == "" ||
			(parsed.Scheme != "http" && parsed.Scheme != "https") {
			return errors.NewFriendlyError("The server URL %q is invalid.\n"+
				"It should look like https://docs.example.com", u.ServerURL)
		}
	}

	for _, path := range []string{u.PersonalSyncPath, u.SharedSyncPath} {
		if !filepath.IsAbs(path) {
			return errors.NewFriendlyError("The sync directory %q must be "+
				"an absolute path.", path)
		}
	}

	if filepath.Clean(u.PersonalSyncPath) == filepath.Clean(u.SharedSyncPath) {
		return errors.NewFriendlyError("The personal and shared sync "+
			"directories must be different, but both are %q.", u.PersonalSyncPath)
	}

	if u.SyncIntervalSeconds <= 0 {
		return errors.NewFriendlyError("syncIntervalSeconds must be positive, "+
			"got %d.", u.SyncIntervalSeconds)
	}

	if u.MaxFileSizeBytes < 0 {
		return errors.NewFriendlyError("maxFileSizeBytes can't be negative.")
	}
	return nil
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseUser attempts to parse the config stored in the default path. A
// missing config file isn't an error: the defaults are returned, and
// IsConfigured reports false until `davsync login` is run.
func ParseUser() (User, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	config := Default()
	if err := readUser(path, &config); err != nil {
		if _, ok := err.(errors.FileNotFound); !ok {
			return User{}, errors.WithContext(err, "parse")
		}
		config = Default()
	}

	config, err = resolvePaths(config, filepath.Dir(path))
	if err != nil {
		return User{}, err
	}

	if err := config.Validate(); err != nil {
		return User{}, err
	}
	return config, nil
}

// Resolve returns a copy of `cfg` with its sync paths resolved the same way
// as when the config is read, and checks that the result is valid.
func Resolve(cfg User) (User, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	cfg, err = resolvePaths(cfg, filepath.Dir(path))
	if err != nil {
		return User{}, err
	}
	return cfg, cfg.Validate()
}

// resolvePaths expands `~` in the sync paths, and evaluates relative paths
// relative to `configDir`.
func resolvePaths(cfg User, configDir string) (User, error) {
	for _, field := range []*string{&cfg.PersonalSyncPath, &cfg.SharedSyncPath} {
		expanded, err := homedirExpand(*field)
		if err != nil {
			return User{}, errors.WithContext(err, "expand sync path")
		}

		if expanded != "" && !filepath.IsAbs(expanded) {
			expanded = filepath.Join(configDir, expanded)
		}
		*field = expanded
	}
	return cfg, nil
}

// WriteUser writes the given config to disk.
func WriteUser(cfg User) error {
	cfg.Version = SupportedUserConfigVersion
	path, err := GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0600); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// GetUserConfigPath returns the path to the davsync config. This path is
// expanded, so it can be directly passed to file operations.
func GetUserConfigPath() (string, error) {
	return homedirExpand(UserConfigPath)
}
