package util

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/rclone"
	"github.com/sidkik/davsync/pkg/sync"
)

// TestHelper contains methods commonly used during integration tests.
type TestHelper struct {
	ServerURL  string
	Email      string
	Token      string
	RclonePath string
}

// Device is a single davsync installation, with its own sync directories.
type Device struct {
	Name   string
	Config config.User
	Engine *sync.Engine
}

// NewTestHelper creates a new TestHelper from the CI environment variables.
func NewTestHelper() (*TestHelper, error) {
	h := &TestHelper{RclonePath: "rclone"}
	for key, dst := range map[string]*string{
		"CI_SERVER_URL": &h.ServerURL,
		"CI_EMAIL":      &h.Email,
		"CI_TOKEN":      &h.Token,
	} {
		val, ok := os.LookupEnv(key)
		if !ok {
			return nil, errors.New("missing required environment variable %s", key)
		}
		*dst = val
	}

	if path, ok := os.LookupEnv("CI_RCLONE_PATH"); ok {
		h.RclonePath = path
	}
	return h, nil
}

// NewDevice creates a Device whose sync directories live in a fresh temporary
// directory.
func (h *TestHelper) NewDevice(name string) (*Device, error) {
	root, err := ioutil.TempDir("", "davsync-ci-"+name)
	if err != nil {
		return nil, errors.WithContext(err, "make temp dir")
	}

	cfg := config.Default()
	cfg.ServerURL = h.ServerURL
	cfg.UserEmail = h.Email
	cfg.RclonePath = h.RclonePath
	cfg.PersonalSyncPath = filepath.Join(root, "Personal")
	cfg.SharedSyncPath = filepath.Join(root, "Shared")

	engine := sync.NewEngine(rclone.New(rclone.NewRunner(h.RclonePath)))
	return &Device{Name: name, Config: cfg, Engine: engine}, nil
}

// Sync runs a full sync of the device, and returns the resulting status.
func (h *TestHelper) Sync(ctx context.Context, d *Device) (sync.Status, error) {
	if err := d.Engine.SyncAll(ctx, d.Config, h.Token); err != nil {
		return sync.Status{}, err
	}

	status := d.Engine.Status()
	log.WithField("device", d.Name).WithField("status", status).Info("Synced")
	return status, nil
}

// Cleanup removes the device's sync directories.
func (d *Device) Cleanup() error {
	return os.RemoveAll(filepath.Dir(d.Config.PersonalSyncPath))
}
