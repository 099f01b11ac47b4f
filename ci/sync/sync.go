package sync

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/davsync/ci/util"
	"github.com/sidkik/davsync/pkg/sync"
)

// Test checks that changes made on one device reach another device that's
// logged in to the same account.
func Test(t *testing.T, helper *util.TestHelper) {
	ctx := context.Background()

	laptop, err := helper.NewDevice("laptop")
	require.NoError(t, err)
	defer laptop.Cleanup()

	desktop, err := helper.NewDevice("desktop")
	require.NoError(t, err)
	defer desktop.Cleanup()

	// Start both devices from the current remote state.
	syncIdle(ctx, t, helper, laptop)
	syncIdle(ctx, t, helper, desktop)

	// Test files are unique to this run so that reruns against the same
	// account don't interfere.
	name := fmt.Sprintf("ci-%s.txt", uuid.New().String())
	laptopPath := filepath.Join(laptop.Config.PersonalSyncPath, name)
	desktopPath := filepath.Join(desktop.Config.PersonalSyncPath, name)

	t.Run("Create", func(t *testing.T) {
		require.NoError(t, ioutil.WriteFile(laptopPath, []byte("v1"), 0644))
		syncIdle(ctx, t, helper, laptop)
		syncIdle(ctx, t, helper, desktop)
		assertContents(t, desktopPath, "v1")
	})

	t.Run("Modify", func(t *testing.T) {
		// Make sure the modification time changes.
		time.Sleep(time.Second)
		require.NoError(t, ioutil.WriteFile(desktopPath, []byte("v2"), 0644))
		syncIdle(ctx, t, helper, desktop)
		syncIdle(ctx, t, helper, laptop)
		assertContents(t, laptopPath, "v2")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, os.Remove(laptopPath))
		syncIdle(ctx, t, helper, laptop)
		syncIdle(ctx, t, helper, desktop)

		_, err := os.Stat(desktopPath)
		assert.True(t, os.IsNotExist(err), "file should be deleted on the other device")
	})

	t.Run("Activity", func(t *testing.T) {
		entries := laptop.Engine.Activity(2)
		require.Len(t, entries, 2)
		assert.Equal(t, "sync_personal", entries[0].Action)
		assert.Equal(t, "sync_shared", entries[1].Action)
		for _, entry := range entries {
			assert.Equal(t, sync.ActivitySuccess, entry.Status)
		}
	})
}

// TestBadToken checks that a rejected token is reported as an error, rather
// than as a conflict or success.
func TestBadToken(t *testing.T, helper *util.TestHelper) {
	device, err := helper.NewDevice("bad-token")
	require.NoError(t, err)
	defer device.Cleanup()

	badHelper := *helper
	badHelper.Token = "not-a-real-token"
	status, err := badHelper.Sync(context.Background(), device)
	require.NoError(t, err)
	assert.Equal(t, sync.PhaseError, status.Phase)
	assert.NotEmpty(t, status.Message)
}

func syncIdle(ctx context.Context, t *testing.T, helper *util.TestHelper, d *util.Device) {
	status, err := helper.Sync(ctx, d)
	require.NoError(t, err)
	require.Equal(t, sync.Idle, status, "device %s", d.Name)
}

func assertContents(t *testing.T, path, exp string) {
	contents, err := ioutil.ReadFile(path)
	if assert.NoError(t, err) {
		assert.Equal(t, exp, string(contents))
	}
}
