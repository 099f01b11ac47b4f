package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	goSync "sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/davsync/pkg/api"
	"github.com/sidkik/davsync/pkg/api/server"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/credentials"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/fswatch"
	"github.com/sidkik/davsync/pkg/rclone"
	rcloneMocks "github.com/sidkik/davsync/pkg/rclone/mocks"
	"github.com/sidkik/davsync/pkg/sync"
)

const testUser = "ala@example.com"

var testConfig = config.User{
	ServerURL:        "https://docs.example.com",
	UserEmail:        testUser,
	PersonalSyncPath: "/sync/personal",
	SharedSyncPath:   "/sync/shared",
}

type memoryStore map[string]credentials.Token

func (s memoryStore) Get(user string) (credentials.Token, error) {
	token, ok := s[user]
	if !ok {
		return credentials.Token{}, errors.NotLoggedIn{User: user}
	}
	return token, nil
}

func (s memoryStore) Set(user string, token credentials.Token) error {
	s[user] = token
	return nil
}

func (s memoryStore) Delete(user string) error {
	delete(s, user)
	return nil
}

type agentTest struct {
	agent  *Agent
	runner *rcloneMocks.Runner
	clock  clockwork.FakeClock
	tokens memoryStore
}

func newAgentTest(cfg config.User) agentTest {
	parseConfig = func() (config.User, error) { return cfg, nil }

	runner := &rcloneMocks.Runner{}
	clock := clockwork.NewFakeClock()
	logger, _ := logrusTest.NewNullLogger()
	engine := sync.NewEngine(rclone.New(runner),
		sync.WithFs(afero.NewMemMapFs()),
		sync.WithClock(clock),
		sync.WithLogger(logger))
	tokens := memoryStore{}
	return agentTest{
		agent:  New(engine, tokens, clock),
		runner: runner,
		clock:  clock,
		tokens: tokens,
	}
}

func (at agentTest) expectSuccessfulSync(token string) {
	at.runner.On("Run", mock.Anything, []string{"obscure", token}, map[string]string(nil)).
		Return(rclone.Result{Stdout: "obscured\n"}, nil).Once()
	at.runner.On("Run", mock.Anything, mock.MatchedBy(func(args []string) bool {
		return len(args) > 0 && args[0] == "bisync"
	}), mock.Anything).Return(rclone.Result{}, nil).Twice()
}

func TestTriggerSync(t *testing.T) {
	defer func() { parseConfig = config.ParseUser }()

	at := newAgentTest(testConfig)
	at.tokens[testUser] = credentials.Token{Token: "secret"}
	at.expectSuccessfulSync("secret")

	assert.Equal(t, sync.NotConfigured, at.agent.GetStatus())
	require.NoError(t, at.agent.TriggerSync(context.Background()))
	assert.Equal(t, sync.Idle, at.agent.GetStatus())

	activity := at.agent.GetActivity(10)
	require.Len(t, activity, 2)
	assert.Equal(t, "sync_personal", activity[0].Action)
	assert.Equal(t, "sync_shared", activity[1].Action)
	at.runner.AssertExpectations(t)
}

func TestTriggerSyncPreconditions(t *testing.T) {
	defer func() { parseConfig = config.ParseUser }()

	expired := clockwork.NewFakeClock().Now().Add(-time.Hour)

	tests := []struct {
		name   string
		cfg    config.User
		tokens memoryStore
		expErr error
	}{
		{
			name:   "Not configured",
			cfg:    config.User{UserEmail: testUser},
			tokens: memoryStore{testUser: {Token: "secret"}},
			expErr: errors.NotConfigured{Missing: config.User{UserEmail: testUser}.MissingFields()},
		},
		{
			name:   "Not logged in",
			cfg:    testConfig,
			tokens: memoryStore{},
			expErr: errors.NotLoggedIn{User: testUser},
		},
		{
			name:   "Token expired",
			cfg:    testConfig,
			tokens: memoryStore{testUser: {Token: "secret", ExpiresAt: &expired}},
			expErr: errors.TokenExpired{User: testUser},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			at := newAgentTest(test.cfg)
			for user, token := range test.tokens {
				at.tokens[user] = token
			}

			err := at.agent.TriggerSync(context.Background())
			assert.Equal(t, test.expErr, errors.RootCause(err))

			// Nothing ran, so nothing changed.
			assert.Equal(t, sync.NotConfigured, at.agent.GetStatus())
			assert.Empty(t, at.agent.GetActivity(10))
			at.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTriggerSyncConfigError(t *testing.T) {
	defer func() { parseConfig = config.ParseUser }()

	at := newAgentTest(testConfig)
	parseConfig = func() (config.User, error) {
		return config.User{}, errors.New("bad yaml")
	}

	err := at.agent.TriggerSync(context.Background())
	assert.EqualError(t, err, "read config: bad yaml")
}

func TestGetActivityLimit(t *testing.T) {
	defer func() { parseConfig = config.ParseUser }()

	at := newAgentTest(testConfig)
	at.tokens[testUser] = credentials.Token{Token: "secret"}
	for i := 0; i < 30; i++ {
		at.expectSuccessfulSync("secret")
		require.NoError(t, at.agent.TriggerSync(context.Background()))
	}

	assert.Empty(t, at.agent.GetActivity(0))
	assert.Empty(t, at.agent.GetActivity(-1))
	assert.Len(t, at.agent.GetActivity(7), 7)
	assert.Len(t, at.agent.GetActivity(100), 60)
}

func TestGetActivityThroughAPI(t *testing.T) {
	defer func() { parseConfig = config.ParseUser }()

	at := newAgentTest(testConfig)
	at.tokens[testUser] = credentials.Token{Token: "secret"}
	for i := 0; i < 30; i++ {
		at.expectSuccessfulSync("secret")
		require.NoError(t, at.agent.TriggerSync(context.Background()))
	}

	tests := []struct {
		query  string
		expLen int
	}{
		{query: "", expLen: api.DefaultActivityLimit},
		{query: "?limit=0", expLen: 0},
		{query: "?limit=3", expLen: 3},
	}

	handler := server.NewHandler(at.agent)
	for _, test := range tests {
		req := httptest.NewRequest(http.MethodGet, api.ActivityPath+test.query, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, test.query)

		var resp api.ActivityResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Len(t, resp.Entries, test.expLen, test.query)
	}
}

func TestRun(t *testing.T) {
	defer func() {
		parseConfig = config.ParseUser
		fs = afero.NewOsFs()
		runServer = server.Run
	}()
	fs = afero.NewMemMapFs()

	cfg := testConfig
	cfg.SyncOnStartup = true
	cfg.SyncIntervalSeconds = 3600

	at := newAgentTest(cfg)
	at.tokens[testUser] = credentials.Token{Token: "secret"}
	at.expectSuccessfulSync("secret")

	var servedAddress string
	runServer = func(ctx context.Context, address string, agent server.Agent) error {
		servedAddress = address
		assert.Eventually(t, func() bool {
			return agent.GetStatus() == sync.Idle
		}, 5*time.Second, 10*time.Millisecond)
		return nil
	}

	require.NoError(t, at.agent.Run(context.Background(), cfg))
	assert.Equal(t, cfg.APIAddress, servedAddress)

	for _, root := range []string{cfg.PersonalSyncPath, cfg.SharedSyncPath} {
		exists, err := afero.DirExists(fs, root)
		require.NoError(t, err)
		assert.True(t, exists, root)
	}
	at.runner.AssertExpectations(t)
}

type fakeWatcher struct {
	lock     goSync.Mutex
	starts   [][]string
	watching bool
}

func (w *fakeWatcher) Start(paths []string) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.starts = append(w.starts, paths)
	w.watching = true
	return nil
}

func (w *fakeWatcher) Stop() {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.watching = false
}

func (w *fakeWatcher) IsWatching() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.watching
}

func (w *fakeWatcher) HasChanges() bool {
	return false
}

func (w *fakeWatcher) getStarts() [][]string {
	w.lock.Lock()
	defer w.lock.Unlock()
	return append([][]string{}, w.starts...)
}

func TestWatchStartsAfterLogin(t *testing.T) {
	defer func() {
		parseConfig = config.ParseUser
		fs = afero.NewOsFs()
		runServer = server.Run
		newWatcher = func() changeWatcher {
			return fswatch.New(fswatch.Ignore(sync.InitMarkerName))
		}
	}()
	fs = afero.NewMemMapFs()

	watcher := &fakeWatcher{}
	newWatcher = func() changeWatcher { return watcher }

	loggedOut := config.User{
		PersonalSyncPath:    testConfig.PersonalSyncPath,
		SharedSyncPath:      testConfig.SharedSyncPath,
		SyncIntervalSeconds: 3600,
		WatchLocalChanges:   true,
	}
	loggedIn := testConfig
	loggedIn.SyncIntervalSeconds = 3600
	loggedIn.WatchLocalChanges = true

	at := newAgentTest(loggedOut)
	at.tokens[testUser] = credentials.Token{Token: "secret"}

	runServer = func(ctx context.Context, _ string, agent server.Agent) error {
		// Nothing is watched before the account is configured.
		assert.Empty(t, watcher.getStarts())

		parseConfig = func() (config.User, error) { return loggedIn, nil }
		at.expectSuccessfulSync("secret")
		require.NoError(t, agent.TriggerSync(ctx))

		roots := []string{loggedIn.PersonalSyncPath, loggedIn.SharedSyncPath}
		assert.Equal(t, [][]string{roots}, watcher.getStarts())
		for _, root := range roots {
			exists, err := afero.DirExists(fs, root)
			require.NoError(t, err)
			assert.True(t, exists, root)
		}

		// Later syncs keep the existing watch.
		at.expectSuccessfulSync("secret")
		require.NoError(t, agent.TriggerSync(ctx))
		assert.Len(t, watcher.getStarts(), 1)

		// Moving a root moves the watch.
		moved := loggedIn
		moved.SharedSyncPath = "/sync/team"
		parseConfig = func() (config.User, error) { return moved, nil }
		at.expectSuccessfulSync("secret")
		require.NoError(t, agent.TriggerSync(ctx))
		starts := watcher.getStarts()
		require.Len(t, starts, 2)
		assert.Equal(t, []string{moved.PersonalSyncPath, "/sync/team"}, starts[1])
		return nil
	}

	require.NoError(t, at.agent.Run(context.Background(), loggedOut))
	assert.False(t, watcher.IsWatching())
	at.runner.AssertExpectations(t)
}
