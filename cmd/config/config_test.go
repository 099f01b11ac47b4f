package config

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/errors"
)

func TestPromptUser(t *testing.T) {
	tests := []struct {
		name                                                 string
		helpString, prompt, defaultAnswer, currAnswer, stdin string
		expPrompt, expResult                                 string
	}{
		{
			name:          "No default or current answer",
			helpString:    "explanation",
			prompt:        "prompt",
			defaultAnswer: "",
			currAnswer:    "",
			stdin:         "user input\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:          "No default answer only, chose current answer",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "",
			currAnswer:    "current answer",
			stdin:         "1\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. current answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expResult: "current answer",
		},
		{
			name:          "No default answer only, enter manually",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "",
			currAnswer:    "current answer",
			stdin: "2\n" +
				"user input\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. current answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:          "No current answer only, chose default answer",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "",
			stdin:         "1\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expResult: "default answer",
		},
		{
			name:          "No current answer only, enter manually",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "",
			stdin: "2\n" +
				"user input\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:          "Same default answer and current answer, chose default answer",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "default answer",
			stdin:         "1\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expResult: "default answer",
		},
		{
			name:          "Same default answer and current answer, enter manually",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "default answer",
			stdin: "2\n" +
				"user input",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:          "Different default answer and current answer, chose default answer",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "current answer",
			stdin:         "1\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. current answer\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n",
			expResult: "default answer",
		},
		{
			name:          "Empty response -- pick default",
			helpString:    "help",
			prompt:        "prompt",
			defaultAnswer: "one",
			currAnswer:    "two",
			stdin:         "\n",
			expPrompt: "help\n" +
				"prompt:\n" +
				"\n" +
				"\t1. one (recommended)\n" +
				"\t2. two\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n",
			expResult: "one",
		},
		{
			name:          "Different default answer and current answer, chose current answer",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "current answer",
			stdin:         "2\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. current answer\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n",
			expResult: "current answer",
		},
		{
			name:          "Different default answer and current answer, enter manually",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "current answer",
			stdin: "3\n" +
				"user input\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. current answer\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: " +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:          "Invalid input",
			helpString:    "different explanation",
			prompt:        "different prompt",
			defaultAnswer: "default answer",
			currAnswer:    "current answer",
			stdin: "invalid input\n" +
				"1\n",
			expPrompt: "different explanation\n" +
				"different prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. current answer\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: " +
				"Please choose one [1-3]: \n",
			expResult: "default answer",
		},
	}

	type promptUserResult struct {
		resp string
		err  error
	}
	for _, test := range tests {
		// Setup mocks.
		out := bytes.NewBuffer(nil)
		stdinReader, stdinWriter := io.Pipe()
		stdout = out
		stdin = stdinReader

		// Start the promptUser function.
		resultChan := make(chan promptUserResult)
		go func() {
			resp, err := promptUser(test.helpString, test.prompt,
				test.defaultAnswer, test.currAnswer)
			resultChan <- promptUserResult{resp, err}
		}()

		// Provide the user input.
		fmt.Fprintln(stdinWriter, test.stdin)

		// Check that promptUser behaved as expected.
		result := <-resultChan
		assert.NoError(t, result.err, test.name)
		assert.Equal(t, test.expResult, result.resp, test.name)

		// Test the prompt after `promptUser` has exited so that we can be sure
		// we're not testing before `promptUser` has a chance to print to stdout.
		assert.Equal(t, test.expPrompt, out.String(), test.name)
	}
}

func TestIntervalValidation(t *testing.T) {
	tests := []struct {
		input    string
		expValid bool
	}{
		{"300", true},
		{"1", true},
		{"0", false},
		{"-5", false},
		{"5m", false},
		{"", false},
	}

	for _, test := range tests {
		msg, ok := intervalValidationFn(test.input)
		assert.Equal(t, test.expValid, ok, test.input)
		if !ok {
			assert.NotEmpty(t, msg, test.input)
		}
	}
}

func mockCurrentConfig(cfg config.User, err error) {
	parseUserConfig = func() (config.User, error) {
		return cfg, err
	}
}

func TestGenerateConfigFromFlags(t *testing.T) {
	defer func() { parseUserConfig = config.ParseUser }()

	curr := config.Default()
	curr.ServerURL = "https://docs.example.com"
	curr.UserEmail = "ala@example.com"
	mockCurrentConfig(curr, nil)

	stdout = bytes.NewBuffer(nil)
	watch := false
	maxSize := int64(1 << 20)
	cfg, err := generateConfig(options{
		personalPath: "/data/personal",
		sharedPath:   "/data/shared",
		interval:     "60",
		watch:        &watch,
		maxFileSize:  &maxSize,
		rclonePath:   "/opt/rclone",
	})
	require.NoError(t, err)

	exp := curr
	exp.PersonalSyncPath = "/data/personal"
	exp.SharedSyncPath = "/data/shared"
	exp.SyncIntervalSeconds = 60
	exp.WatchLocalChanges = false
	exp.MaxFileSizeBytes = 1 << 20
	exp.RclonePath = "/opt/rclone"
	assert.Equal(t, exp, cfg)

	// Nothing was prompted for.
	assert.Empty(t, stdout.(*bytes.Buffer).String())
}

func TestGenerateConfigInvalidIntervalFlag(t *testing.T) {
	defer func() { parseUserConfig = config.ParseUser }()
	mockCurrentConfig(config.Default(), nil)

	_, err := generateConfig(options{
		personalPath: "/data/personal",
		sharedPath:   "/data/shared",
		interval:     "soon",
	})
	_, ok := errors.GetFriendlyMessage(err)
	assert.True(t, ok)
}

func TestGenerateConfigPrompts(t *testing.T) {
	defer func() { parseUserConfig = config.ParseUser }()

	// The current config can't be read, so the defaults are suggested.
	mockCurrentConfig(config.User{}, errors.New("bad yaml"))

	out := bytes.NewBuffer(nil)
	stdinReader, stdinWriter := io.Pipe()
	stdout = out
	stdin = stdinReader

	type result struct {
		cfg config.User
		err error
	}
	resultChan := make(chan result)
	go func() {
		cfg, err := generateConfig(options{sharedPath: "/data/shared"})
		resultChan <- result{cfg, err}
	}()

	// Pick the default personal path, then enter an invalid interval before
	// a valid one.
	for _, input := range []string{"1", "2", "abc", "2", "120"} {
		fmt.Fprintln(stdinWriter, input)
	}

	res := <-resultChan
	require.NoError(t, res.err)
	assert.Equal(t, config.Default().PersonalSyncPath, res.cfg.PersonalSyncPath)
	assert.Equal(t, "/data/shared", res.cfg.SharedSyncPath)
	assert.Equal(t, 120, res.cfg.SyncIntervalSeconds)
	assert.Contains(t, out.String(), "The interval must be a positive number of seconds.")
}

func TestSetupConfigRejectsSamePaths(t *testing.T) {
	defer func() {
		parseUserConfig = config.ParseUser
		writeUserConfig = config.WriteUser
	}()
	mockCurrentConfig(config.Default(), nil)

	var wrote bool
	writeUserConfig = func(config.User) error {
		wrote = true
		return nil
	}

	stdout = bytes.NewBuffer(nil)
	err := SetupConfig(options{
		personalPath: "/data/sync",
		sharedPath:   "/data/sync",
		interval:     "60",
	})
	assert.Error(t, err)
	assert.False(t, wrote)

	err = SetupConfig(options{
		personalPath: "/data/personal",
		sharedPath:   "/data/shared",
		interval:     "60",
	})
	assert.NoError(t, err)
	assert.True(t, wrote)
}
