package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/buger/goterm"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/sidkik/davsync/pkg/errors"
)

// Mocked for unit testing.
var (
	exit             = os.Exit
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

// HandleFatalError handles errors that are severe enough to terminate the
// program. Friendly errors are printed as is. Other errors are logged along
// with their context.
func HandleFatalError(err error) {
	if msg, ok := errors.GetFriendlyMessage(err); ok {
		fmt.Fprintln(stdout, goterm.Color(msg, goterm.RED))
	} else {
		log.WithError(err).Error("Fatal error")
	}
	exit(1)
}

// HandlePanic logs the panic and exits. It should be deferred by main.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("Unexpected panic: %v", r)
		exit(1)
	}
}

// PromptYesOrNo asks the user the question, and returns whether they
// answered yes.
func PromptYesOrNo(prompt string) (bool, error) {
	fmt.Fprintf(stdout, "%s [y/N] ", prompt)
	answer, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.WithContext(err, "read response")
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// PromptSecret asks the user for a secret. The input isn't echoed when stdin
// is a terminal.
func PromptSecret(prompt string) (string, error) {
	fmt.Fprint(stdout, prompt)
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(stdout)
		if err != nil {
			return "", errors.WithContext(err, "read input")
		}
		return strings.TrimSpace(string(secret)), nil
	}

	secret, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.WithContext(err, "read input")
	}
	return strings.TrimSpace(secret), nil
}
