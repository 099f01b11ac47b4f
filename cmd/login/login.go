package login

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/davsync/cmd/util"
	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/credentials"
	"github.com/sidkik/davsync/pkg/errors"
)

const (
	loginPath  = "/api/v1/auth/login"
	deviceName = "davsync"

	// TokenTypeSanctum is the type of the API tokens issued by the server's
	// login endpoint.
	TokenTypeSanctum = "sanctum"
)

// Mocked for unit testing.
var (
	stdout          io.Writer         = os.Stdout
	tokenStore      credentials.Store = credentials.NewKeyringStore()
	parseUserConfig                   = config.ParseUser
	writeUserConfig                   = config.WriteUser
	promptSecret                      = util.PromptSecret
	httpClient                        = &http.Client{Timeout: 30 * time.Second}
)

// Response is the structure of the response returned by the login API.
type Response struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		TenantID string `json:"tenant_id"`
	} `json:"user"`
	Message string `json:"message"`
}

// Options are the login settings given as flags.
type Options struct {
	ServerURL string
	Email     string

	// Token is an existing API token. If it's set, the password isn't
	// needed.
	Token     string
	ExpiresIn time.Duration
}

// New creates a new `login` command.
func New() *cobra.Command {
	var opts Options
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the document server",
		Long: "Log in to the document server. The password is prompted for, " +
			"and exchanged for an API token that's kept in the system keyring.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := Main(opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&opts.ServerURL, "server", "",
		"The URL of the document server, e.g. https://docs.example.com")
	cmd.Flags().StringVar(&opts.Email, "email", "", "The email of your account.")
	cmd.Flags().StringVar(&opts.Token, "token", "",
		"An existing API token. If not supplied, your password is prompted for.")
	cmd.Flags().DurationVar(&opts.ExpiresIn, "token-expires-in", 0,
		"How long the token given by --token is valid for. 0 means it doesn't expire.")
	return cmd
}

// Main logs in with the given options.
func Main(opts Options) error {
	cfg, err := parseUserConfig()
	if err != nil {
		log.WithError(err).Debug("Failed to read current config. Starting from the defaults.")
		cfg = config.Default()
	}

	if opts.ServerURL == "" {
		opts.ServerURL = cfg.ServerURL
	}
	if opts.Email == "" {
		opts.Email = cfg.UserEmail
	}
	if opts.ServerURL == "" || opts.Email == "" {
		return errors.NewFriendlyError("The server and email are required.\n" +
			"Please provide them with `davsync login --server <url> --email <email>`")
	}

	prevEmail := cfg.UserEmail
	cfg.ServerURL = strings.TrimRight(opts.ServerURL, "/")
	cfg.UserEmail = opts.Email
	if _, err := config.Resolve(cfg); err != nil {
		return err
	}

	token := credentials.Token{Token: opts.Token, TokenType: TokenTypeSanctum}
	if opts.Token == "" {
		password, err := promptSecret(fmt.Sprintf("Password for %s: ", opts.Email))
		if err != nil {
			return errors.WithContext(err, "read password")
		}

		resp, err := requestToken(cfg.ServerURL, opts.Email, password)
		if err != nil {
			return errors.WithContext(err, "log in")
		}
		token.Token = resp.Token
		cfg.TenantID = resp.User.TenantID
	} else if opts.ExpiresIn > 0 {
		expiresAt := time.Now().Add(opts.ExpiresIn).UTC()
		token.ExpiresAt = &expiresAt
	}

	if err := tokenStore.Set(opts.Email, token); err != nil {
		return errors.WithContext(err, "store token")
	}

	// Only one account is used at a time, so the previous account's token
	// is no longer needed.
	if prevEmail != "" && prevEmail != opts.Email {
		if err := tokenStore.Delete(prevEmail); err != nil {
			log.WithError(err).WithField("user", prevEmail).Warn("Failed to remove previous token")
		}
	}

	if err := writeUserConfig(cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Successfully logged in as %s.\n", opts.Email)
	fmt.Fprintln(stdout, "Run `davsync agent` to start syncing, or `davsync sync --local` to sync once.")
	return nil
}

// requestToken exchanges the user's password for an API token.
func requestToken(serverURL, email, password string) (Response, error) {
	payload := map[string]string{
		"email":       email,
		"password":    password,
		"device_name": deviceName,
	}
	payloadBytes, err := json.Marshal(&payload)
	if err != nil {
		return Response{}, errors.WithContext(err, "create payload")
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+loginPath, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return Response{}, errors.WithContext(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return Response{}, errors.NewFriendlyError("Failed to connect to %s:\n%s", serverURL, err)
	}
	defer resp.Body.Close()

	var parsedBody Response
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsedBody)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if decodeErr != nil {
			return Response{}, errors.WithContext(decodeErr, "failed to parse login body")
		}
		if parsedBody.Token == "" {
			return Response{}, errors.New("server didn't return a token")
		}
		return parsedBody, nil
	case http.StatusUnauthorized, http.StatusUnprocessableEntity:
		return Response{}, errors.NewFriendlyError("Invalid email or password.")
	default:
		return Response{}, errors.New("server responded with %s (%s)", resp.Status, parsedBody.Message)
	}
}
