// Package client provides authenticated HTTP clients for Google APIs. It
// accepts either a service account key or an installed-app OAuth client
// secret with a cached token.
package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// DefaultCallbackAddr is where the browser is redirected after consent.
	DefaultCallbackAddr = "localhost:8085"
	callbackPath        = "/callback"
	authTimeout         = 5 * time.Minute
)

// ErrNoToken is returned when an OAuth client secret has no cached token and
// the interactive flow is disabled.
var ErrNoToken = errors.New("no cached OAuth token")

// Config locates the credentials.
type Config struct {
	// CredentialsFile is a service account key or an OAuth client secret.
	CredentialsFile string
	// TokenFile caches the OAuth token for client secrets.
	TokenFile string
	// Interactive allows opening a browser to obtain a missing token.
	Interactive bool

	// CallbackAddr defaults to DefaultCallbackAddr.
	CallbackAddr string
	// Prompt receives the consent URL. Defaults to os.Stderr.
	Prompt io.Writer
	// OpenBrowser launches the consent URL. Defaults to the platform opener.
	OpenBrowser func(ctx context.Context, url string) error
	Logger      *slog.Logger
}

// New creates an HTTP client for the given scopes.
func New(ctx context.Context, cfg Config, scope ...string) (*http.Client, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	return NewFromJSON(ctx, b, cfg, scope...)
}

// NewFromJSON creates an HTTP client from credentials JSON content.
func NewFromJSON(ctx context.Context, secretJSON []byte, cfg Config, scope ...string) (*http.Client, error) {
	cfg = cfg.withDefaults()

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(secretJSON, &probe); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if probe.Type == "service_account" {
		jwtCfg, err := google.JWTConfigFromJSON(secretJSON, scope...)
		if err != nil {
			return nil, fmt.Errorf("parsing service account key: %w", err)
		}
		cfg.Logger.Debug("using service account credentials", "email", jwtCfg.Email)
		return jwtCfg.Client(ctx), nil
	}

	oc, err := google.ConfigFromJSON(secretJSON, scope...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret: %w", err)
	}

	tok, err := TokenFromFile(cfg.TokenFile)
	if err != nil {
		if !cfg.Interactive {
			return nil, fmt.Errorf("%w at %s: %v", ErrNoToken, cfg.TokenFile, err)
		}
		cfg.Logger.Info("no cached token, starting OAuth consent", "token_file", cfg.TokenFile)
		if tok, err = authorize(ctx, oc, cfg); err != nil {
			return nil, err
		}
		if err := SaveToken(cfg.TokenFile, tok); err != nil {
			cfg.Logger.Error("failed to cache token", "error", err)
		}
	}
	return oc.Client(ctx, tok), nil
}

func (c Config) withDefaults() Config {
	if c.CallbackAddr == "" {
		c.CallbackAddr = DefaultCallbackAddr
	}
	if c.Prompt == nil {
		c.Prompt = os.Stderr
	}
	if c.OpenBrowser == nil {
		c.OpenBrowser = openBrowser
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

type callbackResult struct {
	code string
	err  error
}

// authorize runs the installed-app consent flow against a loopback
// redirect and exchanges the returned code for a token.
func authorize(ctx context.Context, oc *oauth2.Config, cfg Config) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	state, err := randomState()
	if err != nil {
		return nil, fmt.Errorf("generating state token: %w", err)
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.CallbackAddr)
	if err != nil {
		return nil, fmt.Errorf("listening for OAuth callback on %s: %w", cfg.CallbackAddr, err)
	}
	oc.RedirectURL = "http://" + ln.Addr().String() + callbackPath

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, callbackHandler(state, results))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(results, callbackResult{err: err})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			cfg.Logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintf(cfg.Prompt, "\nAuthorize budgify in your browser. If it does not open, visit:\n\n  %s\n\n", authURL)
	if err := cfg.OpenBrowser(ctx, authURL); err != nil {
		cfg.Logger.Warn("failed to open browser", "error", err)
	}

	select {
	case res := <-results:
		if res.err != nil {
			return nil, fmt.Errorf("oauth callback: %w", res.err)
		}
		tok, err := oc.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code: %w", err)
		}
		fmt.Fprintln(cfg.Prompt, "Authorized.")
		return tok, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("no OAuth callback within %v", authTimeout)
		}
		return nil, ctx.Err()
	}
}

// callbackHandler validates the OAuth redirect and delivers the first
// outcome; later requests are answered but ignored.
func callbackHandler(expectedState string, results chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var err error
		switch {
		case q.Get("state") != expectedState:
			err = errors.New("invalid state parameter")
		case q.Get("error") != "":
			err = fmt.Errorf("%s: %s", q.Get("error"), q.Get("error_description"))
		case q.Get("code") == "":
			err = errors.New("no authorization code received")
		}
		if err != nil {
			deliver(results, callbackResult{err: err})
			http.Error(w, "Authorization failed: "+err.Error(), http.StatusBadRequest)
			return
		}

		deliver(results, callbackResult{code: q.Get("code")})
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "budgify is authorized. You can close this window and return to the terminal.")
	}
}

func deliver(results chan<- callbackResult, res callbackResult) {
	select {
	case results <- res:
	default:
	}
}

func openBrowser(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TokenFromFile reads a cached token. A missing file satisfies
// errors.Is(err, os.ErrNotExist).
func TokenFromFile(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, fmt.Errorf("decoding token %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken caches a token at path, readable only by the owner.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	b, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}
