// Package auth runs the local OAuth2 authorization-code flow: a loopback
// callback server, a browser hand-off, and a single token exchange.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/harmonia-app/harmonia/internal/shared"
)

// Result is the outcome of one authorization flow.
type Result struct {
	Token *oauth2.Token
	err   error
}

func (r *Result) Error() error {
	return r.err
}

// CallbackHandler serves the OAuth2 redirect endpoint. It validates the state
// parameter, exchanges the authorization code, and delivers exactly one
// Result on its channel.
type CallbackHandler struct {
	config      *oauth2.Config
	state       string
	resultChan  chan Result
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler for the given config and state token.
// The state token should be cryptographically random for CSRF protection.
func NewCallbackHandler(config *oauth2.Config, state string) *CallbackHandler {
	return &CallbackHandler{
		config:     config,
		state:      state,
		resultChan: make(chan Result, 1),
	}
}

// ServeHTTP handles the OAuth callback request.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	state := r.URL.Query().Get("state")
	if state != h.state {
		h.send(Result{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		h.send(Result{err: fmt.Errorf("authorization failed: %s - %s", errParam, errDesc)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.send(Result{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(Result{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authorization Successful</title></head>
<body>
    <h1>Authorization Successful</h1>
    <p>You can close this window and return to the terminal.</p>
</body>
</html>
`)
}

// send delivers the result exactly once.
func (h *CallbackHandler) send(result Result) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel receiving the flow outcome. It receives exactly
// one value and is then closed.
func (h *CallbackHandler) Result() <-chan Result {
	return h.resultChan
}

// RunLoginFlow starts a loopback server on the config's redirect URL, opens
// the provider's consent page in the system browser, and blocks until the
// callback delivers a token, the flow fails, or ctx is done.
func RunLoginFlow(ctx context.Context, config *oauth2.Config, state string, logger *log.Logger) (*oauth2.Token, error) {
	redirect, err := url.Parse(config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL: %w", err)
	}
	path := redirect.Path
	if path == "" {
		path = "/"
	}

	handler := NewCallbackHandler(config, state)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := &http.Server{Addr: redirect.Host, Handler: mux}
	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := config.AuthCodeURL(state)
	logger.Info("opening browser for authorization", "url", authURL)
	if err := shared.OpenBrowser(authURL); err != nil {
		logger.Warn("failed to open browser, visit the URL manually", "url", authURL, "error", err)
	}

	select {
	case result := <-handler.Result():
		if result.Error() != nil {
			return nil, result.Error()
		}
		return result.Token, nil
	case err := <-errChan:
		return nil, fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
