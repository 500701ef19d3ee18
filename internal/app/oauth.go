package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"

	"github.com/semmidev/omran/internal/domain"
	"github.com/semmidev/omran/internal/infrastructure/logger"
)

// GDriveTokenKey is the store key holding the authorized Google Drive token.
const GDriveTokenKey = domain.GDriveTokenKey

// GoogleOAuthService runs the consent flow for the gdrive channel and keeps
// the resulting token in the store.
type GoogleOAuthService struct {
	config     *oauth2.Config
	logger     *logger.Logger
	store      domain.Store
	state      string
	authServer *http.Server
	done       chan struct{}
}

func NewGoogleOAuthService(logger *logger.Logger, clientSecretPath string, store domain.Store) (*GoogleOAuthService, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if clientSecretPath == "" {
		return nil, errors.New("client secret path cannot be empty")
	}

	b, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client_secret.json: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret: %w", err)
	}

	return newOAuthService(cfg, logger, store), nil
}

func newOAuthService(cfg *oauth2.Config, logger *logger.Logger, store domain.Store) *GoogleOAuthService {
	return &GoogleOAuthService{
		config: cfg,
		logger: logger,
		store:  store,
		state:  uuid.NewString(),
		done:   make(chan struct{}),
	}
}

func (s *GoogleOAuthService) AuthURL() string {
	return s.config.AuthCodeURL(s.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// TokenSource returns a refreshing token source for the saved token.
func (s *GoogleOAuthService) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	token, err := domain.GetValue[*oauth2.Token](ctx, s.store, GDriveTokenKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read saved token: %w", err)
	}
	if token == nil {
		return nil, errors.New("Google Drive is not authorized yet, run \"auth gdrive\"")
	}
	return s.config.TokenSource(ctx, token), nil
}

// Done is closed once a token has been saved.
func (s *GoogleOAuthService) Done() <-chan struct{} {
	return s.done
}

func (s *GoogleOAuthService) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/google/drive", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.AuthURL(), http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("GET /auth/google/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != s.state {
			http.Error(w, "invalid state parameter", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}

		token, err := s.config.Exchange(r.Context(), code)
		if err != nil {
			http.Error(w, fmt.Sprintf("token exchange failed: %v", err), http.StatusInternalServerError)
			return
		}
		if token.RefreshToken == "" {
			fmt.Fprintln(w, "⚠️ No refresh token returned. Revoke app access & re-authorize.")
			return
		}

		if err := domain.PutValue(r.Context(), s.store, GDriveTokenKey, token); err != nil {
			http.Error(w, "failed to save token", http.StatusInternalServerError)
			return
		}

		s.logger.Infof("Google Drive authorized, token saved")
		fmt.Fprintln(w, "✅ Google Drive is connected. You can close this window.")
		select {
		case <-s.done:
		default:
			close(s.done)
		}
	})

	return mux
}

// StartAuthServer starts the OAuth HTTP server in a goroutine.
func (s *GoogleOAuthService) StartAuthServer(ctx context.Context, addr string) error {
	s.authServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Infof("Google Drive OAuth server listening on %s", s.authServer.Addr)
		if err := s.authServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("OAuth server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the OAuth server.
func (s *GoogleOAuthService) Shutdown(ctx context.Context) error {
	if s.authServer == nil {
		return nil
	}

	if err := s.authServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown OAuth server: %w", err)
	}
	s.logger.Infof("OAuth server stopped successfully")
	return nil
}

// AuthorizeGDrive runs the consent flow: it serves the callback, opens the
// consent page and waits until a token is saved or ctx ends.
func (a *App) AuthorizeGDrive(ctx context.Context) error {
	if a.oauth == nil {
		return errors.New("gdrive_oauth.client_secret_file is not configured")
	}
	if err := a.oauth.StartAuthServer(ctx, a.config.GDriveOAuth.Addr); err != nil {
		return err
	}

	authURL := a.oauth.AuthURL()
	a.logger.Infof("Authorize Google Drive at: %s", authURL)
	if err := a.opener.Open(authURL); err != nil {
		a.logger.Warnf("%v", err)
	}

	select {
	case <-a.oauth.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
