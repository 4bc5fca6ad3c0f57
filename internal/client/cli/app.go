package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hefi-app/hefi/internal/client/client"
	"github.com/hefi-app/hefi/internal/client/config"
	"github.com/hefi-app/hefi/internal/client/services"
	"github.com/hefi-app/hefi/internal/client/tokenstore"
	"github.com/hefi-app/hefi/internal/filex"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	email       string
	Mode        Mode
	reader      *bufio.Reader
	closer      io.Closer
}

// NewApp opens the token store and builds the API client. The store is the
// sealed SQLite file when the passphrase variable is set, memory otherwise.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	store, closer, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, store)
	as := services.NewAuthService(apiClient, store)

	return &App{config: c, authService: as, reader: bufio.NewReader(os.Stdin), closer: closer}, nil
}

func openStore(ctx context.Context, c *config.Config) (tokenstore.Store, io.Closer, error) {
	passphrase := os.Getenv(c.StorePassphraseEnv)
	if passphrase == "" {
		log.Printf("%s is not set, session will not survive a restart", c.StorePassphraseEnv)
		return tokenstore.NewMemoryStore(), nil, nil
	}

	path, err := filex.EnsureParentDir(c.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("error preparing token store: %w", err)
	}

	s, err := tokenstore.OpenSQLite(ctx, path, []byte(passphrase))
	if err != nil {
		return nil, nil, fmt.Errorf("error opening token store: %w", err)
	}
	return s, s, nil
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

// track derives the connectivity mode from the outcome of a server call.
func (a *App) track(err error) {
	switch {
	case err == nil:
		a.setMode(ModeOnline)
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
	}
}

func (a *App) Run(ctx context.Context) {
	if a.closer != nil {
		defer a.closer.Close()
	}
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.email != ""
}
