package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"

	"github.com/jonesrussell/index-checker/internal/apiclient"
	"github.com/jonesrussell/index-checker/internal/appstate"
	"github.com/jonesrussell/index-checker/internal/kvstore"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/models"
)

// ErrNotLoggedIn is returned by commands that need a token when none is stored.
var ErrNotLoggedIn = errors.New("not logged in, run `index-checker login` first")

// clientDeps are what every API command needs.
type clientDeps struct {
	API    *apiclient.Client
	State  *appstate.State
	Logger logger.Logger
	Out    io.Writer
}

// newClientDeps builds the API client from viper settings and the local
// state. The stored token, if any, is attached to the client.
func newClientDeps(ctx context.Context, out io.Writer) (*clientDeps, error) {
	log, err := newCLILogger()
	if err != nil {
		return nil, err
	}

	state := appstate.New(kvstore.NewFile(viper.GetString("state.path")), kvstore.NewMemory())

	token, err := state.Token(ctx)
	if err != nil {
		return nil, err
	}

	api := apiclient.New(
		apiclient.WithBaseURL(viper.GetString("api.base_url")),
		apiclient.WithTimeout(viper.GetDuration("api.timeout")),
		apiclient.WithToken(token),
	)

	log.Debug("Client configured",
		logger.String("api", api.BaseURL()),
		logger.String("state", viper.GetString("state.path")),
		logger.Bool("authenticated", token != ""),
	)

	return &clientDeps{API: api, State: state, Logger: log, Out: out}, nil
}

// requireLogin fails fast when no token is stored.
func (d *clientDeps) requireLogin() error {
	if d.API.Token() == "" {
		return ErrNotLoggedIn
	}
	return nil
}

// activeSite returns the server's active site and mirrors it locally.
// Without one, the last mirrored site is used.
func (d *clientDeps) activeSite(ctx context.Context) (*models.WPSite, error) {
	site, err := d.API.ActiveSite(ctx)
	if err != nil {
		d.Logger.Warn("Could not load active site, using local copy", logger.Error(err))
		return d.State.ActiveSite(ctx)
	}
	if err := d.State.SetActiveSite(ctx, site); err != nil {
		return nil, err
	}
	return site, nil
}

func newCLILogger() (logger.Logger, error) {
	level := viper.GetString("log.level")
	if Debug || viper.GetBool("log.debug") {
		level = "debug"
	}
	log, err := logger.New(logger.Config{
		Level:       level,
		Format:      logger.FormatConsole,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}
