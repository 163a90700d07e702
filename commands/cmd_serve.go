package commands

import (
	"context"
	"errors"
	"time"

	"draftsync/handlers/api"
	"draftsync/utils"

	"github.com/urfave/cli/v3"
)

type ServeCmd struct {
	flags *Flags
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "serve",
		Usage:       "Run the HTTP API",
		UsageText:   "draftsync serve",
		Description: "Serves the drafts API until interrupted.",
		Action:      cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	app := api.NewApp(api.Options{
		Context:    ctx,
		Service:    st.draftService(cfg),
		Users:      st.Users,
		LoadUser:   st.Users.GetUser,
		Issuer:     newIssuer(cfg),
		RealmID:    cfg.Server.RealmID,
		BodyLimit:  cfg.Server.BodyLimit,
		RateLimit:  cfg.RateLimit.Requests,
		RateWindow: cfg.RateLimit.Window.Duration,
		HSTSMaxAge: cfg.HSTSMaxAge(),
		AccessLog:  true,
	})

	addr := api.Addr(cfg.Server.Host, cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		utils.Log.Info("Starting server on %s (tls=%t)", addr, cfg.SSL.Enabled)
		if cfg.SSL.Enabled {
			errCh <- app.ListenTLS(addr, cfg.SSL.CertFile, cfg.SSL.KeyFile)
			return
		}
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.Log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
