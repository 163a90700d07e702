package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"draftsync/config"
	"draftsync/middleware"
	"draftsync/models"

	"github.com/urfave/cli/v3"
)

type UserCmd struct {
	flags *Flags

	realm    int
	email    string
	fullName string
	password string
	syncOn   bool
	userID   int
}

// NewUserCmd creates a new user command
func NewUserCmd(flags *Flags) *UserCmd {
	return &UserCmd{flags: flags}
}

func newIssuer(cfg *config.Config) *middleware.TokenIssuer {
	return middleware.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL.Duration)
}

// Register adds the user commands to the application
func (cmd *UserCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "user",
		Usage: "Manage users",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a user",
				UsageText: "draftsync user add --email hamlet@example.com --password secret [--sync]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "realm",
						Usage:       "realm id (defaults to server.realm_id)",
						Destination: &cmd.realm,
					},
					&cli.StringFlag{
						Name:        "email",
						Required:    true,
						Destination: &cmd.email,
					},
					&cli.StringFlag{
						Name:        "name",
						Usage:       "full name",
						Destination: &cmd.fullName,
					},
					&cli.StringFlag{
						Name:        "password",
						Required:    true,
						Destination: &cmd.password,
					},
					&cli.BoolFlag{
						Name:        "sync",
						Usage:       "enable drafts synchronization",
						Destination: &cmd.syncOn,
					},
				},
				Action: cmd.runAdd,
			},
			{
				Name:   "ls",
				Usage:  "List users",
				Action: cmd.runList,
			},
			{
				Name:      "deactivate",
				Usage:     "Deactivate a user",
				UsageText: "draftsync user deactivate --id 3",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Required: true, Destination: &cmd.userID},
				},
				Action: cmd.runDeactivate,
			},
			{
				Name:      "sync",
				Usage:     "Turn drafts synchronization on or off; off deletes the user's drafts",
				UsageText: "draftsync user sync --id 3 [--enable]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Required: true, Destination: &cmd.userID},
					&cli.BoolFlag{Name: "enable", Destination: &cmd.syncOn},
				},
				Action: cmd.runSync,
			},
			{
				Name:      "token",
				Usage:     "Print an access token for a user",
				UsageText: "draftsync user token --id 3",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Required: true, Destination: &cmd.userID},
				},
				Action: cmd.runToken,
			},
		},
	})

	return app
}

func (cmd *UserCmd) realmID() int64 {
	if cmd.realm > 0 {
		return int64(cmd.realm)
	}
	return cmd.flags.Config.Server.RealmID
}

func (cmd *UserCmd) runAdd(ctx context.Context, c *cli.Command) error {
	st, err := openStores(cmd.flags.Config)
	if err != nil {
		return err
	}
	defer st.close()

	user := &models.User{RealmID: cmd.realmID(), Email: cmd.email, FullName: cmd.fullName}
	if err := st.Users.CreateUser(user, cmd.password); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if cmd.syncOn {
		if err := st.Users.SetDraftsSynchronization(user.ID, true); err != nil {
			return fmt.Errorf("enable drafts sync: %w", err)
		}
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "created user %d (%s) in realm %d\n", user.ID, user.Email, user.RealmID)
	return nil
}

func (cmd *UserCmd) runList(ctx context.Context, c *cli.Command) error {
	st, err := openStores(cmd.flags.Config)
	if err != nil {
		return err
	}
	defer st.close()

	users, err := st.Users.ListUsers()
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tREALM\tEMAIL\tACTIVE\tDRAFT SYNC\tLAST LOGIN")
	for _, u := range users {
		lastLogin := "-"
		if !u.LastLoginAt.IsZero() {
			lastLogin = u.LastLoginAt.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%t\t%t\t%s\n", u.ID, u.RealmID, u.Email, u.IsActive, u.EnableDraftsSynchronization, lastLogin)
	}
	return w.Flush()
}

func (cmd *UserCmd) runDeactivate(ctx context.Context, c *cli.Command) error {
	st, err := openStores(cmd.flags.Config)
	if err != nil {
		return err
	}
	defer st.close()

	if err := st.Users.SetActive(int64(cmd.userID), false); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "deactivated user %d\n", cmd.userID)
	return nil
}

func (cmd *UserCmd) runSync(ctx context.Context, c *cli.Command) error {
	st, err := openStores(cmd.flags.Config)
	if err != nil {
		return err
	}
	defer st.close()

	user, err := st.Users.GetUser(int64(cmd.userID))
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if err := st.draftService(cmd.flags.Config).SetSync(user, cmd.syncOn); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "drafts synchronization for user %d: %t\n", user.ID, cmd.syncOn)
	return nil
}

func (cmd *UserCmd) runToken(ctx context.Context, c *cli.Command) error {
	if err := cmd.flags.Config.ValidateServe(); err != nil {
		return err
	}

	st, err := openStores(cmd.flags.Config)
	if err != nil {
		return err
	}
	defer st.close()

	user, err := st.Users.GetUser(int64(cmd.userID))
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	token, expires, err := newIssuer(cmd.flags.Config).Issue(user)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "%s\n# expires %s\n", token, expires.Format(time.RFC3339))
	return nil
}
