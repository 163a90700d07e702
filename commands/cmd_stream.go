package commands

import (
	"context"
	"fmt"

	"draftsync/models"

	"github.com/urfave/cli/v3"
)

type StreamCmd struct {
	flags *Flags

	realm      int
	name       string
	inviteOnly bool
	streamID   int
	userID     int
}

// NewStreamCmd creates a new stream command
func NewStreamCmd(flags *Flags) *StreamCmd {
	return &StreamCmd{flags: flags}
}

// Register adds the stream commands to the application
func (cmd *StreamCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "stream",
		Usage: "Manage streams",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a stream",
				UsageText: "draftsync stream add --name Denmark [--invite-only]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "realm",
						Usage:       "realm id (defaults to server.realm_id)",
						Destination: &cmd.realm,
					},
					&cli.StringFlag{
						Name:        "name",
						Required:    true,
						Destination: &cmd.name,
					},
					&cli.BoolFlag{
						Name:        "invite-only",
						Destination: &cmd.inviteOnly,
					},
				},
				Action: cmd.runAdd,
			},
			{
				Name:      "subscribe",
				Usage:     "Subscribe a user to a stream",
				UsageText: "draftsync stream subscribe --stream 2 --user 3",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "stream", Required: true, Destination: &cmd.streamID},
					&cli.IntFlag{Name: "user", Required: true, Destination: &cmd.userID},
				},
				Action: cmd.runSubscribe,
			},
		},
	})

	return app
}

func (cmd *StreamCmd) runAdd(ctx context.Context, c *cli.Command) error {
	st, err := openStores(cmd.flags.Config)
	if err != nil {
		return err
	}
	defer st.close()

	realmID := cmd.flags.Config.Server.RealmID
	if cmd.realm > 0 {
		realmID = int64(cmd.realm)
	}

	stream := &models.Stream{RealmID: realmID, Name: cmd.name, InviteOnly: cmd.inviteOnly}
	if err := st.Streams.CreateStream(stream); err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "created stream %d (%s) in realm %d\n", stream.ID, stream.Name, stream.RealmID)
	return nil
}

func (cmd *StreamCmd) runSubscribe(ctx context.Context, c *cli.Command) error {
	st, err := openStores(cmd.flags.Config)
	if err != nil {
		return err
	}
	defer st.close()

	if _, err := st.Users.GetUser(int64(cmd.userID)); err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if err := st.Streams.Subscribe(int64(cmd.userID), int64(cmd.streamID)); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "subscribed user %d to stream %d\n", cmd.userID, cmd.streamID)
	return nil
}
