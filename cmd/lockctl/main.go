package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/openhours/doorkeeper/internal/domain"
	"github.com/openhours/doorkeeper/internal/ttlock"
)

// lockctl is the operator's command-line companion: one-off vendor API
// calls with the same credentials the service uses, for diagnosing a
// lock without going through Telegram.

var (
	clientID     string
	clientSecret string
	username     string
	password     string
	lockID       int64
	baseURL      string
)

var apiFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "client-id",
		Usage:       "TTLock application client id",
		EnvVar:      "TTLOCK_CLIENT_ID",
		Destination: &clientID,
	},
	cli.StringFlag{
		Name:        "client-secret",
		Usage:       "TTLock application client secret",
		EnvVar:      "TTLOCK_CLIENT_SECRET",
		Destination: &clientSecret,
	},
	cli.StringFlag{
		Name:        "username",
		Usage:       "TTLock account username",
		EnvVar:      "TTLOCK_USERNAME",
		Destination: &username,
	},
	cli.StringFlag{
		Name:        "password",
		Usage:       "TTLock account password (hashed before sending)",
		EnvVar:      "TTLOCK_PASSWORD",
		Destination: &password,
	},
	cli.StringFlag{
		Name:        "base-url",
		Usage:       "vendor API base URL",
		EnvVar:      "TTLOCK_BASE_URL",
		Value:       ttlock.DefaultBaseURL,
		Destination: &baseURL,
	},
}

var lockFlags = append([]cli.Flag{
	cli.Int64Flag{
		Name:        "lock-id",
		Usage:       "lock to operate on (first lock on the account if omitted)",
		EnvVar:      "TTLOCK_LOCK_ID",
		Destination: &lockID,
	},
}, apiFlags...)

func newClient() (*ttlock.Client, context.Context, context.CancelFunc) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := ttlock.NewClient(ttlock.Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Username:     username,
		Password:     password,
	}, logger).WithBaseURL(baseURL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	return client, ctx, cancel
}

func token(_ *cli.Context) error {
	client, ctx, cancel := newClient()
	defer cancel()

	tok, err := client.Authenticate(ctx)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func locks(_ *cli.Context) error {
	client, ctx, cancel := newClient()
	defer cancel()

	tok, err := client.Authenticate(ctx)
	if err != nil {
		return err
	}
	list, err := client.ListLocks(ctx, tok)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no locks on this account")
		return nil
	}
	for _, l := range list {
		name := l.Alias
		if name == "" {
			name = l.Name
		}
		fmt.Printf("%d\t%s\n", l.ID, name)
	}
	return nil
}

func status(_ *cli.Context) error {
	client, ctx, cancel := newClient()
	defer cancel()

	tok, id, err := resolve(ctx, client)
	if err != nil {
		return err
	}
	st, err := client.QueryStatus(ctx, tok, id)
	if err != nil {
		return err
	}
	switch st {
	case domain.LockStatusLocked:
		fmt.Printf("lock %d: closed\n", id)
	case domain.LockStatusUnlocked:
		fmt.Printf("lock %d: open\n", id)
	default:
		fmt.Printf("lock %d: unknown status %d\n", id, st)
	}
	return nil
}

func unlock(_ *cli.Context) error { return command(domain.ActionUnlock) }
func lock(_ *cli.Context) error   { return command(domain.ActionLock) }

func command(action domain.Action) error {
	client, ctx, cancel := newClient()
	defer cancel()

	tok, id, err := resolve(ctx, client)
	if err != nil {
		return err
	}

	var res ttlock.Result
	if action == domain.ActionLock {
		res, err = client.Lock(ctx, tok, id)
	} else {
		res, err = client.Unlock(ctx, tok, id)
	}
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("lock %d: %s (code %d)", id, res.ErrMsg, res.ErrCode)
	}
	fmt.Printf("lock %d: %s\n", id, action.Done())
	return nil
}

func resolve(ctx context.Context, client *ttlock.Client) (string, int64, error) {
	tok, err := client.Authenticate(ctx)
	if err != nil {
		return "", 0, err
	}
	id, err := client.ResolveLockID(ctx, tok, lockID)
	if err != nil {
		return "", 0, err
	}
	return tok, id, nil
}

func main() {
	app := cli.App{
		Name:      "lockctl",
		HelpName:  "lockctl",
		Usage:     "command-line access to the door lock",
		UsageText: "lockctl <command> [arguments...]",
		Commands: []cli.Command{
			{
				Name:   "token",
				Usage:  "obtain and print a vendor access token",
				Action: token,
				Flags:  apiFlags,
			},
			{
				Name:   "locks",
				Usage:  "list locks on the account",
				Action: locks,
				Flags:  apiFlags,
			},
			{
				Name:   "status",
				Usage:  "query the lock's open/closed state",
				Action: status,
				Flags:  lockFlags,
			},
			{
				Name:   "unlock",
				Usage:  "open the lock once",
				Action: unlock,
				Flags:  lockFlags,
			},
			{
				Name:   "lock",
				Usage:  "close the lock once",
				Action: lock,
				Flags:  lockFlags,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "lockctl: %v\n", err)
		os.Exit(1)
	}
}
