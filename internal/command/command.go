// Package command implements the marketcache command line.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/adeilh/marketcache/auth"
	"github.com/adeilh/marketcache/cache"
	"github.com/adeilh/marketcache/config"
	"github.com/adeilh/marketcache/internal/app"
	"github.com/adeilh/marketcache/internal/logging"
)

var ErrNotCached = errors.New("not cached")

// New builds the root command. Normal output goes to out, logs to errOut.
func New(out, errOut io.Writer) *cli.Command {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &cli.Command{
		Name:      "marketcache",
		Usage:     "Expiring search-result cache over a shared key/value partition",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				Sources: cli.EnvVars("MARKETCACHE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log.level",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			sweepCommand(),
			getCommand(),
			saveCommand(),
			keysCommand(),
			hashTokenCommand(),
		},
	}
}

// load reads config and opens the app for a subcommand.
func load(ctx context.Context, cmd *cli.Command) (*app.App, *config.Config, zerolog.Logger, error) {
	root := cmd.Root()
	cfg, err := config.Load(root.String("config"))
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	level := cfg.Log.Level
	if l := root.String("log-level"); l != "" {
		level = l
	}
	log, err := logging.New(level, cfg.Log.Format, root.ErrWriter)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, log, err
	}
	return a, cfg, log, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "sweep stale entries, then serve the HTTP API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, _, _, err := load(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Serve(ctx)
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "remove expired and unreadable cache entries",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, _, _, err := load(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			removed := a.Cache().Sweep(ctx)
			_, err = fmt.Fprintf(cmd.Root().Writer, "removed %s\n", plural(removed, "entry", "entries"))
			return err
		},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print the cached payload for KEY",
		ArgsUsage: "KEY",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key := cmd.Args().First()
			if key == "" {
				return errors.New("get: KEY is required")
			}
			a, _, _, err := load(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			payload, ok := a.Cache().Get(ctx, key)
			if !ok {
				return fmt.Errorf("get %s: %w", key, ErrNotCached)
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, string(payload))
			return err
		},
	}
}

func saveCommand() *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "cache the JSON payload under KEY",
		ArgsUsage: "KEY JSON",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 2 {
				return errors.New("save: KEY and JSON are required")
			}
			key, body := cmd.Args().Get(0), strings.TrimSpace(cmd.Args().Get(1))
			if !json.Valid([]byte(body)) {
				return fmt.Errorf("save %s: payload is not valid JSON", key)
			}
			a, cfg, _, err := load(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.Cache().Save(ctx, key, json.RawMessage(body))
			if _, ok := a.Cache().Get(ctx, key); !ok {
				return fmt.Errorf("save %s: entry was not stored, see log", key)
			}
			expires := time.Now().Add(cfg.Cache.TTL)
			_, err = fmt.Fprintf(cmd.Root().Writer, "saved %s (%s), expires %s\n",
				key, humanize.Bytes(uint64(len(body))), humanize.Time(expires))
			return err
		},
	}
}

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "list cached keys with their expiry",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, _, _, err := load(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			infos, err := a.Cache().Entries(ctx)
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tSIZE\tEXPIRES")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Key, humanize.Bytes(uint64(info.Size)), describeExpiry(info))
			}
			return tw.Flush()
		},
	}
}

func hashTokenCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-token",
		Usage:     "print the bcrypt hash to use as admin.token_hash",
		ArgsUsage: "TOKEN",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "cost", Value: auth.DefaultCost, Usage: "bcrypt cost"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			hash, err := auth.HashToken(cmd.Args().First(), int(cmd.Int("cost")))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, hash)
			return err
		},
	}
}

func describeExpiry(info cache.Info) string {
	switch {
	case info.Malformed:
		return "unreadable"
	case info.Expired:
		return "expired " + humanize.Time(info.ExpiresAt)
	default:
		return humanize.Time(info.ExpiresAt)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return humanize.Comma(int64(n)) + " " + many
}
