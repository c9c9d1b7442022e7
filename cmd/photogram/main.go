package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"golang.org/x/exp/slog"

	"photogram/client"
)

const usage = `usage: photogram [-verify] <command> [flags]

commands:
  signup   -u NAME -e EMAIL -p PASSWORD
  signin   -u NAME -p PASSWORD
  signout
  whoami
  feed
  post     -photo URL -name NAME -desc TEXT
  edit     -id ID [-name NAME] [-desc TEXT]
  delete   -id ID
`

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		msg := err.Error()
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			msg = client.UserMessage(err)
		}

		fmt.Fprintln(os.Stderr, "photogram:", msg)
		slog.Debug("Command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("photogram", flag.ContinueOnError)
	verify := global.Bool("verify", false, "check the stored token with the server on start")
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	if err := global.Parse(args); err != nil {
		return err
	}

	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	cfg, err := client.LoadConfig()
	if err != nil {
		return err
	}

	path := cfg.CredentialsPath
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "photogram", "credentials.db")
	}

	store, err := client.OpenSQLiteCredentialStore(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	var opts []client.SessionOption
	if *verify {
		opts = append(opts, client.WithVerifyOnRestore())
	}

	c := client.New(cfg, store, slog.Default(), opts...)
	if err := c.Session.RestoreSession(ctx); err != nil {
		return err
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)

	switch cmd {
	case "signup":
		u := fs.String("u", "", "username")
		e := fs.String("e", "", "email")
		p := fs.String("p", "", "password")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := c.Session.Signup(ctx, client.Registration{Username: *u, Email: *e, Password: *p}); err != nil {
			return err
		}
		return printUser(out, c.Session.Snapshot())

	case "signin":
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := c.Session.Signin(ctx, client.Credentials{Username: *u, Password: *p}); err != nil {
			return err
		}
		return printUser(out, c.Session.Snapshot())

	case "signout":
		if err := c.Session.Signout(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "signed out")
		return err

	case "whoami":
		return printUser(out, c.Session.Snapshot())

	case "feed":
		feed := client.NewFeed(c.Photos)
		if err := feed.Refresh(ctx); err != nil {
			return err
		}
		return printPhotos(out, feed.Items())

	case "post":
		photo := fs.String("photo", "", "image URL")
		name := fs.String("name", "", "title")
		desc := fs.String("desc", "", "description")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		p, err := c.Photos.Create(ctx, *photo, *name, *desc)
		if err != nil {
			return err
		}
		return printPhotos(out, []client.Photo{p})

	case "edit":
		id := fs.String("id", "", "photo id")
		name := fs.String("name", "", "new title")
		desc := fs.String("desc", "", "new description")
		if err := fs.Parse(rest); err != nil {
			return err
		}

		var upd client.PhotoUpdate
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "name":
				upd.Name = name
			case "desc":
				upd.Description = desc
			}
		})

		p, err := c.Photos.Update(ctx, *id, upd)
		if err != nil {
			return err
		}
		return printPhotos(out, []client.Photo{p})

	case "delete":
		id := fs.String("id", "", "photo id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := c.Photos.Delete(ctx, *id); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "Photo removed")
		return err

	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUser(out io.Writer, snap client.Snapshot) error {
	if snap.User == nil {
		_, err := fmt.Fprintln(out, "not signed in")
		return err
	}

	_, err := fmt.Fprintf(out, "%s <%s> id=%s\n", snap.User.Username, snap.User.Email, snap.User.ID)
	return err
}

func printPhotos(out io.Writer, photos []client.Photo) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOWNER\tCREATED\tPHOTO")
	for _, p := range photos {
		owner := p.OwnerUsername
		if owner == "" {
			owner = p.Owner
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, owner, p.CreatedAt.Local().Format(time.DateTime), p.Photo)
	}

	return tw.Flush()
}
