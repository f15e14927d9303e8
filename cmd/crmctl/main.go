// Command crmctl is a small operator tool for the CRM API.
//
//	crmctl [-api URL] login EMAIL PASSWORD
//	crmctl guests [SEARCH]
//	crmctl visit GUEST_ID
//	crmctl status BOOKING_ID STATUS
//	crmctl recalc
//	crmctl logout
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/iliyamo/chinor-crm/internal/client"
)

func main() {
	api := flag.String("api", envOr("CHINOR_API_URL", "http://localhost:8080"), "CRM server base URL")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := client.New(*api, client.FileSessionStore{Path: sessionPath()})
	if err := run(ctx, c, flag.Args()); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, "session expired, run: crmctl login EMAIL PASSWORD")
		} else {
			fmt.Fprintln(os.Stderr, "crmctl:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}
	switch cmd, rest := args[0], args[1:]; cmd {
	case "login":
		if len(rest) != 2 {
			return errors.New("usage: login EMAIL PASSWORD")
		}
		sess, err := c.Login(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s (%s)\n", sess.User.DisplayName, sess.User.Role)
		return nil
	case "logout":
		return c.Logout()
	case "guests":
		search := ""
		if len(rest) > 0 {
			search = rest[0]
		}
		page, err := c.ListGuests(ctx, search, 1, 50)
		if err != nil {
			return err
		}
		return printJSON(page)
	case "visit":
		id, err := argID(rest, "usage: visit GUEST_ID")
		if err != nil {
			return err
		}
		g, err := c.RecordVisit(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(g)
	case "status":
		if len(rest) != 2 {
			return errors.New("usage: status BOOKING_ID STATUS")
		}
		id, err := argID(rest[:1], "usage: status BOOKING_ID STATUS")
		if err != nil {
			return err
		}
		b, err := c.SetBookingStatus(ctx, id, rest[1])
		if err != nil {
			return err
		}
		return printJSON(b)
	case "recalc":
		res, err := c.RecalculateSegments(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("examined %d guests, updated %d\n", res.Total, res.Updated)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func argID(args []string, usage string) (uint64, error) {
	if len(args) != 1 {
		return 0, errors.New(usage)
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "chinor-crm", "session.json")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
