// zonectl is a small terminal client for the cfadmin API. It keeps the
// session token in a per-user file and signs itself out when the token
// expires or the server rejects it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"cfadmin/internal/client"
	"cfadmin/internal/model"
)

func main() {
	log.SetFlags(0)

	server := flag.String("server", envOr("CFADMIN_SERVER", "http://localhost:8080"), "cfadmin server URL")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	sessionPath, err := client.DefaultSessionPath()
	if err != nil {
		log.Fatalf("Failed to resolve session path: %v", err)
	}
	c := client.New(*server, client.NewFileSessionStore(sessionPath), func(reason string) {
		fmt.Fprintf(os.Stderr, "Signed out: %s\n", reason)
	})

	ctx := context.Background()
	if err := run(ctx, c, args[0], args[1:]); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "login":
		return cmdLogin(ctx, c, args)
	case "logout":
		return c.Logout(ctx)
	case "zones":
		return cmdZones(ctx, c)
	case "records":
		return cmdRecords(ctx, c, args)
	case "create":
		return cmdCreate(ctx, c, args)
	case "update":
		return cmdUpdate(ctx, c, args)
	case "delete":
		return cmdDelete(ctx, c, args)
	case "toggle-proxied":
		return cmdToggleProxied(ctx, c, args)
	case "config":
		return cmdConfig(ctx, c)
	case "set-token":
		return cmdSetToken(ctx, c, args)
	case "set-key":
		return cmdSetKey(ctx, c, args)
	case "test":
		return cmdTest(ctx, c)
	case "audit":
		return cmdAudit(ctx, c, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdLogin(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: zonectl login <login-key>")
	}
	sess, err := c.Login(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println("Logged in")
	if sess.User.ForceKeyChange {
		fmt.Println("The bootstrap login key is still in use. Rotate it with: zonectl set-key")
	}
	return nil
}

func cmdZones(ctx context.Context, c *client.Client) error {
	zones, err := c.Zones(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, z := range zones {
		fmt.Fprintf(tw, "%s\t%s\n", z.ID, z.Name)
	}
	return tw.Flush()
}

func cmdRecords(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: zonectl records <zone-id>")
	}
	records, err := c.Records(ctx, args[0])
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME\tCONTENT\tTTL\tPROXIED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\n", r.ID, r.Type, r.Name, r.Content, r.TTL, r.Proxied)
	}
	return tw.Flush()
}

func recordFlags(name string) (*flag.FlagSet, *model.RecordFields) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fields := &model.RecordFields{}
	fs.StringVar(&fields.Type, "type", "A", "Record type")
	fs.StringVar(&fields.Name, "name", "", "Record name")
	fs.StringVar(&fields.Content, "content", "", "Record content")
	fs.IntVar(&fields.TTL, "ttl", 1, "TTL in seconds (1 = automatic)")
	fs.BoolVar(&fields.Proxied, "proxied", false, "Proxy through the provider edge")
	return fs, fields
}

func cmdCreate(ctx context.Context, c *client.Client, args []string) error {
	fs, fields := recordFlags("create")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: zonectl create [flags] <zone-id>")
	}
	rec, err := c.CreateRecord(ctx, fs.Arg(0), *fields)
	if err != nil {
		return err
	}
	fmt.Printf("Created record %s (%s %s)\n", rec.ID, rec.Type, rec.Name)
	return nil
}

func cmdUpdate(ctx context.Context, c *client.Client, args []string) error {
	fs, fields := recordFlags("update")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: zonectl update [flags] <zone-id> <record-id>")
	}
	rec, err := c.UpdateRecord(ctx, fs.Arg(0), fs.Arg(1), *fields)
	if err != nil {
		return err
	}
	fmt.Printf("Updated record %s (%s %s)\n", rec.ID, rec.Type, rec.Name)
	return nil
}

func cmdDelete(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: zonectl delete <zone-id> <record-id>")
	}
	if err := c.DeleteRecord(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Println("Record deleted")
	return nil
}

func cmdToggleProxied(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: zonectl toggle-proxied <zone-id> <record-id>")
	}
	rec, err := c.ToggleProxied(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Record %s proxied=%t\n", rec.Name, rec.Proxied)
	return nil
}

func cmdConfig(ctx context.Context, c *client.Client) error {
	info, err := c.Config(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("API token configured: %t\n", info.HasAPIToken)
	if info.LastUpdated != nil {
		fmt.Printf("Last updated: %s\n", *info.LastUpdated)
	}
	return nil
}

func cmdSetToken(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: zonectl set-token <api-token>")
	}
	if err := c.SetAPIToken(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("API token updated")
	return nil
}

func cmdSetKey(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: zonectl set-key <current-key> <new-key> <confirm-key>")
	}
	if err := c.SetLoginKey(ctx, args[0], args[1], args[2]); err != nil {
		return err
	}
	fmt.Println("Login key updated. Login again with the new key.")
	return nil
}

func cmdTest(ctx context.Context, c *client.Client) error {
	result, err := c.TestConnection(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Success: %t — %s\n", result.Success, result.Message)
	return nil
}

func cmdAudit(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Entries per page")
	offset := fs.Int("offset", 0, "Page offset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	page, err := c.Audit(ctx, *limit, *offset)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSUBJECT\tACTION\tZONE\tRECORD\tDETAIL")
	for _, e := range page.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.CreatedAt, e.Subject, e.Action, e.ZoneID, e.RecordName, e.Detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d of %d entries\n", len(page.Entries), page.Total)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: zonectl [-server URL] <command> [args]

Commands:
  login <key>                          authenticate and store the session
  logout                               clear the session (best-effort server notify)
  zones                                list zones
  records <zone-id>                    list records in a zone
  create [flags] <zone-id>             create a record
  update [flags] <zone-id> <record-id> update a record
  delete <zone-id> <record-id>         delete a record
  toggle-proxied <zone-id> <record-id> flip the proxied flag
  config                               show stored configuration state
  set-token <api-token>                store the Cloudflare API token
  set-key <current> <new> <confirm>    rotate the login key
  test                                 test the Cloudflare connection
  audit [-limit N] [-offset N]         show the audit log`)
}
