// ABOUTME: Offline admin CLI for the raketa bot database
// ABOUTME: Prints stats and events and writes the same xlsx exports the chat admin panel sends

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/2389/raketa/internal/config"
	"github.com/2389/raketa/internal/report"
	"github.com/2389/raketa/internal/store"
)

const banner = `
           _        _                       _           _
 _ __ __ _| | _____| |_ __ _        __ _  __| |_ __ ___ (_)_ __
| '__/ _' | |/ / _ \ __/ _' |_____ / _' |/ _' | '_ ' _ \| | '_ \
| | | (_| |   <  __/ || (_| |_____| (_| | (_| | | | | | | | | | |
|_|  \__,_|_|\_\___|\__\__,_|      \__,_|\__,_|_| |_| |_|_|_| |_|
`

// options are the flags shared by every command.
type options struct {
	config string
	env    string
	out    string
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	opts, args, err := parseFlags(cmd, os.Args[2:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cmd, opts, args, os.Stdout); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(cmd string, argv []string) (options, []string, error) {
	var opts options
	flags := pflag.NewFlagSet("raketa-admin "+cmd, pflag.ContinueOnError)
	flags.StringVarP(&opts.config, "config", "c", config.Path(), "path to the bot's TOML config file")
	flags.StringVar(&opts.env, "env", ".env", "optional .env file loaded before the config")
	flags.StringVarP(&opts.out, "out", "o", ".", "directory for exported workbooks")
	if err := flags.Parse(argv); err != nil {
		return opts, nil, err
	}
	return opts, flags.Args(), nil
}

func run(ctx context.Context, cmd string, opts options, args []string, w io.Writer) error {
	if err := config.LoadEnv(opts.env); err != nil {
		return err
	}
	cfg, err := config.Load(opts.config)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", opts.config, err)
	}

	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	return dispatch(ctx, db, cmd, opts.out, args, w)
}

func dispatch(ctx context.Context, db store.Store, cmd, outDir string, args []string, w io.Writer) error {
	switch cmd {
	case "stats":
		return cmdStats(ctx, db, w)
	case "events":
		return cmdEvents(ctx, db, w)
	case "export-members":
		return cmdExportMembers(ctx, db, outDir, w)
	case "export-applications":
		return cmdExportApplications(ctx, db, outDir, w)
	case "export-event":
		if len(args) != 1 {
			return errors.New("usage: raketa-admin export-event <event-id>")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid event id %q", args[0])
		}
		return cmdExportEvent(ctx, db, id, outDir, w)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: raketa-admin <command> [flags] [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  stats                   Show member, event and application counts")
	fmt.Println("  events                  List events, newest first")
	fmt.Println("  export-members          Write users.xlsx")
	fmt.Println("  export-applications     Write applications.xlsx")
	fmt.Println("  export-event <id>       Write <title>_applications.xlsx for one event")
	fmt.Println()
	yellow.Println("Flags:")
	fmt.Println("  -c, --config <path>     Config file (default: RAKETA_CONFIG or ~/.config/raketa/bot.toml)")
	fmt.Println("      --env <path>        .env file loaded first (default: .env)")
	fmt.Println("  -o, --out <dir>         Output directory for exports (default: .)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  raketa-admin stats")
	fmt.Println("  raketa-admin export-event 3 --out /tmp")
	fmt.Println()
}

func cmdStats(ctx context.Context, db store.Store, w io.Writer) error {
	st, err := db.Stats(ctx)
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Fprint(w, "  Members:                   ")
	fmt.Fprintf(w, "%d\n", st.Members)
	green.Fprint(w, "  Events:                    ")
	fmt.Fprintf(w, "%d\n", st.Events)
	green.Fprint(w, "  Applications:              ")
	fmt.Fprintf(w, "%d\n", st.Applications)
	green.Fprint(w, "  Announcement applications: ")
	fmt.Fprintf(w, "%d\n", st.AnnouncementApplications)
	return nil
}

func cmdEvents(ctx context.Context, db store.Store, w io.Writer) error {
	events, err := db.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}
	if len(events) == 0 {
		fmt.Fprintln(w, "  No events.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tTITLE\tPHOTO\tCREATED")
	fmt.Fprintln(tw, "  --\t-----\t-----\t-------")
	for _, ev := range events {
		photo := "-"
		if ev.PhotoRef != nil {
			photo = "yes"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", ev.ID, truncate(ev.Title, 40), photo, ev.CreatedAt.Format("Jan 02 15:04"))
	}
	return tw.Flush()
}

func cmdExportMembers(ctx context.Context, db store.Store, outDir string, w io.Writer) error {
	members, err := db.ListMembers(ctx, store.MemberFilter{})
	if err != nil {
		return fmt.Errorf("listing members: %w", err)
	}
	return writeWorkbook(w, outDir, "users.xlsx", "Пользователи", report.MembersTable(members))
}

func cmdExportApplications(ctx context.Context, db store.Store, outDir string, w io.Writer) error {
	apps, err := db.ListApplications(ctx, store.ApplicationFilter{})
	if err != nil {
		return fmt.Errorf("listing applications: %w", err)
	}
	return writeWorkbook(w, outDir, "applications.xlsx", "Заявки", report.ApplicationsTable(apps, true))
}

func cmdExportEvent(ctx context.Context, db store.Store, id int64, outDir string, w io.Writer) error {
	ev, err := db.GetEvent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("event %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("loading event: %w", err)
	}

	apps, err := db.ListApplications(ctx, store.ApplicationFilter{EventID: &id})
	if err != nil {
		return fmt.Errorf("listing applications: %w", err)
	}
	filename := strings.ReplaceAll(ev.Title, " ", "_") + "_applications.xlsx"
	filename = strings.ReplaceAll(filename, string(filepath.Separator), "_")
	return writeWorkbook(w, outDir, filename, ev.Title, report.ApplicationsTable(apps, false))
}

func writeWorkbook(w io.Writer, outDir, filename, sheet string, tbl report.Table) error {
	data, err := report.Generate(sheet, tbl)
	if errors.Is(err, report.ErrNoData) {
		color.New(color.FgYellow).Fprintln(w, "  Nothing to export.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(outDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	color.New(color.FgGreen).Fprintf(w, "  ✓ Wrote %s (%d rows)\n", path, len(tbl.Rows))
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
