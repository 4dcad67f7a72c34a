// ABOUTME: Interactive "raketa init" setup that writes a starter config file
// ABOUTME: Asks for the Matrix account, admins and database, then renders TOML

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/raketa/internal/config"
)

// setup holds the answers gathered by runInit.
type setup struct {
	Homeserver  string
	UserID      string
	Username    string
	Password    string
	RecoveryKey string
	Admins      []string
	Driver      string
	DatabaseURL string
}

func runInit() error {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	cyan.Print(banner)
	fmt.Println("    Interactive Setup")
	fmt.Println("    -----------------")
	fmt.Println()

	configPath := config.Path()
	reader := bufio.NewReader(os.Stdin)

	if _, err := os.Stat(configPath); err == nil {
		yellow.Printf("    Config already exists at %s\n", configPath)
		if answer := ask(reader, "Overwrite? [y/N]"); strings.ToLower(answer) != "y" {
			fmt.Println("    Aborted.")
			return nil
		}
		fmt.Println()
	}

	s := setup{
		Homeserver:  askDefault(reader, "Matrix homeserver URL", "https://matrix.org"),
		UserID:      ask(reader, "Bot Matrix ID (e.g. @raketa:matrix.org)"),
		Username:    ask(reader, "Matrix username"),
		Password:    ask(reader, "Matrix password"),
		RecoveryKey: ask(reader, "Matrix recovery key (optional, for E2EE)"),
		Admins:      splitList(ask(reader, "Admin Matrix IDs (comma separated)")),
		Driver:      askDefault(reader, "Database driver (sqlite/postgres)", config.DefaultDriver),
	}
	if s.Driver == "postgres" {
		s.DatabaseURL = ask(reader, "Postgres URL")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(renderConfig(s)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Println()
	green.Printf("    ✓ Config written to %s\n", configPath)
	fmt.Println()
	fmt.Println("    Next steps:")
	fmt.Println("    1. Run: raketa")
	fmt.Println("    2. Write /start to the bot from Matrix")
	fmt.Println()
	return nil
}

func ask(r *bufio.Reader, prompt string) string {
	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("%s: ", prompt)
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return ""
	}
	return strings.TrimSpace(line)
}

func askDefault(r *bufio.Reader, prompt, def string) string {
	if v := ask(r, fmt.Sprintf("%s [%s]", prompt, def)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// renderConfig produces the TOML written by init.
func renderConfig(s setup) string {
	var b strings.Builder
	b.WriteString("# raketa bot configuration\n# Generated by raketa init\n\n")

	b.WriteString("[matrix]\n")
	fmt.Fprintf(&b, "homeserver = %q\n", s.Homeserver)
	fmt.Fprintf(&b, "user_id = %q\n", s.UserID)
	fmt.Fprintf(&b, "username = %q\n", s.Username)
	fmt.Fprintf(&b, "password = %q\n", s.Password)
	if s.RecoveryKey != "" {
		fmt.Fprintf(&b, "recovery_key = %q\n", s.RecoveryKey)
	}

	b.WriteString("\n[bot]\n")
	quoted := make([]string, len(s.Admins))
	for i, a := range s.Admins {
		quoted[i] = fmt.Sprintf("%q", a)
	}
	fmt.Fprintf(&b, "admins = [%s]\n", strings.Join(quoted, ", "))
	fmt.Fprintf(&b, "country_code = %q\n", config.DefaultCountryCode)
	fmt.Fprintf(&b, "trunk_prefix = %q\n", config.DefaultTrunkPrefix)

	b.WriteString("\n[database]\n")
	fmt.Fprintf(&b, "driver = %q\n", s.Driver)
	if s.Driver == "postgres" {
		fmt.Fprintf(&b, "url = %q\n", s.DatabaseURL)
	}

	b.WriteString("\n[broadcast]\n")
	fmt.Fprintf(&b, "workers = %d\n", config.DefaultWorkers)
	fmt.Fprintf(&b, "send_timeout = %q\n", config.DefaultSendTimeout.String())

	b.WriteString("\n[logging]\nlevel = \"info\"\n")
	return b.String()
}
