package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/matheus3301/postbot/internal/config"
	"github.com/matheus3301/postbot/internal/control"
	"github.com/matheus3301/postbot/internal/lock"
	"github.com/matheus3301/postbot/internal/markup"
	"github.com/matheus3301/postbot/internal/profile"
	"google.golang.org/protobuf/encoding/protojson"
)

const excerptLen = 48

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	limit := flag.Int("limit", 20, "maximum published posts to list")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fail(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, name, *jsonFlag)
	case "scheduled":
		cmdScheduled(ctx, name, *jsonFlag)
	case "published":
		cmdPublished(ctx, name, *limit, *jsonFlag)
	case "config":
		cmdConfig(name, *jsonFlag)
	case "profiles":
		cmdProfiles(*jsonFlag)
	case "use":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: postctl use <profile>")
			os.Exit(1)
		}
		cmdUse(args[1])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: postctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status           Show daemon health and queue")
	fmt.Fprintln(os.Stderr, "  scheduled        List scheduled posts")
	fmt.Fprintln(os.Stderr, "  published        List recently published posts")
	fmt.Fprintln(os.Stderr, "  config           Print the effective config (token redacted)")
	fmt.Fprintln(os.Stderr, "  profiles         List known profiles")
	fmt.Fprintln(os.Stderr, "  use <profile>    Set the default profile")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func snapshot(ctx context.Context, name string, limit int) *control.Snapshot {
	s, err := control.Take(ctx, name, control.ProfilePaths(name), limit)
	if err != nil {
		fail(err)
	}
	return s
}

type statusOutput struct {
	Profile   string          `json:"profile"`
	PID       int             `json:"pid,omitempty"`
	Health    json.RawMessage `json:"health,omitempty"`
	Ready     string          `json:"ready,omitempty"`
	Scheduled int             `json:"scheduled"`
	Jobs      int             `json:"jobs"`
	NextRun   *time.Time      `json:"next_run,omitempty"`
}

func cmdStatus(ctx context.Context, name string, jsonOut bool) {
	s := snapshot(ctx, name, 0)
	if jsonOut {
		out := statusOutput{Profile: s.Profile, PID: s.PID, Ready: s.Ready, Scheduled: len(s.Scheduled), Jobs: s.Jobs}
		if s.HealthResponse != nil {
			raw, err := protojson.Marshal(s.HealthResponse)
			if err != nil {
				fail(err)
			}
			out.Health = raw
		}
		if !s.NextRun.IsZero() {
			out.NextRun = &s.NextRun
		}
		outputJSON(out)
		return
	}

	fmt.Printf("Profile:   %s\n", s.Profile)
	if s.Running() {
		fmt.Printf("Daemon:    running (PID %d)\n", s.PID)
	} else {
		fmt.Println("Daemon:    stopped")
	}
	fmt.Printf("Health:    %s\n", s.Health)
	if s.Ready != "" {
		fmt.Printf("Ready:     %s\n", s.Ready)
	}
	fmt.Printf("Scheduled: %d (%d queued jobs)\n", len(s.Scheduled), s.Jobs)
	if !s.NextRun.IsZero() {
		fmt.Printf("Next run:  %s (%s)\n", s.NextRun.Local().Format(time.DateTime), humanize.Time(s.NextRun))
	}
}

type scheduledRow struct {
	ID        int64     `json:"id"`
	Owner     int64     `json:"owner"`
	Channel   string    `json:"channel"`
	PublishAt time.Time `json:"publish_at"`
	Status    string    `json:"status"`
	Media     string    `json:"media,omitempty"`
	Text      string    `json:"text"`
	LastError string    `json:"last_error,omitempty"`
}

func cmdScheduled(ctx context.Context, name string, jsonOut bool) {
	s := snapshot(ctx, name, 0)
	rows := make([]scheduledRow, 0, len(s.Scheduled))
	for _, p := range s.Scheduled {
		rows = append(rows, scheduledRow{
			ID: p.ID, Owner: p.OwnerID, Channel: p.ChannelID, PublishAt: p.PublishAt,
			Status: p.Status, Media: p.MediaKind(), Text: markup.Excerpt(p.Text, excerptLen), LastError: p.LastError,
		})
	}
	if jsonOut {
		outputJSON(rows)
		return
	}
	if len(rows) == 0 {
		fmt.Println("No scheduled posts.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCHANNEL\tWHEN\tSTATUS\tMEDIA\tTEXT")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Channel, humanize.Time(r.PublishAt), r.Status, r.Media, r.Text)
	}
	_ = w.Flush()
}

type publishedRow struct {
	Owner       int64     `json:"owner"`
	Channel     string    `json:"channel"`
	MessageID   string    `json:"message_id"`
	PublishedAt time.Time `json:"published_at"`
	Media       string    `json:"media,omitempty"`
	Text        string    `json:"text"`
}

func cmdPublished(ctx context.Context, name string, limit int, jsonOut bool) {
	s := snapshot(ctx, name, limit)
	rows := make([]publishedRow, 0, len(s.Published))
	for _, p := range s.Published {
		rows = append(rows, publishedRow{
			Owner: p.OwnerID, Channel: p.ChannelID, MessageID: p.MessageID,
			PublishedAt: p.PublishedAt, Media: p.MediaKind(), Text: markup.Excerpt(p.Text, excerptLen),
		})
	}
	if jsonOut {
		outputJSON(rows)
		return
	}
	if len(rows) == 0 {
		fmt.Println("No published posts.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHANNEL\tMESSAGE\tWHEN\tMEDIA\tTEXT")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Channel, r.MessageID, humanize.Time(r.PublishedAt), r.Media, r.Text)
	}
	_ = w.Flush()
}

func cmdConfig(name string, jsonOut bool) {
	cfg, err := config.Load(profile.ConfigPath(name), profile.EnvPath(name))
	if err != nil {
		fail(err)
	}
	if cfg.Telegram.Token != "" {
		cfg.Telegram.Token = "<redacted>"
	}
	if cfg.Session.ValkeyPassword != "" {
		cfg.Session.ValkeyPassword = "<redacted>"
	}
	if jsonOut {
		outputJSON(cfg)
		return
	}
	if err := toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
		fail(err)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "\nwarning: config is invalid: %v\n", err)
	}
}

type profileRow struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Running bool   `json:"running"`
	Default bool   `json:"default"`
}

func cmdProfiles(jsonOut bool) {
	entries, err := os.ReadDir(filepath.Join(profile.BaseDir(), "profiles"))
	if err != nil && !os.IsNotExist(err) {
		fail(err)
	}
	def := profile.Resolve("")
	var rows []profileRow
	for _, e := range entries {
		if !e.IsDir() || profile.ValidateName(e.Name()) != nil {
			continue
		}
		rows = append(rows, profileRow{
			Name:    e.Name(),
			Path:    profile.Dir(e.Name()),
			Running: lock.IsHeld(profile.Dir(e.Name())),
			Default: e.Name() == def,
		})
	}
	if jsonOut {
		outputJSON(rows)
		return
	}
	if len(rows) == 0 {
		fmt.Println("No profiles found.")
		return
	}
	for _, r := range rows {
		state := "stopped"
		if r.Running {
			state = "running"
		}
		marker := " "
		if r.Default {
			marker = "*"
		}
		fmt.Printf("%s %-20s %s (%s)\n", marker, r.Name, r.Path, state)
	}
}

func cmdUse(name string) {
	if err := profile.ValidateName(name); err != nil {
		fail(err)
	}
	if err := config.SaveGlobal(profile.GlobalConfigPath(), &config.Global{DefaultProfile: name}); err != nil {
		fail(err)
	}
	fmt.Printf("Default profile set to %q.\n", name)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
