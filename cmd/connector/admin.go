package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/term"

	"github.com/Strob0t/crowdin-gamification/internal/adapter/crowdin"
	cgnats "github.com/Strob0t/crowdin-gamification/internal/adapter/nats"
	"github.com/Strob0t/crowdin-gamification/internal/adapter/postgres"
	"github.com/Strob0t/crowdin-gamification/internal/adapter/ristretto"
	"github.com/Strob0t/crowdin-gamification/internal/config"
	"github.com/Strob0t/crowdin-gamification/internal/domain/event"
	"github.com/Strob0t/crowdin-gamification/internal/domain/rule"
	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/secrets"
	"github.com/Strob0t/crowdin-gamification/internal/service"
)

// runAdmin dispatches admin subcommands.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "hooks":
		return runAdminHooks(args[1:])
	case "migrate":
		return runAdminMigrate(args[1:])
	case "accounts":
		return runAdminAccounts(args[1:])
	case "rules":
		return runAdminRules(args[1:])
	case "actions":
		return runAdminActions(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: connector admin <command> [options]

Commands:
  hooks list|create|delete|refresh    Manage the Crowdin webhooks of watched projects
  migrate up|down|version             Apply, roll back or show database migrations
  accounts connect|disconnect         Link a Crowdin username to a platform user
  rules add                           Register a gamification rule
  actions tail                        Print broadcast actions as they are published
  help                                Show this help message

Examples:
  connector admin hooks create --as root --project 42
  connector admin hooks list --as root
  connector admin migrate down --steps 1
  connector admin accounts connect --remote jdoe --user john
  connector admin rules add --title suggestionApproved --project 42 --cancelled-by suggestionDisapproved
  connector admin actions tail --kind cancel
`)
}

type adminDeps struct {
	cfg   *config.Config
	pool  *pgxpool.Pool
	store *postgres.Store
}

func loadAdminDeps(ctx context.Context) (*adminDeps, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	sealer, err := secrets.NewSealer(cfg.Secrets.TokenKey)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("secrets: %w", err)
	}
	deps := &adminDeps{cfg: cfg, pool: pool, store: postgres.NewStore(pool, sealer)}
	return deps, pool.Close, nil
}

func (d *adminDeps) webhookService() (*service.WebhookService, func(), error) {
	c, err := ristretto.New(d.cfg.Cache.MaxCostBytes)
	if err != nil {
		return nil, nil, err
	}
	remote := crowdin.NewClient(d.cfg.Crowdin.APIURL, d.cfg.Crowdin.RequestTimeout)
	svc := service.NewWebhookService(d.store, remote, d.store, service.NewStaticRoles(d.cfg.Auth.RewardingManagers), c,
		service.WebhookOptions{
			CallbackURL:    d.cfg.Server.WebhookURL(),
			SecretLength:   d.cfg.Crowdin.SecretLength,
			ProjectTTL:     d.cfg.Cache.ProjectTTL,
			RefreshWorkers: d.cfg.Crowdin.RefreshWorkers,
		})
	return svc, c.Close, nil
}

// --- hooks ---

func runAdminHooks(args []string) error {
	if len(args) == 0 {
		return errors.New("hooks: expected list, create, delete or refresh")
	}
	fs := flag.NewFlagSet("hooks "+args[0], flag.ContinueOnError)
	as := fs.String("as", "", "rewarding manager performing the operation (required)")
	project := fs.Int64("project", 0, "Crowdin project id")
	name := fs.String("name", "", "project display name (defaults to the Crowdin name)")
	token := fs.String("token", "", "Crowdin access token (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *as == "" && args[0] != "refresh" {
		return errors.New("--as is required")
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	svc, closeCache, err := deps.webhookService()
	if err != nil {
		return err
	}
	defer closeCache()

	switch args[0] {
	case "list":
		hooks, err := svc.ListWebhooks(ctx, *as, 0, 0, false)
		if err != nil {
			return fmt.Errorf("list hooks: %w", err)
		}
		printHooks(hooks)
		return nil

	case "create":
		if *project <= 0 {
			return errors.New("--project is required")
		}
		accessToken := *token
		if accessToken == "" {
			if accessToken, err = promptSecret("Crowdin access token: "); err != nil {
				return fmt.Errorf("read token: %w", err)
			}
		}
		hook, err := svc.CreateWebhook(ctx, service.CreateWebhookRequest{
			ProjectID:   *project,
			ProjectName: *name,
			AccessToken: accessToken,
		}, *as)
		if err != nil {
			return fmt.Errorf("create hook: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Hook created for project %d (%s), remote webhook %d\n", hook.ProjectID, hook.ProjectName, hook.WebhookID)
		return nil

	case "delete":
		if *project <= 0 {
			return errors.New("--project is required")
		}
		if err := svc.DeleteWebhook(ctx, *project, *as); err != nil {
			return fmt.Errorf("delete hook: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Hook of project %d deleted\n", *project)
		return nil

	case "refresh":
		if err := svc.ForceUpdateWebhooks(ctx); err != nil {
			return fmt.Errorf("refresh hooks: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Hooks refreshed")
		return nil

	default:
		return fmt.Errorf("unknown hooks command: %s", args[0])
	}
}

func printHooks(hooks []webhook.Details) {
	if len(hooks) == 0 {
		fmt.Println("No hooks found.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROJECT\tNAME\tWEBHOOK\tENABLED\tWATCH_LIMIT\tWATCHED_BY\tREFRESHED")
	for i := range hooks {
		h := hooks[i]
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%t\t%t\t%s\t%s\n",
			h.ProjectID, h.ProjectName, h.WebhookID, h.Enabled, h.WatchLimit, h.WatchedBy, h.RefreshDate.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

// --- migrate ---

func runAdminMigrate(args []string) error {
	if len(args) == 0 {
		return errors.New("migrate: expected up, down or version")
	}
	fs := flag.NewFlagSet("migrate "+args[0], flag.ContinueOnError)
	steps := fs.Int("steps", 1, "migrations to roll back")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()

	switch args[0] {
	case "up":
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return err
		}
	case "down":
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate command: %s", args[0])
	}

	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d\n", v)
	return nil
}

// --- accounts ---

func runAdminAccounts(args []string) error {
	if len(args) == 0 {
		return errors.New("accounts: expected connect or disconnect")
	}
	fs := flag.NewFlagSet("accounts "+args[0], flag.ContinueOnError)
	remote := fs.String("remote", "", "Crowdin username (required)")
	user := fs.String("user", "", "platform username")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *remote == "" {
		return errors.New("--remote is required")
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	switch args[0] {
	case "connect":
		if err := deps.store.ConnectAccount(ctx, webhook.ConnectorName, *remote, *user); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Crowdin user %s connected to %s\n", *remote, *user)
	case "disconnect":
		if err := deps.store.DisconnectAccount(ctx, webhook.ConnectorName, *remote); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Crowdin user %s disconnected\n", *remote)
	default:
		return fmt.Errorf("unknown accounts command: %s", args[0])
	}
	return nil
}

// --- rules ---

func runAdminRules(args []string) error {
	if len(args) == 0 || args[0] != "add" {
		return errors.New("rules: expected add")
	}
	fs := flag.NewFlagSet("rules add", flag.ContinueOnError)
	title := fs.String("title", "", "event name the rule rewards (required)")
	project := fs.String("project", "", "restrict the rule to one Crowdin project id")
	cancelledBy := fs.String("cancelled-by", "", "comma-separated events reversing the reward")
	disabled := fs.Bool("disabled", false, "create the rule disabled")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *title == "" {
		return errors.New("--title is required")
	}

	var cancellers []string
	for _, c := range strings.Split(*cancelledBy, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cancellers = append(cancellers, c)
		}
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	r := &rule.Rule{
		Title:           *title,
		EventType:       webhook.ConnectorName,
		ProjectID:       *project,
		Enabled:         !*disabled,
		CancellerEvents: cancellers,
	}
	if err := deps.store.SaveRule(ctx, r); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Rule %d created: %s\n", r.ID, r.Title)
	return nil
}

// --- actions ---

func runAdminActions(args []string) error {
	if len(args) == 0 || args[0] != "tail" {
		return errors.New("actions: expected tail")
	}
	fs := flag.NewFlagSet("actions tail", flag.ContinueOnError)
	kind := fs.String("kind", "generic", "action kind to follow: generic or cancel")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	actionKind := event.ActionGeneric
	switch *kind {
	case "generic":
	case "cancel":
		actionKind = event.ActionCancel
	default:
		return fmt.Errorf("unknown action kind: %s", *kind)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := cgnats.Connect(ctx, cfg.NATS)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = b.Close() }()

	enc := json.NewEncoder(os.Stdout)
	stopConsume, err := b.Subscribe(ctx, b.Subject(actionKind), func(_ context.Context, a event.Action) error {
		return enc.Encode(a)
	})
	if err != nil {
		return err
	}
	defer stopConsume()

	fmt.Fprintf(os.Stderr, "Following %s, press Ctrl+C to stop\n", b.Subject(actionKind))
	<-ctx.Done()
	return nil
}

// promptSecret reads a secret from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
