// Command admin runs moderation actions from the shell with the same services
// the console uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"warden/internal/bootstrap"
	"warden/internal/config"
	"warden/internal/console"
	"warden/internal/middleware"
	"warden/internal/models"
	"warden/internal/server"
	"warden/internal/service"
)

const usageText = `Usage: go run ./cmd/admin [-as email] <command> [args]

  token <email> [ttl]             Issue a console token (default ttl 12h)
  approvals [status]              List reviews (pending|approved|rejected|all)
  approve <review-id> [notes]     Approve a review (pending-<userId> for synthetic)
  reject <review-id> <notes>      Reject a review
  ban <user-id> <days|permanent> <reason>
  unban <user-id> <message>
  role <user-id> <admin|user>
`

func main() {
	actorEmail := flag.String("as", os.Getenv("WARDEN_ACTOR_EMAIL"), "email of the acting superadmin")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	m, err := server.NewModeration(cfg, rt.DB, rt.Redis)
	if err != nil {
		log.Fatalf("Failed to wire services: %v", err)
	}

	cli := &cli{cfg: cfg, m: m, actorEmail: *actorEmail}
	if err := cli.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Fatal(err)
	}
}

type cli struct {
	cfg        *config.Config
	m          *server.Moderation
	actorEmail string
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "token":
		return c.token(ctx, args)
	case "approvals":
		return c.approvals(ctx, args)
	case "approve", "reject":
		return c.decide(ctx, cmd, args)
	case "ban":
		return c.ban(ctx, args)
	case "unban":
		if len(args) < 2 {
			return fmt.Errorf("usage: unban <user-id> <message>")
		}
		return c.act(ctx, func(p service.Principal) (*service.Result, error) {
			return c.m.Bans.Unban(ctx, p, args[0], strings.Join(args[1:], " "))
		})
	case "role":
		if len(args) != 2 {
			return fmt.Errorf("usage: role <user-id> <admin|user>")
		}
		role, _ := models.ParseRole(args[1])
		return c.act(ctx, func(p service.Principal) (*service.Result, error) {
			return c.m.Roles.SetRole(ctx, p, args[0], role)
		})
	default:
		fmt.Fprint(os.Stderr, usageText)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) token(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: token <email> [ttl]")
	}
	ttl := 12 * time.Hour
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("invalid ttl %q: %w", args[1], err)
		}
		ttl = d
	}
	user, err := c.m.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(args[0])))
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("no user with email %s", args[0])
	}
	tok, err := middleware.IssueToken(c.cfg.JWTSecret, middleware.Principal{ID: user.ID, Role: user.UserType}, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func (c *cli) approvals(ctx context.Context, args []string) error {
	status := console.DefaultReviewFilter
	if len(args) > 0 {
		status = args[0]
	}
	reviews, err := c.m.Approvals.ListReviews(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tSTATUS\tREQUESTED\tSYNTHETIC")
	for _, r := range console.FilterReviews(reviews, status) {
		rec := r.Record()
		name := rec.UserID
		if rec.User != nil && rec.User.Email != "" {
			name = rec.User.Email
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
			rec.ID, name, rec.Status, rec.RequestedAt.Format(time.RFC3339), r.IsSynthetic())
	}
	return w.Flush()
}

func (c *cli) decide(ctx context.Context, cmd string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <review-id> [notes]", cmd)
	}
	action := service.ActionApprove
	if cmd == "reject" {
		action = service.ActionReject
	}
	review, err := c.m.Approvals.Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	return c.act(ctx, func(p service.Principal) (*service.Result, error) {
		return c.m.Approvals.Decide(ctx, p, review, action, strings.Join(args[1:], " "))
	})
}

func (c *cli) ban(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: ban <user-id> <days|permanent> <reason>")
	}
	in := service.BanInput{UserID: args[0], Type: service.BanPermanent, Reason: strings.Join(args[2:], " ")}
	if !strings.EqualFold(args[1], string(service.BanPermanent)) {
		days, err := service.ParseBanDays(args[1])
		if err != nil {
			return err
		}
		in.Type = service.BanTemporary
		in.Days = days
	}
	return c.act(ctx, func(p service.Principal) (*service.Result, error) {
		return c.m.Bans.Ban(ctx, p, in)
	})
}

// act resolves the acting superadmin from the database and reports the result.
func (c *cli) act(ctx context.Context, fn func(service.Principal) (*service.Result, error)) error {
	if c.actorEmail == "" {
		return fmt.Errorf("set -as or WARDEN_ACTOR_EMAIL to the acting superadmin")
	}
	actor, err := c.m.Users.GetByEmail(ctx, strings.ToLower(c.actorEmail))
	if err != nil {
		return err
	}
	if actor == nil {
		return fmt.Errorf("no user with email %s", c.actorEmail)
	}

	res, err := fn(service.Principal{ID: actor.ID, Role: actor.UserType})
	if err != nil {
		return err
	}
	fmt.Printf("%s %s: user_type=%s status=%s banned=%t\n",
		res.User.ID, res.User.FullName(), res.User.UserType, res.User.Status, res.User.IsBanned)
	if res.Request != nil {
		fmt.Printf("request %s: %s\n", res.Request.ID, res.Request.Status)
	}
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w.Error())
	}
	return nil
}
