package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"challenge-reward-system/app"
	"challenge-reward-system/catalog"
	"challenge-reward-system/connectors"
	"challenge-reward-system/models"
	"challenge-reward-system/stores"
	"challenge-reward-system/utils"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const usage = `usage: challenger <command> [flags]

commands:
  login wallet
  login social <google|apple|facebook> [--token T --email E --name N]
  login email <email> <password> [--register --name N]
  logout
  whoami
  challenges [--search Q --category C --difficulty D]
  start <challenge-id>
  progress <challenge-id> <percent>
  complete <challenge-id> [artifact-ref] [--file path] [--meta key=value ...]
  status
  stats
  watch
`

var errUsage = errors.New("invalid usage")

type command func(ctx context.Context, c *app.Client, out io.Writer, args []string) error

var commands = map[string]command{
	"login":      login,
	"logout":     logout,
	"whoami":     whoami,
	"challenges": listChallenges,
	"start":      start,
	"progress":   progress,
	"complete":   complete,
	"status":     status,
	"stats":      stats,
	"watch":      watch,
}

func run(ctx context.Context, c *app.Client, out io.Writer, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return cmd(ctx, c, out, args[1:])
}

func flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func login(ctx context.Context, c *app.Client, out io.Writer, args []string) error {
	fs := flagSet("login")
	token := fs.String("token", "", "provider token (http mode)")
	email := fs.String("email", "", "email the provider reported (http mode)")
	name := fs.String("name", "", "display name")
	register := fs.Bool("register", false, "create the email account first (http mode)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("%w: login needs a method", errUsage)
	}

	var (
		identity *models.Identity
		err      error
	)
	switch rest[0] {
	case "wallet":
		identity, err = c.Session.ConnectWallet(ctx)
	case "social":
		if len(rest) != 2 {
			return fmt.Errorf("%w: login social <provider>", errUsage)
		}
		provider, perr := models.ParseSocialProvider(rest[1])
		if perr != nil {
			return fmt.Errorf("%w: %v", stores.ErrInvalidInput, perr)
		}
		if c.HTTP != nil {
			cred := &connectors.SocialCredential{Token: *token, Email: *email, Name: *name}
			c.HTTP.Social = connectors.SocialTokenFunc(func(context.Context, models.SocialProvider) (*connectors.SocialCredential, error) {
				if cred.Token == "" {
					return nil, errors.New("--token is required")
				}
				return cred, nil
			})
		}
		identity, err = c.Session.ConnectSocial(ctx, provider)
	case "email":
		if len(rest) != 3 {
			return fmt.Errorf("%w: login email <email> <password>", errUsage)
		}
		if *register && c.HTTP != nil {
			if _, rerr := c.HTTP.Register(ctx, rest[1], rest[2], *name); rerr != nil {
				return fmt.Errorf("registration failed: %w", rerr)
			}
			// Register signed in on the backend; drop that token, login issues its own.
			_ = c.HTTP.Disconnect(ctx)
		}
		identity, err = c.Session.ConnectEmail(ctx, rest[1], rest[2])
	default:
		return fmt.Errorf("%w: unknown login method %q", errUsage, rest[0])
	}

	if identity == nil {
		return err
	}
	stores.Sync(ctx, stores.AuthSnapshot{State: stores.Authenticated, Identity: identity}, c.Progress)
	fmt.Fprintf(out, "Signed in as %s (%s)\n", identity.DisplayHandle(), identity.Method)
	if err != nil {
		// Signed in, but the session was not saved.
		fmt.Fprintf(out, "warning: %v\n", err)
	}
	return nil
}

func logout(ctx context.Context, c *app.Client, out io.Writer, _ []string) error {
	err := c.Session.Disconnect(ctx)
	c.Progress.Unbind()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Signed out")
	return nil
}

func whoami(_ context.Context, c *app.Client, out io.Writer, _ []string) error {
	identity := c.Session.Identity()
	if identity == nil {
		fmt.Fprintln(out, "Not signed in")
		return nil
	}
	fmt.Fprintf(out, "%s\n  id:     %s\n  method: %s\n", identity.DisplayHandle(), identity.ID, identity.Method)
	if id := identity.Identifier(); id != "" {
		fmt.Fprintf(out, "  login:  %s\n", id)
	}
	return nil
}

func listChallenges(ctx context.Context, c *app.Client, out io.Writer, args []string) error {
	fs := flagSet("challenges")
	var filter catalog.Filter
	fs.StringVar(&filter.Query, "search", "", "title, category or tag")
	fs.StringVar(&filter.Category, "category", "", "category")
	difficulty := fs.String("difficulty", "", "Easy, Medium or Hard")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	filter.Difficulty = models.Difficulty(*difficulty)
	if filter.Query == "" && fs.NArg() > 0 {
		filter.Query = strings.Join(fs.Args(), " ")
	}

	list, err := c.Progress.GetChallenges(ctx, filter)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tDIFFICULTY\tREWARD\tSTATUS")
	for _, ch := range list {
		state := "-"
		if rec, ok := c.Progress.GetChallengeProgress(ch.ID); ok {
			state = fmt.Sprintf("%s %d%%", rec.Status, rec.Progress)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", ch.ID, ch.Title, ch.Category, ch.Difficulty, ch.Reward, state)
	}
	return tw.Flush()
}

func start(ctx context.Context, c *app.Client, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: start <challenge-id>", errUsage)
	}
	outcome, err := c.Progress.StartChallenge(ctx, args[0])
	if outcome == stores.StartAlreadyStarted {
		fmt.Fprintf(out, "Challenge %s was already started\n", args[0])
		return err
	}
	if err != nil && !errors.Is(err, stores.ErrPersistenceFailed) {
		return err
	}
	fmt.Fprintf(out, "Started challenge %s\n", args[0])
	return err
}

func progress(ctx context.Context, c *app.Client, out io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: progress <challenge-id> <percent>", errUsage)
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
	if err != nil {
		return fmt.Errorf("%w: percent must be a number", stores.ErrInvalidInput)
	}
	rec, err := c.Progress.UpdateProgress(ctx, args[0], pct)
	if rec != nil {
		fmt.Fprintf(out, "%s: %s %d%%\n", rec.ChallengeID, rec.Status, rec.Progress)
	}
	return err
}

func complete(ctx context.Context, c *app.Client, out io.Writer, args []string) error {
	fs := flagSet("complete")
	file := fs.String("file", "", "upload this file as the proof")
	meta := fs.StringToString("meta", nil, "extra proof metadata")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) == 0 || len(rest) > 2 || (len(rest) == 2) == (*file != "") {
		return fmt.Errorf("%w: complete <challenge-id> <artifact-ref | --file path>", errUsage)
	}
	challengeID := rest[0]

	proof := stores.Proof{Metadata: map[string]string{}}
	for k, v := range *meta {
		proof.Metadata[k] = v
	}
	if *file != "" {
		ref, kind, err := uploadArtifact(ctx, c, challengeID, *file)
		if err != nil {
			return err
		}
		proof.ArtifactRef = ref
		proof.Metadata["type"] = kind
	} else {
		proof.ArtifactRef = rest[1]
	}

	rec, err := c.Progress.CompleteChallenge(ctx, challengeID, proof)
	var verr *stores.VerificationError
	if errors.As(err, &verr) {
		fmt.Fprintf(out, "Proof rejected: %s\n", verr.Reason)
		return err
	}
	if rec == nil {
		return err
	}
	fmt.Fprintf(out, "Completed %s, earned %s\n  proof hash: %s\n", rec.ChallengeID, rec.Reward, rec.ProofHash)
	return err
}

func uploadArtifact(ctx context.Context, c *app.Client, challengeID, path string) (string, string, error) {
	if c.Uploader == nil {
		return "", "", errors.New("--file needs R2 upload settings (R2_BUCKET, R2_ACCESS_KEY_ID, ...)")
	}
	identity := c.Session.Identity()
	if identity == nil {
		return "", "", stores.ErrNotAuthenticated
	}
	artifact, err := utils.ReadArtifact(path)
	if err != nil {
		return "", "", err
	}
	key := utils.ArtifactKey(identity.ID, challengeID, artifact.Name, time.Now())
	ref, err := c.Uploader.Upload(ctx, key, artifact)
	if err != nil {
		return "", "", err
	}
	return ref, utils.ProofKind(artifact.ContentType), nil
}

func status(_ context.Context, c *app.Client, out io.Writer, _ []string) error {
	records := c.Progress.GetUserProgress()
	if len(records) == 0 {
		fmt.Fprintln(out, "No challenges started")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHALLENGE\tSTATUS\tPROGRESS\tREWARD")
	for _, rec := range records {
		reward := "-"
		if rec.Status == models.StatusCompleted {
			reward = rec.Reward.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d%%\t%s\n", rec.ChallengeID, rec.Status, rec.Progress, reward)
	}
	return tw.Flush()
}

func stats(_ context.Context, c *app.Client, out io.Writer, _ []string) error {
	s := c.Progress.GetUserStats()
	rewards := "0"
	if !s.TotalRewards.IsZero() {
		rewards = s.TotalRewards.String()
	}
	fmt.Fprintf(out, "Rank:       %s\nCompleted:  %d of %d started\nRewards:    %s\nStreak:     %d day(s)\n",
		s.Rank, s.CompletedChallenges, s.TotalChallenges, rewards, s.CurrentStreak)
	return nil
}

// watch keeps the catalog fresh and pushes stats to the backend until
// interrupted, printing each stats change.
func watch(ctx context.Context, c *app.Client, out io.Writer, _ []string) error {
	if c.CatalogSync != nil {
		c.CatalogSync.Start(ctx)
	}
	go stores.Follow(ctx, c.Session, c.Progress)

	updates, cancel := c.Progress.Stats().Subscribe()
	defer cancel()

	var push chan models.UserStats
	if c.Stats != nil {
		push = make(chan models.UserStats, 1)
		defer close(push)
		go c.Stats.Run(ctx, push)
	}

	fmt.Fprintln(out, "Watching for changes, Ctrl-C to stop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-updates:
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "%s  %s  completed=%d rewards=%s streak=%d\n",
				time.Now().Format(time.TimeOnly), s.Rank, s.CompletedChallenges, s.TotalRewards, s.CurrentStreak)
			if push != nil {
				select {
				case push <- s:
				default:
					c.Logger.Debug("stats push still running, skipping", zap.Int("completed", s.CompletedChallenges))
				}
			}
		}
	}
}
