package bot

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"guildkit/internal/argument"
	"guildkit/internal/command"
	"guildkit/pkg/jobmgr"
	"guildkit/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Definition builds the application command registered for e.
func Definition(e *command.Entry) (*discordgo.ApplicationCommand, error) {
	opts, err := argument.Options(e.Arguments)
	if err != nil {
		return nil, fmt.Errorf("command %s: %w", e.Name, err)
	}
	return &discordgo.ApplicationCommand{
		Type:        discordgo.ChatApplicationCommand,
		Name:        e.Name,
		Description: e.Description,
		Options:     opts,
	}, nil
}

// hashCommand returns a digest of the fields that matter for registration.
// IDs and versions assigned by the platform are left out. Option order is
// kept since it decides positional order.
func hashCommand(cmd *discordgo.ApplicationCommand) string {
	typ := cmd.Type
	if typ == 0 {
		typ = discordgo.ChatApplicationCommand
	}
	obj := map[string]any{
		"name":        cmd.Name,
		"description": cmd.Description,
		"type":        typ,
	}
	if len(cmd.Options) > 0 {
		obj["options"] = normalizeOptions(cmd.Options)
	}
	data, _ := json.Marshal(obj)
	return fmt.Sprintf("%x", sha1.Sum(data))
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]any {
	out := make([]map[string]any, len(opts))
	for i, o := range opts {
		entry := map[string]any{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]any, len(o.Choices))
			for j, c := range o.Choices {
				choices[j] = map[string]any{"name": c.Name, "value": c.Value}
			}
			entry["choices"] = choices
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		out[i] = entry
	}
	return out
}

// SyncResult lists command names by what Sync did with them.
type SyncResult struct {
	Created   []string
	Updated   []string
	Deleted   []string
	Unchanged []string
}

type SyncerOption func(*Syncer)

// WithLimiter replaces the adaptive limiter shared by all calls.
func WithLimiter(l *retrylimit.AdaptiveLimiter) SyncerOption {
	return func(s *Syncer) { s.limiter = l }
}

func WithRetryConfig(cfg retrylimit.RetryConfig) SyncerOption {
	return func(s *Syncer) { s.retry = cfg }
}

// Syncer reconciles registered slash commands with the local registry. One
// sync or unregister per scope runs at a time.
type Syncer struct {
	api      API
	platform *Platform
	jobs     *jobmgr.Manager
	limiter  *retrylimit.AdaptiveLimiter
	retry    retrylimit.RetryConfig
	logger   zerolog.Logger
}

func NewSyncer(p *Platform, jobs *jobmgr.Manager, opts ...SyncerOption) *Syncer {
	if jobs == nil {
		jobs = jobmgr.NewManager(nil)
	}
	s := &Syncer{
		api:      p.api,
		platform: p,
		jobs:     jobs,
		limiter:  retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		retry:    retrylimit.DefaultRetryConfig(),
		logger:   log.With().Str("component", "slash").Logger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// JobName is the job a sync or unregister for guildID runs under. An empty
// guildID is the global scope.
func JobName(guildID string) string {
	if guildID == "" {
		return "slash:global"
	}
	return "slash:" + guildID
}

// Sync creates, edits and deletes remote commands in the guildID scope until
// they match entries. It is best effort: a failed call is logged and the
// remaining calls still run.
func (s *Syncer) Sync(ctx context.Context, guildID string, entries []*command.Entry) (SyncResult, error) {
	var res SyncResult
	err := s.jobs.StartSync(ctx, JobName(guildID), func(ctx context.Context) error {
		var err error
		res, err = s.sync(ctx, guildID, entries)
		return err
	})
	return res, err
}

func (s *Syncer) sync(ctx context.Context, guildID string, entries []*command.Entry) (SyncResult, error) {
	var res SyncResult
	appID, err := s.platform.SelfID(ctx)
	if err != nil {
		return res, err
	}
	remote, err := s.remote(ctx, appID, guildID)
	if err != nil {
		return res, err
	}

	existing := make(map[string]*discordgo.ApplicationCommand, len(remote))
	for _, rc := range remote {
		existing[rc.Name] = rc
	}

	var (
		create []*discordgo.ApplicationCommand
		update []*discordgo.ApplicationCommand
		del    []*discordgo.ApplicationCommand
	)
	wanted := make(map[string]bool, len(entries))
	for _, e := range entries {
		def, err := Definition(e)
		if err != nil {
			return res, err
		}
		wanted[def.Name] = true
		rc, ok := existing[def.Name]
		switch {
		case !ok:
			create = append(create, def)
		case hashCommand(rc) != hashCommand(def):
			def.ID = rc.ID
			update = append(update, def)
		default:
			res.Unchanged = append(res.Unchanged, def.Name)
		}
	}
	for _, rc := range remote {
		if !wanted[rc.Name] {
			del = append(del, rc)
		}
	}

	logger := s.logger.With().Str("scope", JobName(guildID)).Logger()
	logger.Info().
		Int("create", len(create)).
		Int("update", len(update)).
		Int("delete", len(del)).
		Int("unchanged", len(res.Unchanged)).
		Msg("Reconciling slash commands")

	var g errgroup.Group
	g.Go(func() error {
		var err error
		res.Created, err = s.phase(ctx, logger, "create", create, func(c *discordgo.ApplicationCommand) error {
			_, err := s.api.ApplicationCommandCreate(appID, guildID, c, discordgo.WithContext(ctx))
			return err
		})
		return err
	})
	g.Go(func() error {
		var err error
		res.Updated, err = s.phase(ctx, logger, "update", update, func(c *discordgo.ApplicationCommand) error {
			_, err := s.api.ApplicationCommandEdit(appID, guildID, c.ID, c, discordgo.WithContext(ctx))
			return err
		})
		return err
	})
	g.Go(func() error {
		var err error
		res.Deleted, err = s.phase(ctx, logger, "delete", del, func(c *discordgo.ApplicationCommand) error {
			return s.api.ApplicationCommandDelete(appID, guildID, c.ID, discordgo.WithContext(ctx))
		})
		return err
	})
	return res, g.Wait()
}

// phase applies fn to every command in order and returns the names that
// succeeded.
func (s *Syncer) phase(ctx context.Context, logger zerolog.Logger, name string, cmds []*discordgo.ApplicationCommand, fn func(*discordgo.ApplicationCommand) error) ([]string, error) {
	var (
		done []string
		errs []error
	)
	for _, c := range cmds {
		if err := s.call(ctx, func() error { return fn(c) }); err != nil {
			logger.Error().Err(err).Str("command", c.Name).Str("phase", name).Msg("Slash command call failed")
			errs = append(errs, fmt.Errorf("%s %s: %w", name, c.Name, err))
			continue
		}
		logger.Debug().Str("command", c.Name).Str("phase", name).Msg("Slash command reconciled")
		done = append(done, c.Name)
	}
	return done, errors.Join(errs...)
}

// Unregister deletes every remote command in the guildID scope and returns
// how many were removed.
func (s *Syncer) Unregister(ctx context.Context, guildID string) (int, error) {
	var n int
	err := s.jobs.StartSync(ctx, JobName(guildID), func(ctx context.Context) error {
		var err error
		n, err = s.unregister(ctx, guildID)
		return err
	})
	return n, err
}

func (s *Syncer) unregister(ctx context.Context, guildID string) (int, error) {
	appID, err := s.platform.SelfID(ctx)
	if err != nil {
		return 0, err
	}
	remote, err := s.remote(ctx, appID, guildID)
	if err != nil {
		return 0, err
	}

	var (
		mu      sync.Mutex
		removed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, rc := range remote {
		g.Go(func() error {
			err := s.call(gctx, func() error {
				return s.api.ApplicationCommandDelete(appID, guildID, rc.ID, discordgo.WithContext(gctx))
			})
			if err != nil {
				return fmt.Errorf("delete %s: %w", rc.Name, err)
			}
			mu.Lock()
			removed++
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	s.logger.Info().Str("scope", JobName(guildID)).Int("removed", removed).Msg("Unregistered slash commands")
	return removed, err
}

func (s *Syncer) remote(ctx context.Context, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	var remote []*discordgo.ApplicationCommand
	err := s.call(ctx, func() error {
		var err error
		remote, err = s.api.ApplicationCommands(appID, guildID, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list slash commands: %w", err)
	}
	return remote, nil
}

func (s *Syncer) call(ctx context.Context, fn func() error) error {
	return retrylimit.WithRetryConfig(ctx, fn, s.limiter, s.retry)
}
