package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
	"github.com/PancyStudios/PancyGuard/pkg/utils"
	"github.com/sourcegraph/conc/pool"
)

// MaxReportedErrors is the number of distinct error messages shown to users
const MaxReportedErrors = 5

// ErrMissingBanPermission is returned for guilds where the bot cannot ban
var ErrMissingBanPermission = errors.Forbidden("ban_members", nil)

// FanoutConfig bounds the guild fan-out
type FanoutConfig struct {
	Concurrency int
	Timeout     time.Duration
	Retry       utils.RetryOptions
}

// DefaultFanoutConfig is used when the configuration leaves values unset
func DefaultFanoutConfig() FanoutConfig {
	return FanoutConfig{
		Concurrency: 5,
		Timeout:     10 * time.Second,
		Retry:       utils.GetPlatformRetryOptions(),
	}
}

// GuildAction is run once per guild with a context bounded by the fan-out timeout
type GuildAction func(ctx context.Context, guild platform.Guild) error

// GuildResult is the outcome of an action in one guild
type GuildResult struct {
	Guild platform.Guild
	Err   error
}

// OK reports whether the action succeeded
func (r GuildResult) OK() bool { return r.Err == nil }

// Message is the line shown for a failed guild
func (r GuildResult) Message() string {
	if r.Err == nil {
		return ""
	}
	if errors.Is(r.Err, ErrMissingBanPermission) {
		return fmt.Sprintf("Faltan permisos en %s", r.Guild.Name)
	}
	return fmt.Sprintf("Falló en %s: %v", r.Guild.Name, r.Err)
}

// Report aggregates guild results. Reports from several runs can be merged.
type Report struct {
	Total   int
	Success int
	Failed  int
	errs    []string
}

// NewReport summarizes one fan-out run
func NewReport(results []GuildResult) *Report {
	r := &Report{Total: len(results)}
	for _, res := range results {
		if res.OK() {
			r.Success++
			continue
		}
		r.Failed++
		r.errs = append(r.errs, res.Message())
	}
	return r
}

// Merge adds other into r
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Total += other.Total
	r.Success += other.Success
	r.Failed += other.Failed
	r.errs = append(r.errs, other.errs...)
}

// AddError records a failure that did not come from a guild action
func (r *Report) AddError(msg string) {
	r.errs = append(r.errs, msg)
}

// Partial reports whether at least one guild failed
func (r *Report) Partial() bool { return r.Failed > 0 }

// Errors returns the first MaxReportedErrors distinct messages, followed by
// "+N más" when more distinct messages were dropped.
func (r *Report) Errors() []string {
	return CapErrors(r.errs, MaxReportedErrors)
}

// CapErrors keeps the first limit distinct messages in order
func CapErrors(msgs []string, limit int) []string {
	seen := make(map[string]struct{}, len(msgs))
	var distinct []string
	for _, m := range msgs {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		distinct = append(distinct, m)
	}
	if len(distinct) <= limit {
		return distinct
	}
	out := append([]string(nil), distinct[:limit]...)
	return append(out, fmt.Sprintf("+%d más", len(distinct)-limit))
}

// Fanout runs one action in many guilds with bounded parallelism
type Fanout struct {
	cfg FanoutConfig
}

func NewFanout(cfg FanoutConfig) *Fanout {
	def := DefaultFanoutConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialInterval == 0 {
		cfg.Retry = def.Retry
	}
	return &Fanout{cfg: cfg}
}

// Retry runs op with the configured backoff
func (f *Fanout) Retry(ctx context.Context, op func() error) error {
	return utils.Do(ctx, op, f.cfg.Retry)
}

// Call runs op with the per-call timeout and the configured backoff
func (f *Fanout) Call(ctx context.Context, op func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()
	return f.Retry(ctx, func() error { return op(ctx) })
}

// Run executes action in every guild. Results keep the order of guilds and
// one guild failing or hanging never affects the others.
func (f *Fanout) Run(ctx context.Context, guilds []platform.Guild, action GuildAction) []GuildResult {
	results := make([]GuildResult, len(guilds))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(f.cfg.Concurrency)

	for i, g := range guilds {
		p.Go(func(ctx context.Context) error {
			results[i] = GuildResult{Guild: g, Err: f.runOne(ctx, g, action)}
			return nil
		})
	}
	_ = p.Wait()
	return results
}

func (f *Fanout) runOne(ctx context.Context, g platform.Guild, action GuildAction) error {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errors.Recovered(r, errors.Origin{Source: "fanout", Name: g.Name, GuildID: g.ID})
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- action(ctx, g)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.External(fmt.Sprintf("acción en %s", g.Name), ctx.Err())
	}
}
