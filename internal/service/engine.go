package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"zentari/internal/clock"
	"zentari/internal/domain"
	"zentari/internal/entitlement"
	"zentari/internal/logger"
	"zentari/internal/repository"
)

// Notifier is told about every committed account change.
type Notifier interface {
	AccountChanged(userID, operation string)
}

// Engine executes account operations. Each mutation is one store
// transaction: load the account under lock, compute the outcome with the
// rules at clock.Now(), apply it through the aggregate, validate, persist the
// account and its ledger entries, commit. Any failure aborts with no
// mutation.
type Engine struct {
	store  repository.Store
	rules  *entitlement.Rules
	clock  clock.Clock
	audit  *AuditService
	notify Notifier
	log    *slog.Logger
}

type EngineOption func(*Engine)

func WithAudit(a *AuditService) EngineOption {
	return func(e *Engine) { e.audit = a }
}

func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) { e.notify = n }
}

func NewEngine(store repository.Store, rules *entitlement.Rules, clk clock.Clock, opts ...EngineOption) *Engine {
	e := &Engine{
		store: store,
		rules: rules,
		clock: clk,
		log:   logger.With("component", "engine", "rules_version", rules.Version),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the rules table the engine computes with.
func (e *Engine) Rules() *entitlement.Rules { return e.rules }

// Now is the engine clock.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// Store exposes the read side of the account store.
func (e *Engine) Store() repository.Store { return e.store }

type phase string

// Abort phases. A failure before phaseLoaded happened while loading.
const (
	phaseLoaded   phase = "loaded"
	phaseComputed phase = "computed"
)

// applyFunc computes an outcome for a and applies it. It returns the ledger
// entries describing the balance movements.
type applyFunc func(now time.Time, a *domain.Account) ([]domain.LedgerEntry, error)

// mutate runs one read-modify-write cycle on a single account.
func (e *Engine) mutate(ctx context.Context, op, userID string, apply applyFunc) error {
	var ph phase
	err := e.observe(ctx, op, userID, &ph, func() error {
		return e.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			a, err := tx.GetForUpdate(ctx, userID)
			if err != nil {
				return err
			}
			ph = phaseLoaded

			now := e.clock.Now()
			entries, err := apply(now, a)
			if err != nil {
				return err
			}
			ph = phaseComputed

			return e.persist(ctx, tx, now, a, entries)
		})
	})
	if err != nil {
		return err
	}
	e.changed(userID, op)
	return nil
}

// persist validates a and writes it with its ledger entries.
func (e *Engine) persist(ctx context.Context, tx repository.Tx, now time.Time, a *domain.Account, entries []domain.LedgerEntry) error {
	if err := a.Validate(e.rules, now); err != nil {
		return err
	}
	a.UpdatedAt = now
	if err := tx.Update(ctx, a); err != nil {
		return err
	}
	if len(entries) > 0 {
		if err := tx.AppendLedger(ctx, entries...); err != nil {
			return err
		}
	}
	return nil
}

// observe records metrics and logs aborted operations.
func (e *Engine) observe(ctx context.Context, op, userID string, ph *phase, run func() error) error {
	start := time.Now()
	err := run()
	EngineDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err == nil {
		EngineOperations.WithLabelValues(op, "ok").Inc()
		return nil
	}

	at := string(*ph)
	if at == "" {
		at = "load"
	}
	de, business := domain.AsError(err)
	switch {
	case business && de.Kind() == domain.KindInvariant:
		EngineOperations.WithLabelValues(op, string(de.Code)).Inc()
		e.log.Error("operation aborted: invariant violation", "operation", op, "user_id", userID, "phase", at, "error", err)
		e.audit.LogViolation(ctx, userID, op, at, err)
	case business:
		EngineOperations.WithLabelValues(op, string(de.Code)).Inc()
		e.log.Debug("operation rejected", "operation", op, "user_id", userID, "phase", at, "code", de.Code)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		EngineOperations.WithLabelValues(op, "cancelled").Inc()
		e.log.Info("operation cancelled", "operation", op, "user_id", userID, "phase", at)
	default:
		EngineOperations.WithLabelValues(op, "error").Inc()
		e.log.Error("operation aborted", "operation", op, "user_id", userID, "phase", at, "error", err)
	}
	return err
}

func (e *Engine) changed(userID, op string) {
	if e.notify != nil {
		e.notify.AccountChanged(userID, op)
	}
}

func credit(source string, n int64) {
	if n > 0 {
		PowerCredited.WithLabelValues(source).Add(float64(n))
	}
}

// ---- registration ----

// RegisterInput identifies a new player and the optional inviter username.
type RegisterInput struct {
	UserID   string
	Username string
	Inviter  string
}

const (
	minUsernameLen = 3
	maxUsernameLen = 32
)

func validateUsername(name string) error {
	if n := len(name); n < minUsernameLen || n > maxUsernameLen {
		return domain.ErrValidation.With("field", "username", "min", minUsernameLen, "max", maxUsernameLen)
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return domain.ErrValidation.With("field", "username", "reason", "whitespace")
	}
	return nil
}

// Register creates an account. With an inviter, the inviter's direct list and
// the upline's indirect list are credited in the same transaction. Locks are
// taken inviter first, then upline: the upline always registered earlier, so
// lock order follows account age and cannot cycle.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Inviter = strings.TrimSpace(in.Inviter)

	var (
		out *domain.Account
		ph  phase
	)
	err := e.observe(ctx, "register", in.UserID, &ph, func() error {
		if strings.TrimSpace(in.UserID) == "" {
			return domain.ErrValidation.With("field", "user_id")
		}
		if err := validateUsername(in.Username); err != nil {
			return err
		}
		if err := entitlement.ValidateInviter(in.Username, in.Inviter); err != nil {
			return err
		}

		return e.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			var inviter, upline *domain.Account
			if in.Inviter != "" {
				var err error
				inviter, err = tx.GetByUsernameForUpdate(ctx, in.Inviter)
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrUnknownInviter.With("inviter", in.Inviter)
				}
				if err != nil {
					return err
				}
				if inviter.Referral != "" {
					upline, err = tx.GetByUsernameForUpdate(ctx, inviter.Referral)
					if err != nil && !errors.Is(err, domain.ErrNotFound) {
						return err
					}
				}
			}
			ph = phaseLoaded

			now := e.clock.Now()
			referral := ""
			if inviter != nil {
				// stored as registered so upline lookups never depend on the caller's casing
				referral = inviter.Username
				in.Inviter = inviter.Username
			}
			a := domain.NewAccount(in.UserID, in.Username, referral, e.rules.AccountDefaults(), now)
			if err := a.Validate(e.rules, now); err != nil {
				return err
			}
			if err := tx.Insert(ctx, a); err != nil {
				return err
			}

			if inviter != nil {
				reward := e.rules.Referral.DirectReward
				err := inviter.AppendDirectReferral(domain.DirectReferral{
					Username:     a.Username,
					JoinedAt:     now,
					PointsEarned: reward,
				})
				if err != nil {
					return err
				}
				entry := domain.NewLedgerEntry(inviter.UserID, domain.LedgerReferralDirect, domain.CurrencyReferralPoints, reward,
					map[string]any{"invitee": a.Username}, now)
				if err := e.persist(ctx, tx, now, inviter, []domain.LedgerEntry{entry}); err != nil {
					return err
				}
			}
			if upline != nil {
				reward := e.rules.Referral.IndirectReward
				err := upline.AppendIndirectReferral(domain.IndirectReferral{
					Username:     a.Username,
					Via:          inviter.Username,
					JoinedAt:     now,
					PointsEarned: reward,
				})
				if err != nil {
					return err
				}
				entry := domain.NewLedgerEntry(upline.UserID, domain.LedgerReferralIndirect, domain.CurrencyReferralPoints, reward,
					map[string]any{"invitee": a.Username, "via": inviter.Username}, now)
				if err := e.persist(ctx, tx, now, upline, []domain.LedgerEntry{entry}); err != nil {
					return err
				}
			}
			ph = phaseComputed
			out = a
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.audit.LogRegister(ctx, out.UserID, out.Username, in.Inviter)
	e.changed(out.UserID, "register")
	if in.Inviter != "" {
		e.audit.Log(ctx, out.UserID, domain.AuditActionReferralCredit, domain.AuditCategoryReferral,
			map[string]any{"inviter": in.Inviter, "reward": e.rules.Referral.DirectReward})
	}
	return out, nil
}

// ---- reads ----

// GetStatus recomputes the account's view at now without writing anything.
func (e *Engine) GetStatus(ctx context.Context, userID string) (*entitlement.Status, error) {
	a, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	s := e.rules.Snapshot(a, e.clock.Now())
	return &s, nil
}

// BotStatus reports the auto-tap bot window and pending earnings.
func (e *Engine) BotStatus(ctx context.Context, userID string) (*entitlement.BotView, error) {
	a, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	v := e.rules.BotStatus(a, e.clock.Now())
	return &v, nil
}

// CheckInStatus reports whether a check-in is available and what it pays.
func (e *Engine) CheckInStatus(ctx context.Context, userID string) (*entitlement.CheckInView, error) {
	a, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	v := e.rules.CheckInStatus(a, e.clock.Now())
	return &v, nil
}

// ReferralDetails is the referral view of one account.
type ReferralDetails struct {
	Upline            string                    `json:"upline,omitempty"`
	ReferralPoints    int64                     `json:"referral_points"`
	DirectReferrals   []domain.DirectReferral   `json:"direct_referrals"`
	IndirectReferrals []domain.IndirectReferral `json:"indirect_referrals"`
	Tiers             []entitlement.TierView    `json:"tiers"`
}

func (e *Engine) ReferralDetails(ctx context.Context, userID string) (*ReferralDetails, error) {
	a, err := e.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ReferralDetails{
		Upline:            a.Referral,
		ReferralPoints:    a.ReferralPoints,
		DirectReferrals:   a.DirectReferrals,
		IndirectReferrals: a.IndirectReferrals,
		Tiers:             entitlement.ReferralTiers(a),
	}, nil
}

// Leaderboard kinds.
const (
	LeaderboardPower     = "power"
	LeaderboardReferrals = "referrals"
)

func (e *Engine) Leaderboard(ctx context.Context, kind string, limit int) ([]repository.LeaderboardEntry, error) {
	switch kind {
	case LeaderboardPower:
		return e.store.TopByPower(ctx, limit)
	case LeaderboardReferrals:
		return e.store.TopByReferrals(ctx, limit)
	}
	return nil, domain.ErrValidation.With("field", "kind", "allowed", []string{LeaderboardPower, LeaderboardReferrals})
}

// PowerRank returns the user's position on the power leaderboard.
func (e *Engine) PowerRank(ctx context.Context, userID string) (int, error) {
	return e.store.PowerRank(ctx, userID)
}

// History returns the user's most recent ledger entries.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error) {
	if _, err := e.store.Get(ctx, userID); err != nil {
		return nil, err
	}
	return e.store.LedgerByUser(ctx, userID, limit)
}
