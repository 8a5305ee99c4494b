package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"zentari/internal/domain"
	"zentari/internal/service"
)

// Sender identifies who sent a command.
type Sender struct {
	ID       int64
	Username string
}

func (s Sender) accountID() string { return strconv.FormatInt(s.ID, 10) }

// Commands turns chat commands into engine calls and renders the replies.
type Commands struct {
	engine      *service.Engine
	botUsername string
}

func NewCommands(engine *service.Engine, botUsername string) *Commands {
	return &Commands{engine: engine, botUsername: botUsername}
}

// Handle executes one command and returns the HTML reply.
func (c *Commands) Handle(ctx context.Context, from Sender, command, args string) string {
	switch command {
	case "start":
		return c.start(ctx, from, strings.TrimSpace(args))
	case "status":
		return c.status(ctx, from)
	case "checkin":
		return c.checkIn(ctx, from)
	case "claim":
		return c.claim(ctx, from)
	case "referral":
		return c.referral(ctx, from)
	case "help":
		return helpMessage()
	default:
		return "❌ Unknown command. Use /help for the list of commands."
	}
}

func helpMessage() string {
	return `<b>⚡ Zentari</b>

/start [inviter] - Create your account
/status - Energy, balances and levels
/checkin - Daily check-in reward
/claim - Collect auto-tap bot earnings
/referral - Your invite link and referral tiers`
}

func (c *Commands) start(ctx context.Context, from Sender, inviter string) string {
	username := from.Username
	if username == "" {
		username = "player" + from.accountID()
	}

	_, err := c.engine.Register(ctx, service.RegisterInput{
		UserID:   from.accountID(),
		Username: username,
		Inviter:  inviter,
	})
	switch {
	case err == nil:
		msg := fmt.Sprintf("✅ Welcome, <b>%s</b>! Your account is ready.", html.EscapeString(username))
		if inviter != "" {
			msg += fmt.Sprintf("\nInvited by <b>%s</b>.", html.EscapeString(inviter))
		}
		return msg + "\n\n" + helpMessage()
	case errors.Is(err, domain.ErrDuplicateUser):
		return c.status(ctx, from)
	default:
		return describe(err)
	}
}

func (c *Commands) status(ctx context.Context, from Sender) string {
	s, err := c.engine.GetStatus(ctx, from.accountID())
	if err != nil {
		return describe(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>📊 %s</b>\n\n", html.EscapeString(s.Username))
	fmt.Fprintf(&b, "⚡ Energy: %d/%d\n", s.Energy.Current, s.Energy.Max)
	fmt.Fprintf(&b, "💪 Power: %d\n", s.Balances.Power)
	fmt.Fprintf(&b, "📅 Check-in points: %d (streak %d)\n", s.Balances.CheckInPoints, s.CheckIn.Streak)
	fmt.Fprintf(&b, "👥 Referral points: %d\n", s.Balances.ReferralPoints)
	fmt.Fprintf(&b, "⭐ Stars: %d\n\n", s.Balances.Stars)
	fmt.Fprintf(&b, "Levels: speed %d, multi-tap %d, energy %d\n", s.Levels.Speed, s.Levels.MultiTap, s.Levels.EnergyLimit)
	if s.Bot.Active {
		fmt.Fprintf(&b, "🤖 Bot: %d power pending", s.Bot.PendingPower)
		if s.Bot.Mining && s.Bot.WindowEnd != nil {
			fmt.Fprintf(&b, ", mining until %s UTC", s.Bot.WindowEnd.Format("15:04"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (c *Commands) checkIn(ctx context.Context, from Sender) string {
	res, err := c.engine.CheckIn(ctx, from.accountID())
	if err != nil {
		return describe(err)
	}
	msg := fmt.Sprintf("✅ Day %d check-in: +%d points.\nTomorrow: +%d.", res.Streak, res.Reward, res.NextReward)
	if res.StreakReset {
		msg += "\n(Your streak restarted.)"
	}
	return msg
}

func (c *Commands) claim(ctx context.Context, from Sender) string {
	res, err := c.engine.ClaimBotEarnings(ctx, from.accountID())
	if err != nil {
		return describe(err)
	}
	if res.Power == 0 {
		return "🤖 Your bot has nothing left to collect. Start a new session in the app."
	}
	msg := fmt.Sprintf("🤖 Collected <b>%d</b> power (%d taps). Total: %d.", res.Power, res.Taps, res.TotalPower)
	if res.Mining {
		msg += fmt.Sprintf("\nStill mining until %s UTC.", res.MiningUntil.Format("15:04"))
	}
	return msg
}

func (c *Commands) referral(ctx context.Context, from Sender) string {
	d, err := c.engine.ReferralDetails(ctx, from.accountID())
	if err != nil {
		return describe(err)
	}
	s, err := c.engine.GetStatus(ctx, from.accountID())
	if err != nil {
		return describe(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>👥 Referrals</b>\n\nInvite link: https://t.me/%s?start=%s\n", c.botUsername, s.Username)
	fmt.Fprintf(&b, "Direct: %d, indirect: %d, points: %d\n\n", len(d.DirectReferrals), len(d.IndirectReferrals), d.ReferralPoints)
	for _, t := range d.Tiers {
		mark := "🔒"
		switch {
		case t.Claimed:
			mark = "✅"
		case t.Claimable:
			mark = "🎁"
		}
		fmt.Fprintf(&b, "%s %d referrals → %d points\n", mark, t.Required, t.Reward)
	}
	return b.String()
}

// describe renders a failure for chat. Unexpected errors stay generic.
func describe(err error) string {
	de, ok := domain.AsError(err)
	if !ok || de.Kind() == domain.KindInvariant {
		return "❌ Something went wrong, please try again later."
	}
	switch de.Code {
	case domain.CodeNotFound:
		return "❌ You have no account yet. Send /start to create one."
	case domain.CodeAlreadyCheckedInToday, domain.CodeNothingToClaim:
		if secs, ok := de.Details["seconds_remaining"].(int64); ok {
			return fmt.Sprintf("⏳ %s. Try again in %s.", capitalize(de.Message), time.Duration(secs)*time.Second)
		}
	}
	return "❌ " + capitalize(de.Message) + "."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
