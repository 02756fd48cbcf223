package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskward/internal/model"
	"taskward/internal/repository"
)

// SummaryService builds human-readable summaries for daily notifications.
type SummaryService struct {
	store *repository.Store
	loc   *time.Location
	log   zerolog.Logger
}

func NewSummaryService(store *repository.Store, loc *time.Location, log zerolog.Logger) *SummaryService {
	if loc == nil {
		loc = time.UTC
	}
	return &SummaryService{store: store, loc: loc, log: log.With().Str("component", "summary").Logger()}
}

// Summary renders the user's balance, pending events and rewards as Telegram
// HTML.
func (s *SummaryService) Summary(ctx context.Context, userID uint, now time.Time) (string, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return "", lookupErr(s.log, "build summary", "user", userID, err)
	}
	events, err := s.store.Events.ListScheduledByUser(ctx, userID)
	if err != nil {
		return "", storageErr(s.log, "build summary", err)
	}
	rewards, err := s.store.Rewards.ListByUser(ctx, userID)
	if err != nil {
		return "", storageErr(s.log, "build summary", err)
	}

	var open []model.Reward
	for _, r := range rewards {
		if !r.IsRedeemed() {
			open = append(open, r)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		ai, aj := open[i].PointsRequired <= user.Points, open[j].PointsRequired <= user.Points
		if ai != aj {
			return ai
		}
		return open[i].PointsRequired < open[j].PointsRequired
	})

	now = now.In(s.loc)
	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневный отчёт</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("02.01.2006")))
	builder.WriteString(fmt.Sprintf("💰 Баланс: <b>%d</b> очк.\n\n", user.Points))

	builder.WriteString("🔥 <b>Запланировано</b>\n")
	if len(events) == 0 {
		builder.WriteString("— нет запланированных задач\n")
	} else {
		for _, ev := range events {
			builder.WriteString(s.formatEvent(ev, now))
		}
	}

	builder.WriteString("\n🎁 <b>Награды</b>\n")
	if len(open) == 0 {
		builder.WriteString("— нет доступных наград\n")
	} else {
		for _, r := range open {
			builder.WriteString(formatReward(r, user.Points))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func (s *SummaryService) formatEvent(ev model.TaskEvent, now time.Time) string {
	var sb strings.Builder

	d := ev.ScheduledDate.In(s.loc)
	icon := "🟢"
	switch {
	case now.After(d):
		icon = "⚠️"
	case d.Sub(now) <= 48*time.Hour:
		icon = "⏳"
	}

	sb.WriteString(fmt.Sprintf("%s %s <i>(+%d)</i>", icon, html.EscapeString(strings.TrimSpace(ev.TaskTitle)), ev.PointsEarned))
	if now.After(d) {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s — <b>просрочено</b>", d.Format("2006-01-02")))
	} else {
		daysLeft := int(d.Sub(now).Hours()/24) + 1
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s · осталось ≈%d дн.", d.Format("2006-01-02"), daysLeft))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func formatReward(r model.Reward, balance int) string {
	mark := "🔒"
	if r.PointsRequired <= balance {
		mark = "✅"
	}
	line := fmt.Sprintf("%s %s %s — %d очк.", mark, html.EscapeString(r.Icon), html.EscapeString(strings.TrimSpace(r.Title)), r.PointsRequired)
	if r.Description != "" {
		line += fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(r.Description)))
	}
	return line + "\n"
}
