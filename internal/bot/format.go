package bot

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"taskward/internal/model"
)

const (
	iconDefault   = "🟢"
	iconDue       = "⏳"
	iconOverdue   = "⚠️"
	iconRecurring = "♻️"
	iconReward    = "🎁"
)

func formatTask(task model.Task, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", task.Icon, task.ID, escape(normalizeTitle(task.Title))))
	b.WriteString(fmt.Sprintf("   %s %s · +%d очк.\n", iconRecurring, describeFrequency(task.Frequency, task.FrequencyInterval), task.PointsReward))
	if task.EndDate != nil {
		b.WriteString(fmt.Sprintf("   🏁 до %s\n", task.EndDate.In(loc).Format(dateLayout)))
	}
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatEvent(ev model.TaskEvent, now time.Time, loc *time.Location) string {
	var b strings.Builder
	d := ev.ScheduledDate.In(loc)
	icon := iconDefault
	if now.After(d) {
		icon = iconOverdue
	} else if d.Sub(now) <= 48*time.Hour {
		icon = iconDue
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s · +%d очк.\n", icon, ev.ID, escape(normalizeTitle(ev.TaskTitle)), ev.PointsEarned))
	if now.After(d) {
		b.WriteString(fmt.Sprintf("   ⏰ %s — <b>просрочено</b>\n", d.Format(dateLayout)))
	} else {
		daysLeft := int(d.Sub(now).Hours()/24) + 1
		b.WriteString(fmt.Sprintf("   ⏰ %s · осталось ≈%d дн.\n", d.Format(dateLayout), daysLeft))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatHistoryEvent(ev model.TaskEvent, loc *time.Location) string {
	var mark string
	switch ev.Status {
	case model.StatusCompleted:
		mark = fmt.Sprintf("✅ +%d", ev.PointsEarned)
	case model.StatusExpired:
		mark = "⌛ пропущено"
	case model.StatusCancelled:
		mark = "🚫 отменено"
	default:
		mark = ev.Status.String()
	}
	return fmt.Sprintf("<b>#%d</b> %s · %s · %s\n", ev.ID, escape(normalizeTitle(ev.TaskTitle)), ev.ScheduledDate.In(loc).Format(dateLayout), mark)
}

func formatReward(r model.Reward, balance int, loc *time.Location) string {
	var b strings.Builder
	switch {
	case r.IsRedeemed():
		b.WriteString(fmt.Sprintf("✔️ <b>#%d</b> %s %s — получена %s\n", r.ID, r.Icon, escape(normalizeTitle(r.Title)), r.DateRedeemed.In(loc).Format(dateLayout)))
	case r.PointsRequired <= balance:
		b.WriteString(fmt.Sprintf("✅ <b>#%d</b> %s %s — %d очк.\n", r.ID, r.Icon, escape(normalizeTitle(r.Title)), r.PointsRequired))
	default:
		b.WriteString(fmt.Sprintf("🔒 <b>#%d</b> %s %s — %d очк. (не хватает %d)\n", r.ID, r.Icon, escape(normalizeTitle(r.Title)), r.PointsRequired, r.PointsRequired-balance))
	}
	if r.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(r.Description)))
	}
	return b.String()
}

func describeFrequency(freq model.Frequency, interval int) string {
	if interval <= 1 {
		switch freq {
		case model.FrequencyDaily:
			return "каждый день"
		case model.FrequencyWeekly:
			return "каждую неделю"
		case model.FrequencyMonthly:
			return "каждый месяц"
		case model.FrequencyYearly:
			return "каждый год"
		}
		return freq.String()
	}
	return fmt.Sprintf("раз в %d %s", interval, frequencyUnitGenitive(freq))
}

func frequencyUnitGenitive(freq model.Frequency) string {
	switch freq {
	case model.FrequencyDaily:
		return "дн."
	case model.FrequencyWeekly:
		return "нед."
	case model.FrequencyMonthly:
		return "мес."
	case model.FrequencyYearly:
		return "г."
	default:
		return freq.String()
	}
}

func frequencyIcon(freq model.Frequency) string {
	switch freq {
	case model.FrequencyDaily:
		return "📅"
	case model.FrequencyWeekly:
		return "🗓"
	case model.FrequencyMonthly:
		return "📆"
	case model.FrequencyYearly:
		return "🎂"
	default:
		return iconDefault
	}
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}
