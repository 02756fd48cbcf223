package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskward/internal/model"
	"taskward/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageFrequency
	stageInterval
	stageStartDate
	stageEndDate
	stagePoints
	stageRewardTitle
	stageRewardDescription
	stageRewardPoints
)

type conversationState struct {
	stage  conversationStage
	task   service.TaskInput
	reward service.RewardInput
}

const dateLayout = "2006-01-02"

func (b *Bot) startTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Создаём новую задачу.\n<b>Шаг 1:</b> как её назвать?", cancelKeyboard())
}

func (b *Bot) startRewardConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageRewardTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🎁 Новая награда.\n<b>Шаг 1:</b> как она называется?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым.", cancelKeyboard())
		}
		state.task.Title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Добавь короткое описание (или нажми «Пропустить»).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.task.Description = text
		}
		state.stage = stageFrequency
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 Как часто повторять задачу?", frequencyKeyboard())
	case stageFrequency:
		freq, ok := parseFrequencyInput(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Выбери вариант на клавиатуре.", frequencyKeyboard())
		}
		state.task.Frequency = freq
		state.task.Icon = frequencyIcon(freq)
		state.stage = stageInterval
		return b.sendWithReplyMarkup(msg.Chat.ID,
			fmt.Sprintf("🔢 Интервал повтора (в %s): например, 2 — через раз. «Пропустить» — каждый раз.", frequencyUnitGenitive(freq)), skipKeyboard())
	case stageInterval:
		interval := 1
		if !isSkipInput(text) {
			n, err := strconv.Atoi(text)
			if err != nil || n < 1 || n > 365 {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Интервал должен быть числом от 1 до 365.", skipKeyboard())
			}
			interval = n
		}
		state.task.FrequencyInterval = interval
		state.stage = stageStartDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "📆 С какого дня начать? Формат <code>2025-11-30</code> (или «Пропустить» — с сегодняшнего).", skipKeyboard())
	case stageStartDate:
		now := b.clock.Now()
		start := now
		if !isSkipInput(text) {
			parsed, err := parseStartDate(text, now, b.loc)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Не могу распознать дату. Используй формат <code>2025-11-30</code> или «Пропустить».", skipKeyboard())
			}
			start = parsed
		}
		state.task.StartDate = start
		state.stage = stageEndDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏁 До какого дня повторять? Формат <code>2025-12-31</code> (или «Пропустить» — бессрочно).", skipKeyboard())
	case stageEndDate:
		if !isSkipInput(text) {
			end, err := parseEndDate(text, b.loc)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Не могу распознать дату. Используй формат <code>2025-12-31</code> или «Пропустить».", skipKeyboard())
			}
			state.task.EndDate = &end
		}
		state.stage = stagePoints
		return b.sendWithReplyMarkup(msg.Chat.ID, "💰 Сколько очков давать за выполнение?", cancelKeyboard())
	case stagePoints:
		points, err := strconv.Atoi(text)
		if err != nil || points < 0 {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Очки должны быть целым числом от 0.", cancelKeyboard())
		}
		state.task.PointsReward = points
		b.clearConversation(msg.From.ID)
		return b.finishTaskCreation(ctx, msg.From, state.task, msg.Chat.ID)

	case stageRewardTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым.", cancelKeyboard())
		}
		state.reward.Title = text
		state.reward.Icon = iconReward
		state.stage = stageRewardDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Добавь описание (или нажми «Пропустить»).", skipKeyboard())
	case stageRewardDescription:
		if !isSkipInput(text) {
			state.reward.Description = text
		}
		state.stage = stageRewardPoints
		return b.sendWithReplyMarkup(msg.Chat.ID, "💰 Сколько очков она стоит?", cancelKeyboard())
	case stageRewardPoints:
		points, err := strconv.Atoi(text)
		if err != nil || points <= 0 {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Стоимость должна быть положительным числом.", cancelKeyboard())
		}
		state.reward.PointsRequired = points
		b.clearConversation(msg.From.ID)
		return b.finishRewardCreation(ctx, msg.From, state.reward, msg.Chat.ID)

	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз через /newtask.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, from *tgbotapi.User, input service.TaskInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.svc.Tasks.CreateTask(ctx, user.ID, input)
	if err != nil {
		return b.sendTextWithRemove(chatID, "Не удалось сохранить задачу. "+userMessage(err))
	}

	var summary strings.Builder
	summary.WriteString("✅ <b>Задача сохранена</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	summary.WriteString(fmt.Sprintf("• <b>Название:</b> %s\n", escape(normalizeTitle(task.Title))))
	if task.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Описание:</b> %s\n", escape(task.Description)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Повтор:</b> %s\n", describeFrequency(task.Frequency, task.FrequencyInterval)))
	if task.EndDate != nil {
		summary.WriteString(fmt.Sprintf("• <b>До:</b> %s\n", task.EndDate.In(b.loc).Format(dateLayout)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Очки:</b> %d\n", task.PointsReward))

	if err := b.sendTextWithRemove(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendEventList(ctx, chatID, user)
}

func (b *Bot) finishRewardCreation(ctx context.Context, from *tgbotapi.User, input service.RewardInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	reward, err := b.svc.Rewards.Create(ctx, user.ID, input)
	if err != nil {
		return b.sendTextWithRemove(chatID, "Не удалось сохранить награду. "+userMessage(err))
	}
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🎁 Награда «%s» за %d очк. добавлена.", escape(normalizeTitle(reward.Title)), reward.PointsRequired)); err != nil {
		return err
	}
	return b.sendRewardList(ctx, chatID, user)
}

// parseStartDate reads a date in loc. Today means "now", so that a task can
// start on the day it is created.
func parseStartDate(text string, now time.Time, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(text), loc)
	if err != nil {
		return time.Time{}, err
	}
	today := now.In(loc)
	if parsed.Year() == today.Year() && parsed.YearDay() == today.YearDay() {
		return now, nil
	}
	return parsed, nil
}

// parseEndDate reads a date in loc as the last instant of that day.
func parseEndDate(text string, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(text), loc)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

func parseFrequencyInput(text string) (model.Frequency, bool) {
	value := strings.TrimSpace(strings.ToLower(text))
	for _, opt := range frequencyOptions {
		if value == strings.ToLower(opt.label) || value == opt.short {
			return opt.freq, true
		}
	}
	freq, err := model.ParseFrequency(value)
	return freq, err == nil
}
