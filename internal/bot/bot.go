package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"taskward/internal/apperr"
	"taskward/internal/model"
	"taskward/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbUndoPrefix     = "undo:"
	cbDeletePrefix   = "delete:"
	cbRedeemPrefix   = "redeem:"
)

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionUndo
	actionDelete
	actionRedeem
)

type confirmationRequest struct {
	targetID uint
	action   confirmationAction
}

// Services are the engine operations the bot drives.
type Services struct {
	Users   *service.UserService
	Tasks   *service.TaskService
	Events  *service.EventService
	Rewards *service.RewardService
	Ledger  *service.Ledger
	Summary *service.SummaryService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	svc           Services
	clock         service.Clock
	loc           *time.Location
	limiter       *rate.Limiter
	log           zerolog.Logger
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

// Telegram allows about 30 messages per second across chats.
const broadcastPerSecond = 25

func New(token string, svc Services, clock service.Clock, loc *time.Location, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	log = log.With().Str("component", "bot").Logger()
	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	return &Bot{
		api:           api,
		svc:           svc,
		clock:         clock,
		loc:           loc,
		limiter:       rate.NewLimiter(rate.Limit(broadcastPerSecond), broadcastPerSecond),
		log:           log,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error().Err(err).Msg("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error().Err(err).Msg("handle message")
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён. Можно начать заново.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Debug().Int64("from", msg.From.ID).Str("command", msg.Command()).Str("args", msg.CommandArguments()).Msg("command")
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /newtask, чтобы добавить задачу, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "balance":
		return b.handleBalance(ctx, msg)
	case "newtask":
		return b.startTaskConversation(ctx, msg)
	case "newreward":
		return b.startRewardConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "events":
		return b.handleListEvents(ctx, msg)
	case "history":
		return b.handleHistory(ctx, msg)
	case "rewards":
		return b.handleListRewards(ctx, msg)
	case "done":
		return b.handleIDCommand(ctx, msg, "/done 12", actionComplete)
	case "undo":
		return b.handleIDCommand(ctx, msg, "/undo 12", actionUndo)
	case "delete":
		return b.handleIDCommand(ctx, msg, "/delete 3", actionDelete)
	case "redeem":
		return b.handleIDCommand(ctx, msg, "/redeem 5", actionRedeem)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я помогаю выполнять регулярные дела и копить очки на награды.</b>\n\n"+
			"Выполняй задачи вовремя: за каждую начисляются очки. "+
			"Пропущенные задачи сгорают без очков, а очки можно обменять на награды.\n\n"+
			"Набери /help, чтобы увидеть все команды.",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /newtask — добавить регулярную задачу пошагово\n" +
		"• /tasks — список задач и удаление\n" +
		"• /events — ближайшие задачи, отметить выполнение по кнопке\n" +
		"• /done &lt;id&gt; — отметить задачу выполненной (например, /done 12)\n" +
		"• /history — последние выполненные и пропущенные задачи\n" +
		"• /undo &lt;id&gt; — отменить выполнение и вернуть очки\n" +
		"• /delete &lt;id&gt; — удалить задачу (история сохранится)\n" +
		"• /newreward — добавить награду\n" +
		"• /rewards — награды и обмен очков\n" +
		"• /redeem &lt;id&gt; — получить награду\n" +
		"• /balance — текущий баланс очков\n" +
		"• /report — отчёт прямо сейчас\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.svc.Summary.Summary(ctx, user.ID, b.clock.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Не удалось сформировать отчёт. "+userMessage(err))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleBalance(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	points, err := b.svc.Ledger.Balance(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("💰 На счету <b>%d</b> очк.", points))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func (b *Bot) handleListEvents(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendEventList(ctx, msg.Chat.ID, user)
}

func (b *Bot) handleListRewards(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendRewardList(ctx, msg.Chat.ID, user)
}

const historyLimit = 15

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	events, err := b.svc.Events.ListByUser(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}

	var builder strings.Builder
	builder.WriteString("🗂 <b>История</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	shown := 0
	for _, ev := range events {
		if ev.Status == model.StatusScheduled {
			continue
		}
		if shown == historyLimit {
			break
		}
		shown++
		builder.WriteString(formatHistoryEvent(ev, b.loc))
		if ev.Status == model.StatusCompleted {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("↩️ #%d · %s", ev.ID, shortTitle(ev.TaskTitle, 20)), fmt.Sprintf("%s%d", cbUndoPrefix, ev.ID)),
			))
		}
	}
	if shown == 0 {
		return b.sendText(msg.Chat.ID, "История пока пуста.")
	}
	if len(buttons) == 0 {
		return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

// handleIDCommand parses "/cmd <id>" and asks for confirmation.
func (b *Bot) handleIDCommand(ctx context.Context, msg *tgbotapi.Message, example string, action confirmationAction) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи номер: "+example)
	}
	id, err := strconv.ParseUint(args, 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Номер должен быть числом.")
	}
	return b.askConfirmation(ctx, msg.Chat.ID, msg.From, confirmationRequest{targetID: uint(id), action: action})
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.perform(ctx, msg.Chat.ID, msg.From, req)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Подтверди или отмени действие.", confirmKeyboard())
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack")
	}

	req, ok := parseCallback(cb.Data)
	if !ok {
		return nil
	}
	b.log.Debug().Int64("from", cb.From.ID).Str("data", cb.Data).Msg("callback")
	return b.askConfirmation(ctx, cb.Message.Chat.ID, cb.From, req)
}

// askConfirmation checks that the target belongs to the user and asks to
// confirm the action.
func (b *Bot) askConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, req confirmationRequest) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	var text string
	switch req.action {
	case actionComplete, actionUndo:
		ev, err := b.ownedEvent(ctx, user, req.targetID)
		if err != nil {
			return b.sendText(chatID, userMessage(err))
		}
		if req.action == actionComplete {
			if ev.Status != model.StatusScheduled {
				return b.sendText(chatID, "Эта задача уже не ждёт выполнения.")
			}
			text = fmt.Sprintf("Отметить «%s» (#%d) выполненной? Будет начислено %d очк.", escape(normalizeTitle(ev.TaskTitle)), ev.ID, ev.PointsEarned)
		} else {
			if ev.Status != model.StatusCompleted {
				return b.sendText(chatID, "Отменить можно только выполненную задачу.")
			}
			text = fmt.Sprintf("Отменить выполнение «%s» (#%d)? Будет списано %d очк.", escape(normalizeTitle(ev.TaskTitle)), ev.ID, ev.PointsEarned)
		}
	case actionDelete:
		task, err := b.ownedTask(ctx, user, req.targetID)
		if err != nil {
			return b.sendText(chatID, userMessage(err))
		}
		text = fmt.Sprintf("Удалить задачу «%s» (#%d)? История выполнений сохранится.", escape(normalizeTitle(task.Title)), task.ID)
	case actionRedeem:
		reward, err := b.ownedReward(ctx, user, req.targetID)
		if err != nil {
			return b.sendText(chatID, userMessage(err))
		}
		if reward.IsRedeemed() {
			return b.sendText(chatID, "Эта награда уже получена.")
		}
		text = fmt.Sprintf("Получить награду «%s» за %d очк.?", escape(normalizeTitle(reward.Title)), reward.PointsRequired)
	default:
		return nil
	}

	b.setConfirmation(from.ID, req)
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

// perform runs a confirmed action and refreshes the relevant list.
func (b *Bot) perform(ctx context.Context, chatID int64, from *tgbotapi.User, req confirmationRequest) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	switch req.action {
	case actionComplete:
		if _, err := b.ownedEvent(ctx, user, req.targetID); err != nil {
			return b.sendTextWithRemove(chatID, userMessage(err))
		}
		tr, err := b.svc.Events.Complete(ctx, req.targetID)
		if err != nil {
			return b.sendTextWithRemove(chatID, userMessage(err))
		}
		info := fmt.Sprintf("✅ «%s» выполнено, +%d очк.", escape(normalizeTitle(tr.Event.TaskTitle)), tr.Event.PointsEarned)
		if tr.Successor != nil {
			info += fmt.Sprintf("\nСледующий раз: %s", tr.Successor.ScheduledDate.In(b.loc).Format("2006-01-02"))
		}
		if err := b.sendTextWithRemove(chatID, info); err != nil {
			return err
		}
		return b.sendEventList(ctx, chatID, user)

	case actionUndo:
		if _, err := b.ownedEvent(ctx, user, req.targetID); err != nil {
			return b.sendTextWithRemove(chatID, userMessage(err))
		}
		tr, err := b.svc.Events.Revert(ctx, req.targetID)
		if err != nil {
			return b.sendTextWithRemove(chatID, userMessage(err))
		}
		if err := b.sendTextWithRemove(chatID, fmt.Sprintf("↩️ Выполнение «%s» отменено, −%d очк.", escape(normalizeTitle(tr.Event.TaskTitle)), tr.Event.PointsEarned)); err != nil {
			return err
		}
		return b.sendEventList(ctx, chatID, user)

	case actionDelete:
		task, err := b.ownedTask(ctx, user, req.targetID)
		if err != nil {
			return b.sendTextWithRemove(chatID, userMessage(err))
		}
		if err := b.svc.Tasks.DeleteTask(ctx, task.ID); err != nil {
			return b.sendTextWithRemove(chatID, userMessage(err))
		}
		if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Задача «%s» удалена.", escape(normalizeTitle(task.Title)))); err != nil {
			return err
		}
		return b.sendTaskList(ctx, chatID, user)

	case actionRedeem:
		if _, err := b.ownedReward(ctx, user, req.targetID); err != nil {
			return b.sendTextWithRemove(chatID, userMessage(err))
		}
		reward, err := b.svc.Rewards.Redeem(ctx, req.targetID)
		if err != nil {
			return b.sendTextWithRemove(chatID, userMessage(err))
		}
		if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🎉 Награда «%s» получена, −%d очк.", escape(normalizeTitle(reward.Title)), reward.PointsRequired)); err != nil {
			return err
		}
		return b.sendRewardList(ctx, chatID, user)
	}
	return nil
}

// SendDailySummaries sends a summary to every user linked to Telegram.
func (b *Bot) SendDailySummaries(ctx context.Context) error {
	users, err := b.svc.Users.ListUsers(ctx)
	if err != nil {
		return err
	}
	now := b.clock.Now()
	sent := 0
	for _, user := range users {
		if user.TelegramID == nil {
			continue
		}
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		text, err := b.svc.Summary.Summary(ctx, user.ID, now)
		if err != nil {
			b.log.Warn().Err(err).Uint("user_id", user.ID).Msg("build summary")
			continue
		}
		if err := b.sendText(*user.TelegramID, text); err != nil {
			b.log.Warn().Err(err).Uint("user_id", user.ID).Msg("send summary")
			continue
		}
		sent++
	}
	b.log.Info().Int("sent", sent).Msg("daily summaries sent")
	return nil
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.svc.Tasks.ListTasks(ctx, user.ID)
	if err != nil {
		return b.sendText(chatID, "Не удалось получить задачи. "+userMessage(err))
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "У тебя пока нет задач. Добавь первую через /newtask.")
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Задачи</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		builder.WriteString(formatTask(task, b.loc))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 #%d · %s", task.ID, shortTitle(task.Title, 20)), fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
		))
	}
	return b.sendWithReplyMarkup(chatID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) sendEventList(ctx context.Context, chatID int64, user *model.User) error {
	events, err := b.svc.Events.ListScheduled(ctx, user.ID)
	if err != nil {
		return b.sendText(chatID, "Не удалось получить задачи. "+userMessage(err))
	}
	if len(events) == 0 {
		return b.sendText(chatID, "Запланированных задач нет. Добавь новую через /newtask.")
	}

	now := b.clock.Now()
	var builder strings.Builder
	builder.WriteString("🔥 <b>Запланировано</b>\n")
	builder.WriteString("Нажми на кнопку, чтобы отметить задачу выполненной.\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, ev := range events {
		builder.WriteString(formatEvent(ev, now, b.loc))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", ev.ID, shortTitle(ev.TaskTitle, 24)), fmt.Sprintf("%s%d", cbCompletePrefix, ev.ID)),
		))
	}
	return b.sendWithReplyMarkup(chatID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) sendRewardList(ctx context.Context, chatID int64, user *model.User) error {
	rewards, err := b.svc.Rewards.ListByUser(ctx, user.ID)
	if err != nil {
		return b.sendText(chatID, "Не удалось получить награды. "+userMessage(err))
	}
	balance, err := b.svc.Ledger.Balance(ctx, user.ID)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	if len(rewards) == 0 {
		return b.sendText(chatID, fmt.Sprintf("💰 Баланс: %d очк.\nНаград пока нет. Добавь через /newreward.", balance))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🎁 <b>Награды</b>\n💰 Баланс: <b>%d</b> очк.\n\n", balance))
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, r := range rewards {
		builder.WriteString(formatReward(r, balance, b.loc))
		if !r.IsRedeemed() && r.PointsRequired <= balance {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🎁 #%d · %s", r.ID, shortTitle(r.Title, 24)), fmt.Sprintf("%s%d", cbRedeemPrefix, r.ID)),
			))
		}
	}
	if len(buttons) == 0 {
		return b.sendText(chatID, strings.TrimSpace(builder.String()))
	}
	return b.sendWithReplyMarkup(chatID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) ownedEvent(ctx context.Context, user *model.User, id uint) (*model.TaskEvent, error) {
	ev, err := b.svc.Events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.UserID != user.ID {
		return nil, apperr.NotFound("event", id)
	}
	return ev, nil
}

func (b *Bot) ownedTask(ctx context.Context, user *model.User, id uint) (*model.Task, error) {
	task, err := b.svc.Tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.UserID != user.ID {
		return nil, apperr.NotFound("task", id)
	}
	return task, nil
}

func (b *Bot) ownedReward(ctx context.Context, user *model.User, id uint) (*model.Reward, error) {
	reward, err := b.svc.Rewards.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reward.UserID != user.ID {
		return nil, apperr.NotFound("reward", id)
	}
	return reward, nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	name := strings.TrimSpace(strings.Join([]string{from.FirstName, from.LastName}, " "))
	if name == "" {
		name = from.UserName
	}
	return b.svc.Users.EnsureTelegramUser(ctx, from.ID, name)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelEvents):
		return true, b.handleListEvents(ctx, msg)
	case strings.ToLower(menuLabelRewards):
		return true, b.handleListRewards(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard())
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	if err := b.sendWithReplyMarkup(chatID, text, tgbotapi.NewRemoveKeyboard(true)); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	return b.sendWithReplyMarkup(chatID, "🔹 Главное меню", mainMenuKeyboard())
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func parseCallback(data string) (confirmationRequest, bool) {
	prefixes := []struct {
		prefix string
		action confirmationAction
	}{
		{cbCompletePrefix, actionComplete},
		{cbUndoPrefix, actionUndo},
		{cbDeletePrefix, actionDelete},
		{cbRedeemPrefix, actionRedeem},
	}
	for _, p := range prefixes {
		if !strings.HasPrefix(data, p.prefix) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(data, p.prefix), 10, 64)
		if err != nil || id == 0 {
			return confirmationRequest{}, false
		}
		return confirmationRequest{targetID: uint(id), action: p.action}, true
	}
	return confirmationRequest{}, false
}

// userMessage turns a service error into a reply. Storage details stay in
// the logs.
func userMessage(err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return "Что-то пошло не так, попробуй позже."
	}
	switch appErr.Kind {
	case apperr.KindValidation:
		return "Проверь данные: " + escape(appErr.Message)
	case apperr.KindNotFound:
		return "Не найдено или уже удалено."
	case apperr.KindInsufficientBalance:
		return "Недостаточно очков."
	case apperr.KindInvalidTransition:
		if errors.Is(err, apperr.ErrAlreadyRedeemed) {
			return "Эта награда уже получена."
		}
		return "Сейчас это действие недоступно: " + escape(appErr.Message)
	default:
		return "Что-то пошло не так, попробуй позже."
	}
}
