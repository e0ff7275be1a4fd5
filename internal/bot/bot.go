package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/remindbot/remindbot/internal/core"
	"github.com/remindbot/remindbot/internal/services/ai"
	"github.com/remindbot/remindbot/internal/store"
	"github.com/remindbot/remindbot/internal/validation"
)

const instructionsText = "📋 How to use the bot:\n\n" +
	"1. Add a task: write any task together with the time to be reminded at. Example: 'Team meeting tomorrow at 15:00' or 'Go for a run in an hour'.\n" +
	"2. View tasks: press '📋 View tasks' to see everything you have scheduled.\n" +
	"3. Delete a task: press '🗑 Delete a task' and pick the one to remove.\n" +
	"4. More options: under '➕ More' you can change your timezone or read these instructions again.\n"

// Bot is the conversation layer: it owns the per-user sessions and the
// finite-state machine around city onboarding, task creation and the
// two-step delete flow, calling into the scheduling core for everything
// stateful.
type Bot struct {
	core      *core.Service
	sessions  *Sessions
	messenger Messenger
	logger    *zap.Logger
}

// New creates the conversation layer on top of the scheduling core.
func New(service *core.Service, messenger Messenger, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		core:      service,
		sessions:  NewSessions(),
		messenger: messenger,
		logger:    logger,
	}
}

// HandleMessage processes one inbound free-text message. Commands start
// with '/'; everything else is routed by the session state.
func (b *Bot) HandleMessage(ctx context.Context, userID int64, text string) error {
	text = validation.SanitizeText(text)

	if strings.HasPrefix(text, "/") {
		return b.handleCommand(ctx, userID, text)
	}

	sess := b.sessions.Get(userID)
	switch sess.State {
	case StateAwaitingCity, StateAwaitingCityForChange:
		return b.receiveCity(ctx, userID, sess, text)
	default:
		return b.createTask(ctx, userID, sess, text)
	}
}

// HandleAction processes one button press. arg is the opaque context tag
// attached to the button (a task id for per-task delete buttons).
func (b *Bot) HandleAction(ctx context.Context, userID int64, action, arg string) error {
	sess := b.sessions.Get(userID)

	switch action {
	case ActionViewTasks:
		return b.viewTasks(ctx, userID)
	case ActionDeleteTask:
		return b.chooseTaskToDelete(ctx, userID)
	case ActionDeleteTaskByID:
		return b.askDeleteConfirmation(ctx, userID, sess, arg)
	case ActionConfirmDelete:
		return b.confirmDelete(ctx, userID, sess)
	case ActionCancelDelete:
		sess.PendingDeleteTaskID = ""
		sess.State = StateIdle
		return b.send(ctx, userID, "❌ Deletion cancelled.", MainMenu())
	case ActionMore:
		return b.send(ctx, userID, "⚙️ More options:", MoreMenu())
	case ActionInstructions:
		return b.send(ctx, userID, instructionsText, MainMenu())
	case ActionStartNow:
		sess.State = StateIdle
		return b.send(ctx, userID, "You are all set! Add tasks and I will remind you about them.", MainMenu())
	case ActionChangeTimezone:
		sess.State = StateAwaitingCityForChange
		return b.send(ctx, userID, "🌍 Which city are you in?", nil)
	case ActionRetryCity:
		return b.send(ctx, userID, "🌍 Please enter your city name again.", nil)
	default:
		b.logger.Warn("unknown action",
			zap.Int64("user_id", userID),
			zap.String("action", action),
		)
		return b.send(ctx, userID, "⚠ Something went wrong. Please try again.", MainMenu())
	}
}

func (b *Bot) handleCommand(ctx context.Context, userID int64, cmd string) error {
	sess := b.sessions.Get(userID)

	switch cmd {
	case "/start":
		if sess.Timezone != "" {
			sess.State = StateIdle
			return b.send(ctx, userID,
				"Hi! You have already configured your timezone. Pick an action below.",
				MainMenu())
		}
		sess.State = StateAwaitingCity
		return b.send(ctx, userID,
			"Hi! I am a reminder bot. To schedule tasks correctly, please tell me your city.\n\n🌍 Which city are you in?",
			nil)
	case "/cancel":
		sess.PendingDeleteTaskID = ""
		sess.State = StateIdle
		return b.send(ctx, userID, "❌ Operation cancelled.", MainMenu())
	default:
		return b.send(ctx, userID, "⚠ Unknown command. Use /start.", MainMenu())
	}
}

// receiveCity resolves the city, stores the timezone in the session, and
// reconciles existing tasks when the timezone actually changed.
func (b *Bot) receiveCity(ctx context.Context, userID int64, sess *Session, city string) error {
	tz, err := b.core.ResolveTimezone(ctx, city)
	if err != nil {
		// Unknown city and oracle failure are handled the same: re-prompt.
		b.logger.Info("city resolution failed",
			zap.Int64("user_id", userID),
			zap.String("city", city),
			zap.Error(err),
		)
		return b.send(ctx, userID,
			"❌ Could not determine the timezone of that city. Please try again.",
			RetryCityMenu())
	}

	previous := sess.Timezone
	sess.Timezone = tz

	if previous != "" && previous != tz {
		count, err := b.core.ReconcileTimezone(userID, previous, tz)
		if err != nil {
			b.logger.Error("timezone reconciliation failed",
				zap.Int64("user_id", userID),
				zap.String("new_tz", tz),
				zap.Error(err),
			)
		} else if count > 0 {
			b.logger.Info("task times updated for new timezone",
				zap.Int64("user_id", userID),
				zap.Int("count", count),
			)
		}
	}

	sess.State = StatePostTimezoneSet
	return b.send(ctx, userID,
		fmt.Sprintf("✅ Timezone set: %s.\nWhat would you like to do next?", tz),
		PostTimezoneMenu())
}

// createTask runs the extraction and creation pipeline for a free-text
// message, mapping each rejection reason to its re-prompt.
func (b *Bot) createTask(ctx context.Context, userID int64, sess *Session, text string) error {
	if sess.Timezone == "" {
		return b.send(ctx, userID,
			"❌ Your timezone is not set. Please start over with /start.",
			MainMenu())
	}

	task, err := b.core.CreateFromMessage(ctx, userID, text, sess.Timezone)
	switch {
	case err == nil:
		return b.send(ctx, userID,
			fmt.Sprintf("✅ Task added!\n\n📝 Task: %s\n🕒 Time: %s",
				task.Description, task.FormattedTime()),
			MainMenu())
	case errors.Is(err, ai.ErrMalformedReply):
		return b.send(ctx, userID,
			"❌ Could not recognize the task or the time. Please try again.",
			MainMenu())
	case errors.Is(err, store.ErrBadTimeFormat):
		return b.send(ctx, userID,
			"❌ Could not recognize the time format. Please use YYYY-MM-DD HH:MM:SS.",
			MainMenu())
	case errors.Is(err, store.ErrNotFuture):
		return b.send(ctx, userID,
			"⚠ The time must be in the future. Please give a valid time.",
			MainMenu())
	default:
		b.logger.Error("task creation failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return b.send(ctx, userID,
			"⚠ Something went wrong. Please try again.",
			MainMenu())
	}
}

func (b *Bot) viewTasks(ctx context.Context, userID int64) error {
	tasks := b.core.ListTasks(userID)
	if len(tasks) == 0 {
		return b.send(ctx, userID, "📭 You have no scheduled tasks.", MainMenu())
	}

	var sb strings.Builder
	sb.WriteString("📝 Your scheduled tasks:\n\n")
	for i, task := range tasks {
		fmt.Fprintf(&sb, "%d. %s - %s\n", i+1, task.Description, task.FormattedTime())
	}
	return b.send(ctx, userID, sb.String(), MainMenu())
}

func (b *Bot) chooseTaskToDelete(ctx context.Context, userID int64) error {
	tasks := b.core.ListTasks(userID)
	if len(tasks) == 0 {
		return b.send(ctx, userID, "📭 You have no scheduled tasks to delete.", MainMenu())
	}
	return b.send(ctx, userID, "Pick a task to delete:", deleteTaskMenu(tasks))
}

// askDeleteConfirmation is the first half of the two-step delete: remember
// the task id in the session and ask for explicit confirmation.
func (b *Bot) askDeleteConfirmation(ctx context.Context, userID int64, sess *Session, taskID string) error {
	task := b.core.GetTask(userID, taskID)
	if task == nil {
		return b.send(ctx, userID,
			"⚠ Task not found or already deleted.",
			MainMenu())
	}

	sess.PendingDeleteTaskID = taskID
	return b.send(ctx, userID,
		fmt.Sprintf("Are you sure you want to delete the task '%s'?", task.Description),
		ConfirmDeleteMenu())
}

// confirmDelete is the second half: delete the pending task and always
// return the conversation to idle, whether or not the task still existed.
func (b *Bot) confirmDelete(ctx context.Context, userID int64, sess *Session) error {
	taskID := sess.PendingDeleteTaskID
	sess.PendingDeleteTaskID = ""
	sess.State = StateIdle

	if taskID == "" {
		return b.send(ctx, userID,
			"⚠ Something went wrong. Please try again.",
			MainMenu())
	}

	task := b.core.GetTask(userID, taskID)
	if !b.core.DeleteTask(userID, taskID) || task == nil {
		return b.send(ctx, userID,
			"⚠ Task not found or already deleted.",
			MainMenu())
	}

	return b.send(ctx, userID,
		fmt.Sprintf("✅ Task '%s' deleted.", task.Description),
		MainMenu())
}

func (b *Bot) send(ctx context.Context, userID int64, text string, menu *Menu) error {
	if err := b.messenger.SendMessage(ctx, userID, text, menu); err != nil {
		b.logger.Error("failed to send message",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
