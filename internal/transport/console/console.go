// Package console is a single-user terminal transport for local runs. The
// real deployment swaps in a chat transport behind the same bot.Messenger
// and core.Notifier interfaces.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/remindbot/remindbot/internal/bot"
)

// localUserID is the single conceptual user of a console session.
const localUserID int64 = 1

// Transport reads lines from in and prints bot replies to out. Menus are
// rendered as numbered buttons; typing the number presses the button.
type Transport struct {
	mu       sync.Mutex
	in       io.Reader
	out      io.Writer
	lastMenu *bot.Menu
	logger   *zap.Logger
}

// New creates a console transport.
func New(in io.Reader, out io.Writer, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{in: in, out: out, logger: logger}
}

// SendMessage implements bot.Messenger.
func (t *Transport) SendMessage(_ context.Context, _ int64, text string, menu *Menu) error {
	return t.print(text, menu)
}

// Notify implements core.Notifier for fired reminders.
func (t *Transport) Notify(_ context.Context, _ int64, text string) error {
	return t.print(text, nil)
}

// Menu aliases bot.Menu so both interface methods share one renderer.
type Menu = bot.Menu

func (t *Transport) print(text string, menu *Menu) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := fmt.Fprintln(t.out, text); err != nil {
		return err
	}
	if menu != nil {
		i := 0
		for _, row := range menu.Rows {
			for _, btn := range row {
				i++
				if _, err := fmt.Fprintf(t.out, "  [%d] %s\n", i, btn.Label); err != nil {
					return err
				}
			}
		}
		t.lastMenu = menu
	}
	return nil
}

// Run pumps input lines into the bot until ctx is done or input ends.
func (t *Transport) Run(ctx context.Context, b *bot.Bot) error {
	scanner := bufio.NewScanner(t.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if n, err := strconv.Atoi(line); err == nil {
			if btn, ok := t.buttonAt(n); ok {
				if err := b.HandleAction(ctx, localUserID, btn.Action, btn.Arg); err != nil {
					t.logger.Warn("action failed", zap.Error(err))
				}
				continue
			}
		}

		if err := b.HandleMessage(ctx, localUserID, line); err != nil {
			t.logger.Warn("message failed", zap.Error(err))
		}
	}
	return scanner.Err()
}

func (t *Transport) buttonAt(n int) (bot.Button, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastMenu == nil || n < 1 {
		return bot.Button{}, false
	}
	i := 0
	for _, row := range t.lastMenu.Rows {
		for _, btn := range row {
			i++
			if i == n {
				return btn, true
			}
		}
	}
	return bot.Button{}, false
}
