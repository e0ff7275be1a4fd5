package core

import (
	"fmt"

	"github.com/remindbot/remindbot/internal/models"
)

// renderReminder formats the message delivered when a reminder fires.
func renderReminder(task *models.Task) string {
	return fmt.Sprintf("⏰ Reminder:\n\n📝 Task: %s\n🕒 Time: %s",
		task.Description, task.FormattedTime())
}
