package bot

import "github.com/remindbot/remindbot/internal/models"

// Button actions understood by HandleAction. Arg carries the optional
// context tag (a task id for delete buttons).
const (
	ActionViewTasks      = "view_tasks"
	ActionDeleteTask     = "delete_task"
	ActionDeleteTaskByID = "delete_task_by_id"
	ActionConfirmDelete  = "confirm_delete"
	ActionCancelDelete   = "cancel_delete"
	ActionMore           = "more"
	ActionInstructions   = "instructions"
	ActionStartNow       = "start_now"
	ActionChangeTimezone = "change_timezone"
	ActionRetryCity      = "retry_city"
)

// maxButtonLabel keeps delete buttons readable for long task descriptions.
const maxButtonLabel = 48

// Button is one pressable menu entry. The transport adapter decides how to
// render it.
type Button struct {
	Label  string
	Action string
	Arg    string
}

// Menu is a grid of buttons attached to an outbound message.
type Menu struct {
	Rows [][]Button
}

// MainMenu is the default menu shown with most replies.
func MainMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "📋 View tasks", Action: ActionViewTasks}},
		{{Label: "🗑 Delete a task", Action: ActionDeleteTask}},
		{{Label: "➕ More", Action: ActionMore}},
	}}
}

// PostTimezoneMenu follows a successful timezone set.
func PostTimezoneMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "📄 Instructions", Action: ActionInstructions}},
		{{Label: "🚀 Start right away", Action: ActionStartNow}},
	}}
}

// MoreMenu holds the secondary options.
func MoreMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "📄 Instructions", Action: ActionInstructions}},
		{{Label: "🔄 Change timezone", Action: ActionChangeTimezone}},
	}}
}

// RetryCityMenu follows a failed city resolution.
func RetryCityMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "🔄 Try again", Action: ActionRetryCity}},
	}}
}

// ConfirmDeleteMenu asks for explicit confirmation before a delete.
func ConfirmDeleteMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "✅ Delete", Action: ActionConfirmDelete}},
		{{Label: "❌ Cancel", Action: ActionCancelDelete}},
	}}
}

// deleteTaskMenu lists one button per task to pick the one to delete.
func deleteTaskMenu(tasks []*models.Task) *Menu {
	menu := &Menu{Rows: make([][]Button, 0, len(tasks))}
	for _, task := range tasks {
		menu.Rows = append(menu.Rows, []Button{{
			Label:  "🗑 " + truncateLabel(task.Description),
			Action: ActionDeleteTaskByID,
			Arg:    task.ID,
		}})
	}
	return menu
}

// truncateLabel shortens s to maxButtonLabel runes. Cutting on a rune
// boundary keeps non-ASCII descriptions valid UTF-8.
func truncateLabel(s string) string {
	runes := []rune(s)
	if len(runes) <= maxButtonLabel {
		return s
	}
	return string(runes[:maxButtonLabel]) + "…"
}
