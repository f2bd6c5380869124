package store

// Persisted key patterns. These mirror the page-era key names so an export of
// the browser store maps 1:1 onto the kv table.
const (
	KeyTaskOrder         = "task_order"        // JSON array of task ids
	KeyCurrentStreak     = "currentStreak"     // integer string
	KeyLastCompletedDate = "lastCompletedDate" // local calendar date string
	KeyProgress          = "progress"          // JSON {"completed": N}, display cache only
	KeyUsername          = "isru_username"
	KeyUserData          = "isru_user_data" // relay response body, verbatim
)

// TaskKey returns the per-task completion key ("true"/"false" value).
func TaskKey(taskID string) string { return "task_" + taskID }

// UserProgressKey returns the per-user progress namespace key.
func UserProgressKey(username string) string { return "isru_progress_" + username }
