package delegation

import (
	"fmt"

	"github.com/boshu2/baton/internal/types"
)

// ResetHint tells a blocked agent how to clear the counter by hand.
const ResetHint = `baton state reset --reason "<why>"`

func reminderMessage(count, blockAt int) string {
	return fmt.Sprintf("💡 Delegation suggested: hand this off to a musician with the Task tool. (%d/%d)", count, blockAt)
}

func warningMessage(count, blockAt int) string {
	return fmt.Sprintf("⚠ %d work-tool calls without delegation (blocked at %d).\n"+
		"Consider delegating with the Task tool.", count, blockAt)
}

func blockMessage(role types.Role, count int) string {
	return fmt.Sprintf("⛔ Hierarchy violation: %s cannot keep working directly.\n"+
		"%d consecutive work-tool calls.\n"+
		"Delegate to a subordinate agent (musician) with the Task tool.\n"+
		"Reset: %s", role, count, ResetHint)
}
