// Package approval gates side-effecting tool calls behind an explicit
// human decision, with a timeout as the default-deny fallback.
package approval

// Tool partition. Safe tools are read-only and auto-approve; tools in
// the approval-required set always go to a human. Anything else is
// treated as custom and approved by default.
var (
	safeTools = map[string]bool{
		"read_file":  true,
		"search":     true,
		"list_files": true,
		"web_fetch":  true,
	}

	approvalRequiredTools = map[string]bool{
		"write_file":  true,
		"edit_file":   true,
		"run_shell":   true,
		"run_command": true,
	}
)

// Policy decides which tool calls need a human decision.
type Policy struct {
	required map[string]bool
}

// NewPolicy returns the default partition. Extra tool names can be
// added to the approval-required set for stricter call sites.
func NewPolicy(extraRequired ...string) *Policy {
	required := make(map[string]bool, len(approvalRequiredTools)+len(extraRequired))
	for name := range approvalRequiredTools {
		required[name] = true
	}
	for _, name := range extraRequired {
		required[name] = true
	}
	return &Policy{required: required}
}

// RequiresApproval reports whether toolName must go through the broker.
func (p *Policy) RequiresApproval(toolName string) bool {
	if safeTools[toolName] {
		return false
	}
	return p.required[toolName]
}
