package config

// Preset is the launch command used for a subject stack when a target
// does not spell one out.
type Preset struct {
	Command string
	Args    []string
}

// KnownStacks returns the stack names with a built-in preset.
func KnownStacks() []string {
	return []string{"go", "node", "bun", "rust"}
}

// StackPreset returns the launch command for a stack.
func StackPreset(stack string) (Preset, bool) {
	switch stack {
	case "go":
		return Preset{Command: "go", Args: []string{"run", "."}}, true
	case "node":
		return Preset{Command: "node", Args: []string{"index.js"}}, true
	case "bun":
		return Preset{Command: "bun", Args: []string{"index.ts"}}, true
	case "rust":
		return Preset{
			Command: "cargo",
			Args:    []string{"run", "--release", "--quiet"},
		}, true
	default:
		return Preset{}, false
	}
}
