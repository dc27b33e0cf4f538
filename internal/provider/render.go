package provider

import (
	"strings"

	"github.com/google/uuid"
)

// Context carries the values available for placeholder substitution.
type Context struct {
	Prompt       string
	SessionID    string
	ChatID       string
	SystemPrompt string
	AllowedTools []string
}

// Render builds the argument vector for mode ("oneshot" or "repl"),
// applying the strict substitution rule: a {session_id}/{chat_id}
// placeholder with no value available drops its enclosing --flag value
// pair rather than emitting an empty string. Cursor-like one-shot calls
// additionally force streaming JSON output.
func Render(t Template, mode string, ctx Context) []string {
	var source []string
	switch mode {
	case "repl":
		source = t.ReplArgs
	default:
		source = t.OneshotArgs
	}

	values := map[string]string{
		PlaceholderPrompt:       ctx.Prompt,
		PlaceholderSessionID:    ctx.SessionID,
		PlaceholderChatID:       ctx.ChatID,
		PlaceholderSystemPrompt: ctx.SystemPrompt,
		PlaceholderAllowedTools: strings.Join(ctx.AllowedTools, ","),
	}

	rendered := substitute(source, values)

	if t.Family == FamilyCursorLike && mode != "repl" {
		rendered = forceCursorStreamJSON(rendered)
	}

	return append([]string{t.Command}, rendered...)
}

// substitute walks args one at a time; when a placeholder has no value,
// it is dropped together with the --flag emitted just before it.
// A bare placeholder with no preceding flag and no value is dropped on
// its own; any other argument passes through substituted.
func substitute(args []string, values map[string]string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		placeholder, isPlaceholder := values[arg]
		if !isPlaceholder {
			out = append(out, arg)
			continue
		}
		if placeholder == "" {
			// drop the preceding --flag too, if this placeholder is its value
			if len(out) > 0 && strings.HasPrefix(out[len(out)-1], "-") {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, placeholder)
	}
	return out
}

func forceCursorStreamJSON(args []string) []string {
	for i, arg := range args {
		if arg == "--output-format" && i+1 < len(args) {
			args[i+1] = "stream-json"
			return args
		}
	}
	return append(args, "--output-format", "stream-json")
}

// SyntheticSessionID mints a provider-family-flavored placeholder
// session identifier when the caller supplied none, mirroring the
// reference implementation's per-family naming convention.
func SyntheticSessionID(family Family) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	switch family {
	case FamilyClaudeLike:
		return "valid_session_" + short
	case FamilyGeminiLike:
		return "valid_context_" + short
	default:
		return uuid.NewString()
	}
}
