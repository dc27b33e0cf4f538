package provider

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// CreateChatTimeoutID is returned as the chat id, with a nil error, when
// the create-chat bootstrap hits its deadline. Callers must check for it
// explicitly and map it to coreerr.Timeout themselves, since a deadline
// here is not a process failure CreateChat can classify on its own.
const CreateChatTimeoutID = "timeout"

// CreateChat runs the cursor-like provider's synchronous create-chat
// bootstrap to obtain a {chat_id} when one was not already resolved. It
// honors the given timeout, returning CreateChatTimeoutID as the id on
// expiry per the reference implementation's behavior.
func CreateChat(ctx context.Context, t Template, timeout time.Duration) (string, error) {
	if len(t.CreateChatArgs) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.Command, t.CreateChatArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return CreateChatTimeoutID, nil
		}
		return "", &CreateChatError{Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// CreateChatError carries the cleaned stderr from a failed create-chat
// invocation.
type CreateChatError struct {
	Stderr string
	Err    error
}

func (e *CreateChatError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Err.Error()
}

func (e *CreateChatError) Unwrap() error {
	return e.Err
}
