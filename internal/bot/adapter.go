package bot

import "context"

// Command is one parsed chat command from a platform.
type Command struct {
	Name     string
	Args     []string
	UserID   string
	Username string
}

// ReplyFunc sends one text response back to the user who issued the command.
type ReplyFunc func(ctx context.Context, text string) error

// Adapter is the minimal surface a chat platform must provide. The adapter
// parses platform messages into Commands and delivers replies; everything
// else lives in the Handler.
type Adapter interface {
	Platform() string
	Register(fn func(ctx context.Context, cmd Command, reply ReplyFunc))
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
