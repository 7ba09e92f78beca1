package auth

import (
	"context"

	"chatauth/internal/mailer"
)

// ChatProfile is the subset of a user mirrored into the chat provider.
type ChatProfile struct {
	ID    string
	Name  string
	Image string
}

// ChatDirectory registers users with the external chat/video provider.
// Failures are logged and never fail the calling operation.
type ChatDirectory interface {
	UpsertUser(ctx context.Context, p ChatProfile) error
}

// Mailer delivers login codes. A failed delivery is reported to the caller
// but the issued code stays valid.
type Mailer interface {
	SendLoginCode(ctx context.Context, msg mailer.LoginCode) error
}
