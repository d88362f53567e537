package ports

import (
	"context"

	"github.com/aretw0/sceneweaver/pkg/domain"
)

// Identity supplies who is editing and how to authenticate requests.
type Identity interface {
	// UserID is recorded as the creator of new scenarios.
	UserID() string
	// Token is the bearer credential sent to the store. Empty means anonymous.
	Token() string
}

// Notifier presents transient notices to the user.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n domain.Notice)

func (f NotifierFunc) Notify(ctx context.Context, n domain.Notice) {
	f(ctx, n)
}
