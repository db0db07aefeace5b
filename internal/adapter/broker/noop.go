package broker

import (
	"context"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
)

// Noop drops published notifications and never delivers any.
type Noop struct{}

func (Noop) Publish(context.Context, *domain.DepositNotification) error { return nil }

// Consume blocks until ctx is done.
func (Noop) Consume(ctx context.Context, _ usecase.MessageHandler) error {
	<-ctx.Done()
	return nil
}

func (Noop) Close() error { return nil }
