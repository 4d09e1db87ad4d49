// Package notifications sends order confirmations after checkout commits.
package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultSendTimeout = 10 * time.Second

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Dispatcher runs confirmation sends on tracked goroutines. Nothing it does can
// fail the request that triggered it; errors are logged.
type Dispatcher struct {
	sender  Sender
	users   userLoader
	timeout time.Duration
	logg    *logger.Logger

	wg sync.WaitGroup
}

// NewDispatcher wires the dispatcher. A non-positive timeout falls back to 10s.
func NewDispatcher(sender Sender, users userLoader, timeout time.Duration, logg *logger.Logger) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Dispatcher{sender: sender, users: users, timeout: timeout, logg: logg}, nil
}

// OrderPlaced queues a confirmation for a committed order and returns
// immediately. The send outlives ctx's cancellation but keeps its values.
func (d *Dispatcher) OrderPlaced(ctx context.Context, order models.Order) {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		d.deliver(sendCtx, order)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, order models.Order) {
	logCtx := d.logg.WithOrderNumber(ctx, order.OrderNumber)
	defer func() {
		if r := recover(); r != nil {
			d.logg.Error(logCtx, "order confirmation panicked", fmt.Errorf("%v", r))
		}
	}()

	user, err := d.users.FindByID(ctx, order.UserID)
	if err != nil {
		d.logg.Error(logCtx, "load order confirmation recipient", err)
		return
	}
	if err := d.sender.Send(ctx, newConfirmation(order, *user)); err != nil {
		d.logg.Error(logCtx, "send order confirmation", err)
		return
	}
	d.logg.Info(logCtx, "order confirmation sent")
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
