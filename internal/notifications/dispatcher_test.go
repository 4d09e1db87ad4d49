package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type stubUsers struct {
	user *models.User
	err  error
}

func (s stubUsers) FindByID(context.Context, uuid.UUID) (*models.User, error) {
	return s.user, s.err
}

type recordingSender struct {
	mu       sync.Mutex
	sent     []OrderConfirmation
	deadline bool
	err      error
}

func (r *recordingSender) Send(ctx context.Context, msg OrderConfirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, r.deadline = ctx.Deadline()
	r.sent = append(r.sent, msg)
	return r.err
}

type stubPublisher struct {
	topic string
	data  []byte
	attrs map[string]string
}

func (p *stubPublisher) Publish(_ context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	p.topic, p.data, p.attrs = topic, data, attrs
	return "msg-1", nil
}

func testOrder(userID uuid.UUID) models.Order {
	return models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-LX2K9A1B-7QZ3MD",
		UserID:          userID,
		TotalCents:      10997,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   enums.DefaultPaymentMethod,
		ShippingAddress: &types.ShippingAddress{City: "Austin"},
		CreatedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Name: "Classic Tee", Size: enums.ProductSizeM, UnitPriceCents: 2999, Quantity: 2},
			{ProductID: uuid.New(), Name: "Hoodie", Size: enums.ProductSizeL, UnitPriceCents: 4999, Quantity: 1},
		},
	}
}

func quietLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: buf})
}

func TestDispatcherDeliversDetachedFromRequest(t *testing.T) {
	user := &models.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com"}
	sender := &recordingSender{}
	var buf bytes.Buffer
	d, err := NewDispatcher(sender, stubUsers{user: user}, time.Second, quietLogger(&buf))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.OrderPlaced(ctx, testOrder(user.ID))
	require.NoError(t, d.Wait(context.Background()))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.True(t, sender.deadline, "send should run under its own timeout")
	assert.Equal(t, "ada@example.com", msg.Recipient.Email)
	assert.Equal(t, "109.97", msg.TotalAmount.StringFixed(2))
	require.Len(t, msg.Items, 2)
	assert.Equal(t, "59.98", msg.Items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "CASH_ON_DELIVERY", msg.PaymentMethod)
}

func TestDispatcherLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	sender := &recordingSender{}
	d, err := NewDispatcher(sender, stubUsers{err: gorm.ErrRecordNotFound}, time.Second, quietLogger(&buf))
	require.NoError(t, err)

	d.OrderPlaced(context.Background(), testOrder(uuid.New()))
	require.NoError(t, d.Wait(context.Background()))
	assert.Empty(t, sender.sent)
	assert.Contains(t, buf.String(), "load order confirmation recipient")

	buf.Reset()
	failing := &recordingSender{err: errors.New("smtp down")}
	d, err = NewDispatcher(failing, stubUsers{user: &models.User{Email: "x@example.com"}}, 0, quietLogger(&buf))
	require.NoError(t, err)
	d.OrderPlaced(context.Background(), testOrder(uuid.New()))
	require.NoError(t, d.Wait(context.Background()))
	assert.Contains(t, buf.String(), "smtp down")
	assert.Contains(t, buf.String(), "ORD-LX2K9A1B-7QZ3MD")
}

func TestWaitHonorsContext(t *testing.T) {
	block := make(chan struct{})
	d, err := NewDispatcher(blockingSender(block), stubUsers{user: &models.User{}}, time.Minute, quietLogger(&bytes.Buffer{}))
	require.NoError(t, err)

	d.OrderPlaced(context.Background(), testOrder(uuid.New()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)

	close(block)
	require.NoError(t, d.Wait(context.Background()))
}

type blockingSender chan struct{}

func (b blockingSender) Send(ctx context.Context, _ OrderConfirmation) error {
	select {
	case <-b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestPubSubSenderPublishesJSON(t *testing.T) {
	pub := &stubPublisher{}
	sender, err := NewPubSubSender(pub, "order-confirmations", nil)
	require.NoError(t, err)

	msg := newConfirmation(testOrder(uuid.New()), models.User{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, sender.Send(context.Background(), msg))

	assert.Equal(t, "order-confirmations", pub.topic)
	assert.Equal(t, "ORD-LX2K9A1B-7QZ3MD", pub.attrs["order_number"])
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.data, &decoded))
	assert.Equal(t, "109.97", decoded["totalAmount"])
	assert.Equal(t, "ada@example.com", decoded["recipient"].(map[string]any)["email"])

	_, err = NewPubSubSender(nil, "t", nil)
	assert.Error(t, err)
	_, err = NewPubSubSender(pub, "", nil)
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(quietLogger(&buf))
	require.NoError(t, sender.Send(context.Background(), newConfirmation(testOrder(uuid.New()), models.User{Email: "ada@example.com"})))
	assert.Contains(t, buf.String(), "order confirmation")
	assert.Contains(t, buf.String(), "ada@example.com")
}
