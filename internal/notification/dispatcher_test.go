package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkayomi/class-reservation/internal/model"
)

type fakeChannel struct {
	err   error
	sent  []string
	phone string
}

func (c *fakeChannel) Send(ctx context.Context, phone, message string) error {
	if c.err != nil {
		return c.err
	}
	c.phone = phone
	c.sent = append(c.sent, message)
	return nil
}

type fakeAudit struct {
	rows []model.Notification
	err  error
}

func (a *fakeAudit) Insert(ctx context.Context, n *model.Notification) error {
	if a.err != nil {
		return a.err
	}
	a.rows = append(a.rows, *n)
	return nil
}

func TestDispatcherKakaoFirst(t *testing.T) {
	kakao := &fakeChannel{}
	sms := &fakeChannel{}
	audit := &fakeAudit{}
	d := NewDispatcher(kakao, sms, audit, testTemplates)

	result := d.Send(context.Background(), baseReq(model.NotifyApproval))

	assert.True(t, result.Success)
	assert.Equal(t, model.ChannelKakao, result.Channel)
	assert.Len(t, kakao.sent, 1)
	assert.Empty(t, sms.sent)

	require.Len(t, audit.rows, 1)
	row := audit.rows[0]
	assert.Equal(t, model.ChannelKakao, row.Channel)
	assert.Equal(t, model.NotificationSent, row.Status)
	assert.NotNil(t, row.SentAt)
	assert.Equal(t, "010-1234-5678", row.RecipientPhone)
}

func TestDispatcherFallsBackToSMS(t *testing.T) {
	kakao := &fakeChannel{err: errors.New("alimtalk rejected the template")}
	sms := &fakeChannel{}
	audit := &fakeAudit{}
	d := NewDispatcher(kakao, sms, audit, testTemplates)

	result := d.Send(context.Background(), baseReq(model.NotifyConfirmation))

	assert.True(t, result.Success)
	assert.Equal(t, model.ChannelSMS, result.Channel)
	assert.Len(t, sms.sent, 1)

	// One audit row per attempt: a failed kakao row, then a sent sms row.
	require.Len(t, audit.rows, 2)
	assert.Equal(t, model.ChannelKakao, audit.rows[0].Channel)
	assert.Equal(t, model.NotificationFailed, audit.rows[0].Status)
	require.NotNil(t, audit.rows[0].ErrorMessage)
	assert.Equal(t, "alimtalk rejected the template", *audit.rows[0].ErrorMessage)
	assert.Equal(t, model.ChannelSMS, audit.rows[1].Channel)
	assert.Equal(t, model.NotificationSent, audit.rows[1].Status)
}

func TestDispatcherBothChannelsFail(t *testing.T) {
	kakao := &fakeChannel{err: errors.New("kakao down")}
	sms := &fakeChannel{err: errors.New("sms down")}
	audit := &fakeAudit{}
	d := NewDispatcher(kakao, sms, audit, testTemplates)

	result := d.Send(context.Background(), baseReq(model.NotifyCancellation))

	assert.False(t, result.Success)
	assert.Equal(t, model.ChannelSMS, result.Channel)
	assert.Equal(t, "sms down", result.Err)
	require.Len(t, audit.rows, 2)
	assert.Equal(t, model.NotificationFailed, audit.rows[0].Status)
	assert.Equal(t, model.NotificationFailed, audit.rows[1].Status)
}

func TestDispatcherAuditFailureDoesNotBlockDelivery(t *testing.T) {
	kakao := &fakeChannel{}
	d := NewDispatcher(kakao, &fakeChannel{}, &fakeAudit{err: errors.New("db down")}, testTemplates)

	result := d.Send(context.Background(), baseReq(model.NotifyApproval))
	assert.True(t, result.Success)
}

func TestDispatcherDeliverReplaysVerbatim(t *testing.T) {
	kakao := &fakeChannel{}
	audit := &fakeAudit{}
	d := NewDispatcher(kakao, &fakeChannel{}, audit, testTemplates)

	result := d.Deliver(context.Background(), 42, model.NotifyApproval, "010-0000-0000", "original text")

	assert.True(t, result.Success)
	require.Len(t, kakao.sent, 1)
	assert.Equal(t, "original text", kakao.sent[0])
	require.Len(t, audit.rows, 1)
	assert.Equal(t, uint64(42), audit.rows[0].ReservationID)
	assert.Equal(t, "original text", audit.rows[0].Message)
}
