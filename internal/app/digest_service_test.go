package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type sentMessage struct {
	chatID  int64
	text    string
	options *telebot.SendOptions
}

type fakeClient struct {
	sent []sentMessage
	err  error
}

func (c *fakeClient) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentMessage{chatID: chatID, text: text, options: options})
	return nil
}

func TestSendDigest(t *testing.T) {
	ctx := context.Background()

	t.Run("sends unacknowledged alerts to the manager", func(t *testing.T) {
		f := newFixture(t)
		client := &fakeClient{}
		d := NewDigestService(f.svc, client, 42, testLogger())

		require.NoError(t, d.SendDigest(ctx))
		require.Len(t, client.sent, 1)
		msg := client.sent[0]
		assert.Equal(t, int64(42), msg.chatID)
		assert.Contains(t, msg.text, "5 notification(s)")
		assert.Equal(t, telebot.ModeHTML, msg.options.ParseMode)
		assert.NotEmpty(t, msg.options.ReplyMarkup.InlineKeyboard)
		assert.Equal(t, 1, f.rec.evaluations[TriggerScheduled])
	})

	t.Run("nothing to send once everything is acknowledged", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Refresh(ctx, TriggerManual)
		require.NoError(t, err)
		_, err = f.svc.AcknowledgeVisible(ctx)
		require.NoError(t, err)

		client := &fakeClient{}
		require.NoError(t, NewDigestService(f.svc, client, 42, testLogger()).SendDigest(ctx))
		assert.Empty(t, client.sent)
	})

	t.Run("stale data is still sent", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Refresh(ctx, TriggerManual)
		require.NoError(t, err)
		f.source.FailRecords(errStoreDown)

		client := &fakeClient{}
		require.NoError(t, NewDigestService(f.svc, client, 42, testLogger()).SendDigest(ctx))
		require.Len(t, client.sent, 1)
		assert.Contains(t, client.sent[0].text, "Données non actualisées")
	})

	t.Run("no data yet", func(t *testing.T) {
		f := newFixture(t)
		f.source.FailRecords(errStoreDown)
		client := &fakeClient{}
		require.NoError(t, NewDigestService(f.svc, client, 42, testLogger()).SendDigest(ctx))
		assert.Empty(t, client.sent)
	})

	t.Run("no chat configured", func(t *testing.T) {
		f := newFixture(t)
		client := &fakeClient{}
		require.NoError(t, NewDigestService(f.svc, client, 0, testLogger()).SendDigest(ctx))
		assert.Empty(t, client.sent)
		assert.Zero(t, f.source.RecordCalls())
	})

	t.Run("send failure is returned", func(t *testing.T) {
		f := newFixture(t)
		client := &fakeClient{err: errors.New("telegram down")}
		err := NewDigestService(f.svc, client, 42, testLogger()).SendDigest(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telegram down")
	})
}
