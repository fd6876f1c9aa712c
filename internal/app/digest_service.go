package app

import (
	"context"
	"fmt"

	domainTelegram "assistance_alerts/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// DigestService pushes the current notification view to the manager chat.
type DigestService struct {
	notifications *NotificationService
	client        domainTelegram.Client
	chatID        int64
	logger        *logrus.Entry
}

func NewDigestService(ns *NotificationService, client domainTelegram.Client, chatID int64, logger *logrus.Entry) *DigestService {
	return &DigestService{
		notifications: ns,
		client:        client,
		chatID:        chatID,
		logger:        logger,
	}
}

// SendDigest refreshes, then sends the view if anything is unacknowledged.
// A failed refresh still sends the last known view, flagged as stale.
func (d *DigestService) SendDigest(ctx context.Context) error {
	if d.chatID == 0 {
		d.logger.Warn("Digest chat ID not configured, skipping digest")
		return nil
	}

	snap, err := d.notifications.Refresh(ctx, TriggerScheduled)
	if err != nil {
		d.logger.WithError(err).Warn("Refresh before digest failed, using last known notifications")
	}
	if !snap.Ready {
		d.logger.Info("No notification data loaded yet, digest skipped")
		return nil
	}
	if snap.View.TotalCount == 0 {
		d.logger.Info("No unacknowledged notifications, digest skipped")
		return nil
	}

	if err := d.client.SendMessage(d.chatID, FormatView(snap), &telebot.SendOptions{
		ReplyMarkup: AlertKeyboard(snap.View),
		ParseMode:   telebot.ModeHTML,
	}); err != nil {
		d.logger.WithError(err).WithField("chat_id", d.chatID).Error("Failed to send notification digest")
		return fmt.Errorf("failed to send digest: %w", err)
	}
	d.logger.WithFields(logrus.Fields{
		"chat_id":     d.chatID,
		"total_count": snap.View.TotalCount,
	}).Info("Notification digest sent")
	return nil
}

// Inline button identifiers shared with the Telegram handlers.
const (
	UniqueAckLoan     = "ack_loan"
	UniqueAckCampaign = "ack_campaign"
	UniqueAckAll      = "ack_all"
)
