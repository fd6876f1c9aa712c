package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"assistance_alerts/internal/app"
	"assistance_alerts/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// AlertService is the part of the notification service the bot drives.
type AlertService interface {
	Current() app.Snapshot
	Refresh(ctx context.Context, trigger string) (app.Snapshot, error)
	Acknowledge(ctx context.Context, source notification.Source, id int64) (app.Snapshot, error)
	AcknowledgeVisible(ctx context.Context) (app.Snapshot, error)
	Reset(ctx context.Context) (app.Snapshot, error)
}

const (
	msgUnauthorized = "Erreur : vous n'avez pas les droits pour cette commande."
	msgNotReady     = "Notifications indisponibles pour le moment, rien n'a été modifié."
)

// RegisterAlertHandlers registers the alert commands and the inline
// "mark as read" buttons. Only the admin may use them.
func RegisterAlertHandlers(ctx context.Context, b *telebot.Bot, alerts AlertService, adminTelegramID int64, baseLogger *logrus.Entry) {
	h := &alertHandlers{ctx: ctx, alerts: alerts, adminID: adminTelegramID, logger: baseLogger.WithField("handler_group", "alerts")}

	b.Handle("/alerts", h.adminOnly("/alerts", h.showAlerts))
	b.Handle("/refresh", h.adminOnly("/refresh", h.refresh))
	b.Handle("/ack_loan", h.adminOnly("/ack_loan", h.ackCommand(notification.SourceLoan)))
	b.Handle("/ack_campaign", h.adminOnly("/ack_campaign", h.ackCommand(notification.SourceCampaign)))
	b.Handle("/ack_all", h.adminOnly("/ack_all", h.ackAll))
	b.Handle("/reset_alerts", h.adminOnly("/reset_alerts", h.reset))

	b.Handle(&telebot.Btn{Unique: app.UniqueAckLoan}, h.adminOnly("btn_ack_loan", h.ackButton(notification.SourceLoan)))
	b.Handle(&telebot.Btn{Unique: app.UniqueAckCampaign}, h.adminOnly("btn_ack_campaign", h.ackButton(notification.SourceCampaign)))
	b.Handle(&telebot.Btn{Unique: app.UniqueAckAll}, h.adminOnly("btn_ack_all", h.ackAllButton))
}

type alertHandlers struct {
	ctx     context.Context
	alerts  AlertService
	adminID int64
	logger  *logrus.Entry
}

func (h *alertHandlers) adminOnly(name string, next func(telebot.Context, *logrus.Entry) error) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		log := h.logger.WithFields(logrus.Fields{
			"handler":   name,
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != h.adminID {
			log.Warn("Unauthorized access attempt")
			if c.Callback() != nil {
				return c.Respond(&telebot.CallbackResponse{Text: msgUnauthorized})
			}
			return c.Send(msgUnauthorized)
		}
		log.Debug("Command received")
		return next(c, log)
	}
}

func sendView(c telebot.Context, snap app.Snapshot) error {
	return c.Send(app.FormatView(snap), &telebot.SendOptions{
		ParseMode:   telebot.ModeHTML,
		ReplyMarkup: app.AlertKeyboard(snap.View),
	})
}

// editView replaces the message the button was attached to.
func editView(c telebot.Context, snap app.Snapshot) error {
	return c.Edit(app.FormatView(snap), &telebot.SendOptions{
		ParseMode:   telebot.ModeHTML,
		ReplyMarkup: app.AlertKeyboard(snap.View),
	})
}

func (h *alertHandlers) showAlerts(c telebot.Context, _ *logrus.Entry) error {
	return sendView(c, h.alerts.Current())
}

func (h *alertHandlers) refresh(c telebot.Context, log *logrus.Entry) error {
	snap, err := h.alerts.Refresh(h.ctx, app.TriggerManual)
	if err != nil {
		log.WithError(err).Warn("Manual refresh failed")
		if !errors.Is(err, app.ErrSourceFetch) {
			return c.Send("Une erreur est survenue pendant l'actualisation.")
		}
	}
	return sendView(c, snap)
}

func (h *alertHandlers) ackCommand(source notification.Source) func(telebot.Context, *logrus.Entry) error {
	return func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send(fmt.Sprintf("Format invalide. Utilisez : /ack_%s <ID>", source))
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			log.WithField("arg", args[0]).Warn("Invalid alert ID format")
			return c.Send("Erreur : l'identifiant doit être un nombre positif.")
		}

		snap, err := h.alerts.Acknowledge(h.ctx, source, id)
		if err = h.checkMutation(log.WithField("id", id), err); err != nil {
			return c.Send("Une erreur est survenue, l'alerte n'a pas été marquée comme lue.")
		}
		return c.Send(fmt.Sprintf("Alerte %s #%d marquée comme lue.\n%s", sourceLabel(source), id, app.FormatSummary(snap)))
	}
}

func (h *alertHandlers) ackAll(c telebot.Context, log *logrus.Entry) error {
	snap, err := h.alerts.AcknowledgeVisible(h.ctx)
	if errors.Is(err, app.ErrNotReady) {
		return c.Send(app.FormatSummary(snap))
	}
	if err = h.checkMutation(log, err); err != nil {
		return c.Send("Une erreur est survenue, les alertes n'ont pas été marquées comme lues.")
	}
	return c.Send("Toutes les alertes ont été marquées comme lues.\n" + app.FormatSummary(snap))
}

func (h *alertHandlers) reset(c telebot.Context, log *logrus.Entry) error {
	snap, err := h.alerts.Reset(h.ctx)
	if err = h.checkMutation(log, err); err != nil {
		return c.Send("Une erreur est survenue pendant la réinitialisation.")
	}
	return sendView(c, snap)
}

func (h *alertHandlers) ackButton(source notification.Source) func(telebot.Context, *logrus.Entry) error {
	return func(c telebot.Context, log *logrus.Entry) error {
		id, err := strconv.ParseInt(c.Data(), 10, 64)
		if err != nil || id <= 0 {
			log.WithField("data", c.Data()).Warn("Invalid alert ID in callback")
			return c.Respond(&telebot.CallbackResponse{Text: "Identifiant d'alerte invalide."})
		}
		snap, err := h.alerts.Acknowledge(h.ctx, source, id)
		if err = h.checkMutation(log.WithField("id", id), err); err != nil {
			return c.Respond(&telebot.CallbackResponse{Text: "Une erreur est survenue."})
		}
		if err := c.Respond(&telebot.CallbackResponse{Text: "Marquée comme lue."}); err != nil {
			log.WithError(err).Warn("Failed to answer callback")
		}
		return editView(c, snap)
	}
}

func (h *alertHandlers) ackAllButton(c telebot.Context, log *logrus.Entry) error {
	snap, err := h.alerts.AcknowledgeVisible(h.ctx)
	if errors.Is(err, app.ErrNotReady) {
		return c.Respond(&telebot.CallbackResponse{Text: msgNotReady})
	}
	if err = h.checkMutation(log, err); err != nil {
		return c.Respond(&telebot.CallbackResponse{Text: "Une erreur est survenue."})
	}
	if err := c.Respond(&telebot.CallbackResponse{Text: "Tout est marqué comme lu."}); err != nil {
		log.WithError(err).Warn("Failed to answer callback")
	}
	return editView(c, snap)
}

func sourceLabel(source notification.Source) string {
	if source == notification.SourceCampaign {
		return "campagne"
	}
	return "prêt"
}

// checkMutation drops persistence failures: the acknowledgement already
// applies in memory and is retried on the next change.
func (h *alertHandlers) checkMutation(log *logrus.Entry, err error) error {
	if err == nil || errors.Is(err, app.ErrAcknowledgementPersistence) {
		return nil
	}
	log.WithError(err).Error("Acknowledgement failed")
	return err
}
