// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"assistance_alerts/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	b *telebot.Bot,
	alerts AlertService,
	adminTelegramID int64,
	baseLogger *logrus.Entry,
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID != adminTelegramID {
			logCtx.Info("User is unknown")
			return c.Send("Bonjour ! Ce bot envoie les alertes de prêts et de campagnes aux gestionnaires. Contactez l'administrateur pour y avoir accès.")
		}
		return c.Send(fmt.Sprintf("Bonjour %s ! Je suis prêt. %s\nUtilisez /help pour la liste des commandes.",
			c.Sender().FirstName, app.FormatSummary(alerts.Current())))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID != adminTelegramID {
			return c.Send("Aucune commande disponible pour vous.")
		}

		var helpText strings.Builder
		helpText.WriteString("Commandes disponibles :\n\n")
		helpText.WriteString("`/alerts`\n - Afficher les alertes non lues.\n\n")
		helpText.WriteString("`/refresh`\n - Recharger les prêts et les campagnes puis afficher les alertes.\n\n")
		helpText.WriteString("`/ack_loan <ID>`\n - Marquer l'alerte d'un prêt comme lue.\n\n")
		helpText.WriteString("`/ack_campaign <ID>`\n - Marquer l'alerte d'une campagne comme lue.\n\n")
		helpText.WriteString("`/ack_all`\n - Marquer toutes les alertes affichées comme lues.\n\n")
		helpText.WriteString("`/reset_alerts`\n - Réafficher toutes les alertes.\n\n")
		helpText.WriteString("`/help`\n - Afficher ce message.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}
