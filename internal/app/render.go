package app

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"assistance_alerts/internal/domain/notification"

	"gopkg.in/telebot.v3"
)

const dateLayout = "02/01/2006"

// FormatSummary renders the badge line shown above the alert menu.
func FormatSummary(snap Snapshot) string {
	if !snap.Ready {
		return "Notifications indisponibles : aucune donnée chargée pour le moment."
	}
	v := snap.View
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 %d notification(s) : %d prêt(s), %d campagne(s)", v.TotalCount, v.LoanCount, v.CampaignCount)
	if snap.Stale {
		b.WriteString("\n⚠️ Données non actualisées, dernière mise à jour le ")
		b.WriteString(snap.RefreshedAt.Format("02/01/2006 15:04"))
	}
	return b.String()
}

// FormatView renders every unacknowledged alert grouped by section, as HTML
// for Telegram's ParseMode HTML.
func FormatView(snap Snapshot) string {
	var b strings.Builder
	b.WriteString(html.EscapeString(FormatSummary(snap)))
	if !snap.Ready || snap.View.TotalCount == 0 {
		if snap.Ready {
			b.WriteString("\n\nAucune alerte en attente.")
		}
		return b.String()
	}

	v := snap.View
	writeSection(&b, "Prêts en retard", len(v.LoanAlerts.Overdue), func() {
		for _, a := range v.LoanAlerts.Overdue {
			b.WriteString(FormatLoanAlert(a))
			b.WriteString("\n")
		}
	})
	writeSection(&b, "Prêts à rendre bientôt", len(v.LoanAlerts.DueSoon), func() {
		for _, a := range v.LoanAlerts.DueSoon {
			b.WriteString(FormatLoanAlert(a))
			b.WriteString("\n")
		}
	})
	writeSection(&b, "Campagnes terminées récemment", len(v.CampaignAlerts.RecentlyEnded), func() {
		for _, a := range v.CampaignAlerts.RecentlyEnded {
			b.WriteString(FormatCampaignAlert(a))
			b.WriteString("\n")
		}
	})
	writeSection(&b, "Campagnes se terminant bientôt", len(v.CampaignAlerts.EndingSoon), func() {
		for _, a := range v.CampaignAlerts.EndingSoon {
			b.WriteString(FormatCampaignAlert(a))
			b.WriteString("\n")
		}
	})
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, title string, n int, body func()) {
	if n == 0 {
		return
	}
	fmt.Fprintf(b, "\n\n<b>%s (%d)</b>\n", html.EscapeString(title), n)
	body()
}

// FormatLoanAlert renders one loan line.
func FormatLoanAlert(a notification.LoanAlert) string {
	who := a.Record.BeneficiaryName
	if who == "" {
		who = fmt.Sprintf("Dossier #%d", a.ID)
	}
	what := a.Record.EquipmentLabel
	if what == "" {
		what = "matériel"
	}
	due := ""
	if a.Record.DueDate != nil {
		due = a.Record.DueDate.Format(dateLayout)
	}

	var status string
	switch a.Kind {
	case notification.KindOverdue:
		status = fmt.Sprintf("en retard de %s", days(a.DaysOverdue))
	case notification.KindDueSoon:
		if a.DaysRemaining == 0 {
			status = "à rendre aujourd'hui"
		} else {
			status = fmt.Sprintf("à rendre dans %s", days(a.DaysRemaining))
		}
	}
	return fmt.Sprintf("• #%d %s – %s (échéance %s) : %s",
		a.ID, html.EscapeString(who), html.EscapeString(what), due, status)
}

// FormatCampaignAlert renders one campaign line.
func FormatCampaignAlert(a notification.CampaignAlert) string {
	name := a.Campaign.Name
	if name == "" {
		name = fmt.Sprintf("Campagne #%d", a.ID)
	}
	var status string
	switch a.Kind {
	case notification.KindRecentlyEnded:
		status = fmt.Sprintf("terminée depuis %s", days(a.DaysSinceEnd))
	case notification.KindEndingSoon:
		if a.DaysRemaining == 0 {
			status = "se termine aujourd'hui"
		} else {
			status = fmt.Sprintf("se termine dans %s", days(a.DaysRemaining))
		}
	}
	return fmt.Sprintf("• #%d %s (fin %s) : %s",
		a.ID, html.EscapeString(name), a.Campaign.EndDate.Format(dateLayout), status)
}

func days(n int) string {
	if n == 1 {
		return "1 jour"
	}
	return fmt.Sprintf("%d jours", n)
}

// maxAlertButtons caps per-alert buttons; Telegram rejects oversized keyboards.
const maxAlertButtons = 20

// AlertKeyboard builds one "mark as read" button per alert, in display order,
// followed by a button acknowledging everything shown.
func AlertKeyboard(v notification.View) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	if v.TotalCount == 0 {
		return markup
	}

	var rows []telebot.Row
	add := func(unique string, id int64) {
		if len(rows) >= maxAlertButtons {
			return
		}
		label := fmt.Sprintf("✓ Lu : prêt #%d", id)
		if unique == UniqueAckCampaign {
			label = fmt.Sprintf("✓ Lu : campagne #%d", id)
		}
		rows = append(rows, markup.Row(markup.Data(label, unique, strconv.FormatInt(id, 10))))
	}
	for _, a := range v.LoanAlerts.Overdue {
		add(UniqueAckLoan, a.ID)
	}
	for _, a := range v.LoanAlerts.DueSoon {
		add(UniqueAckLoan, a.ID)
	}
	for _, a := range v.CampaignAlerts.RecentlyEnded {
		add(UniqueAckCampaign, a.ID)
	}
	for _, a := range v.CampaignAlerts.EndingSoon {
		add(UniqueAckCampaign, a.ID)
	}
	rows = append(rows, markup.Row(markup.Data("Tout marquer comme lu", UniqueAckAll)))
	markup.Inline(rows...)
	return markup
}
