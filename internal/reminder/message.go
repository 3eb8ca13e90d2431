package reminder

import (
	"fmt"
	"html"
	"strings"
)

// FormatMessage renders the Telegram HTML text for a countdown reminder.
// With isPreview set it renders the confirmation shown at registration time,
// whatever daysUntil is.
func FormatMessage(eventName string, daysUntil int, icon string, isPreview bool) string {
	title := html.EscapeString(strings.TrimSpace(eventName))
	if icon != "" {
		title = icon + " " + title
	}

	if isPreview {
		return fmt.Sprintf("🔔 <b>Reminder set!</b>\n\n<b>%s</b> %s.\nI'll message you as the day gets closer.",
			title, countdownPhrase(daysUntil))
	}

	switch daysUntil {
	case 0:
		return fmt.Sprintf("🎉 <b>%s</b> is TODAY! 🎉\n\nEnjoy your day!", title)
	case 1:
		return fmt.Sprintf("⏰ Tomorrow is <b>%s</b>!\n\nJust 1 day to go.", title)
	case 3:
		return fmt.Sprintf("📅 <b>%s</b> is in 3 days.\n\nTime to get ready!", title)
	case 7:
		return fmt.Sprintf("📆 <b>%s</b> is in 1 week.\n\n7 days left to plan.", title)
	case 14:
		return fmt.Sprintf("🗓 <b>%s</b> is in 2 weeks.\n\n14 days to go.", title)
	}

	if daysUntil < 0 {
		return fmt.Sprintf("<b>%s</b> has passed.", title)
	}
	return fmt.Sprintf("⏳ <b>%s</b> is in %d days.", title, daysUntil)
}

func countdownPhrase(daysUntil int) string {
	switch {
	case daysUntil < 0:
		return "has already passed"
	case daysUntil == 0:
		return "is TODAY"
	case daysUntil == 1:
		return "is Tomorrow"
	default:
		return fmt.Sprintf("is in %d days", daysUntil)
	}
}
