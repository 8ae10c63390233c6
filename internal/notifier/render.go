package notifier

import (
	"strings"
	"time"

	"deadlinebot/internal/deadline"
	"deadlinebot/internal/timeutil"
	"deadlinebot/internal/transport"
	"deadlinebot/pkg/tgui"
)

// maxFieldRunes caps free text fields so one reminder stays a single message.
const maxFieldRunes = 1000

type urgency struct {
	emoji, title string
}

func urgencyFor(h deadline.Horizon) urgency {
	switch h {
	case deadline.HorizonDay:
		return urgency{"⚠️", "Deadline tomorrow!"}
	case deadline.HorizonHour:
		return urgency{"🔥", "Less than an hour left!"}
	default:
		return urgency{"🔔", "Reminder"}
	}
}

// markup renders fragments as Telegram HTML, or verbatim when parse mode is off.
type markup struct{ html bool }

func (m markup) text(s string) tgui.H {
	s = tgui.TruncRunes(s, maxFieldRunes)
	if m.html {
		return tgui.Esc(s)
	}
	return tgui.Raw(s)
}

func (m markup) bold(s string) tgui.H {
	if m.html {
		return tgui.B(s)
	}
	return tgui.Raw(s)
}

// Render builds the message for one deadline and horizon.
func (d *Dispatcher) Render(r Reminder, h deadline.Horizon, remaining time.Duration) Message {
	opts := d.sendOptions()
	m := markup{html: strings.EqualFold(opts.ParseMode, transport.ParseModeHTML)}
	u := urgencyFor(h)
	left := m.bold(timeutil.FormatDuration(remaining))
	due := tgui.JoinH(" ", "⏰ Due:", m.text(d.norm.FormatForDisplay(r.Due)))

	lines := []tgui.H{tgui.JoinH(" ", tgui.Raw(u.emoji), m.bold(u.title))}
	if r.Ref.Kind == deadline.KindGroup {
		if r.Important {
			lines = append(lines, tgui.JoinH(" ", "⚠️", m.bold("IMPORTANT FOR THE WHOLE GROUP")))
		}
		lines = append(lines,
			"",
			tgui.JoinH(" ", "Time left until the group deadline:", left),
			"",
			tgui.JoinH(" ", "👥", m.bold("Group deadline")),
			tgui.JoinH(" ", "📚", m.text(r.Subject)),
			tgui.JoinH(" ", "📋", m.text(r.Task)),
			tgui.JoinH(" ", "🗂 Category:", m.text(r.Category)),
			due,
			tgui.JoinH(" ", "👥 Group:", m.text(r.GroupName)),
			"",
			"Coordinate with your group!",
		)
	} else {
		lines = append(lines,
			"",
			tgui.JoinH(" ", "Time left until your deadline:", left),
			"",
			tgui.JoinH(" ", "📝", m.bold("Personal deadline")),
			tgui.JoinH(" ", "📚", m.text(r.Subject)),
			tgui.JoinH(" ", "📋", m.text(r.Task)),
			tgui.JoinH(" ", "🏷️ Priority:", m.text(r.Priority)),
			due,
			"",
			"Don't forget to finish it on time! 💪",
		)
	}

	return Message{
		Ref:     r.Ref,
		Horizon: h,
		Text:    tgui.Lines(lines...).String(),
		Options: opts,
	}
}
