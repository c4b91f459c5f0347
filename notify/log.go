package notify

import (
	"context"
	"log/slog"
)

// LogNotifier only logs. Used when neither SMTP nor a queue is configured.
type LogNotifier struct{ log *slog.Logger }

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, ev Event) error {
	n.log.InfoContext(ctx, "[notify] "+ev.Kind,
		"borrowId", ev.TransactionID,
		"status", ev.Status,
		"to", ev.Mail.UserEmail,
		"items", ev.Mail.EquipmentNames,
	)
	return nil
}
