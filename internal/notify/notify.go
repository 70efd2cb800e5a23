// Package notify delivers new-report notifications to moderators.
package notify

import (
	"context"

	"flagpost/internal/report"

	"github.com/rs/zerolog/log"
)

// LogNotifier writes notifications to the application log. It is the
// default sink when SMTP is not configured.
type LogNotifier struct{}

var _ report.Notifier = (*LogNotifier)(nil)

func (LogNotifier) NewReport(ctx context.Context, n report.Notification) error {
	log.Info().
		Str("report_id", n.ReportID).
		Str("content_id", n.ContentID).
		Str("reason", n.Reason).
		Msg("notify: new content report")
	return nil
}
