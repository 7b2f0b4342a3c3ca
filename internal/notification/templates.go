package notification

import (
	"fmt"

	"github.com/kkayomi/class-reservation/internal/model"
)

// TemplateConfig carries the business facts interpolated into messages.
type TemplateConfig struct {
	StoreName            string
	BankInfo             string
	BaseURL              string
	DepositDeadlineHours int
}

// Render builds the message text for one notification request. Every
// lifecycle type has a template; unknown types fall back to a minimal
// status line so a bad enum never drops a message silently.
func Render(cfg TemplateConfig, req model.NotificationRequest) string {
	slot := fmt.Sprintf("%s %s", req.Date, req.Time)
	switch req.Type {
	case model.NotifyApproval:
		msg := fmt.Sprintf("[%s] %s, your booking for %s on %s is in.\n", cfg.StoreName, req.CustomerName, req.ClassName, slot)
		msg += fmt.Sprintf("Please wire the deposit of %d within %d hours to hold your seats.", req.Price, cfg.DepositDeadlineHours)
		if cfg.BankInfo != "" {
			msg += "\n" + cfg.BankInfo
		}
		return msg
	case model.NotifyConfirmation:
		msg := fmt.Sprintf("[%s] %s, your booking for %s on %s is confirmed. See you there!", cfg.StoreName, req.CustomerName, req.ClassName, slot)
		if req.ChangeToken != nil {
			msg += fmt.Sprintf("\nNeed a different date? %s/v1/change-requests?token=%s", cfg.BaseURL, *req.ChangeToken)
		}
		return msg
	case model.NotifyRejection:
		msg := fmt.Sprintf("[%s] %s, we could not accept your booking for %s on %s.", cfg.StoreName, req.CustomerName, req.ClassName, slot)
		if req.RejectReason != nil && *req.RejectReason != "" {
			msg += "\nReason: " + *req.RejectReason
		}
		return msg
	case model.NotifyCancellation:
		return fmt.Sprintf("[%s] %s, your booking for %s on %s has been cancelled.", cfg.StoreName, req.CustomerName, req.ClassName, slot)
	case model.NotifyChangeApproved:
		newSlot := slot
		if req.RequestedDate != nil && req.RequestedTime != nil {
			newSlot = fmt.Sprintf("%s %s", *req.RequestedDate, *req.RequestedTime)
		}
		return fmt.Sprintf("[%s] %s, your date change for %s was approved. New slot: %s.", cfg.StoreName, req.CustomerName, req.ClassName, newSlot)
	case model.NotifyChangeRejected:
		msg := fmt.Sprintf("[%s] %s, your date change for %s could not be approved. Your booking stays on %s.", cfg.StoreName, req.CustomerName, req.ClassName, slot)
		if req.RejectReason != nil && *req.RejectReason != "" {
			msg += "\nReason: " + *req.RejectReason
		}
		return msg
	}
	return fmt.Sprintf("[%s] booking update for %s on %s.", cfg.StoreName, req.ClassName, slot)
}
