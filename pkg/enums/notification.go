package enums

import "fmt"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationLoanRequested       NotificationType = "loan_requested"
	NotificationLoanApproved        NotificationType = "loan_approved"
	NotificationLoanRejected        NotificationType = "loan_rejected"
	NotificationLoanOverdue         NotificationType = "loan_overdue"
	NotificationReturnSubmitted     NotificationType = "return_submitted"
	NotificationReturnDamagedOrLost NotificationType = "return_damaged_or_lost"
	NotificationReturnFined         NotificationType = "return_fined"
	NotificationReturnConfirmed     NotificationType = "return_confirmed"
	NotificationFinePaid            NotificationType = "fine_paid"
	NotificationEquipmentAdded      NotificationType = "equipment_added"
)

var validNotificationTypes = []NotificationType{
	NotificationLoanRequested,
	NotificationLoanApproved,
	NotificationLoanRejected,
	NotificationLoanOverdue,
	NotificationReturnSubmitted,
	NotificationReturnDamagedOrLost,
	NotificationReturnFined,
	NotificationReturnConfirmed,
	NotificationFinePaid,
	NotificationEquipmentAdded,
}

func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
