package enums

// AuditAction is the verb recorded in activity_logs.action.
type AuditAction string

const (
	AuditCreate  AuditAction = "CREATE"
	AuditUpdate  AuditAction = "UPDATE"
	AuditDelete  AuditAction = "DELETE"
	AuditLogin   AuditAction = "LOGIN"
	AuditLogout  AuditAction = "LOGOUT"
	AuditApprove AuditAction = "APPROVE"
	AuditReject  AuditAction = "REJECT"
)

func (a AuditAction) IsValid() bool {
	switch a {
	case AuditCreate, AuditUpdate, AuditDelete, AuditLogin, AuditLogout, AuditApprove, AuditReject:
		return true
	}
	return false
}
