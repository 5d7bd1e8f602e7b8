package enums

import "fmt"

// AuditAction names the stock mutation an audit entry records.
type AuditAction string

const (
	AuditActionAdd      AuditAction = "add"
	AuditActionIssue    AuditAction = "issue"
	AuditActionReturn   AuditAction = "return"
	AuditActionUpdate   AuditAction = "update"
	AuditActionDelete   AuditAction = "delete"
	AuditActionTransfer AuditAction = "transfer"
)

var validAuditActions = []AuditAction{
	AuditActionAdd,
	AuditActionIssue,
	AuditActionReturn,
	AuditActionUpdate,
	AuditActionDelete,
	AuditActionTransfer,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw strings into AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
