package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin         = "LOGIN"
	AuditActionRegister      = "REGISTER"
	AuditActionRegisterAdmin = "REGISTER_ADMIN"
	AuditActionStatusChange  = "USER_STATUS_CHANGE"
	AuditActionRoleChange    = "USER_ROLE_CHANGE"
	AuditActionUserDelete    = "USER_DELETE"
	AuditActionPassword      = "PASSWORD_CHANGE"

	AuditActionJobDelete        = "JOB_DELETE"
	AuditActionProductDelete    = "PRODUCT_DELETE"
	AuditActionReviewDelete     = "REVIEW_DELETE"
	AuditActionReviewVisibility = "REVIEW_VISIBILITY"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// RequestMeta identifies the client behind an audited action.
type RequestMeta struct {
	IP        string
	UserAgent string
}
