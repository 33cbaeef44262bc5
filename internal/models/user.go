package models

import "time"

// UserRole represents the available roles. Every user holds exactly one.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleInstitution UserRole = "INSTITUTION"
	RoleUser        UserRole = "USER"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstitution, RoleUser:
		return true
	}
	return false
}

// ApprovalStatus is the administrator-controlled gate on write actions.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "PENDING"
	StatusApproved ApprovalStatus = "APPROVED"
	StatusRejected ApprovalStatus = "REJECTED"
)

// Language is a user's display language preference.
type Language string

const (
	LanguageFR Language = "FR"
	LanguageKH Language = "KH"
)

// User represents an account stored in the users table.
type User struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Email           string         `db:"email" json:"email"`
	PasswordHash    string         `db:"password_hash" json:"-"`
	Role            UserRole       `db:"role" json:"role"`
	Status          ApprovalStatus `db:"status" json:"status"`
	Language        Language       `db:"language" json:"language"`
	InstitutionName *string        `db:"institution_name" json:"institutionName,omitempty"`
	Bio             string         `db:"bio" json:"bio"`
	Location        string         `db:"location" json:"location"`
	Phone           string         `db:"phone" json:"phone"`
	Avatar          string         `db:"avatar" json:"avatar,omitempty"`
	IsVerified      bool           `db:"is_verified" json:"isVerified"`
	LastLogin       *time.Time     `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanWrite reports whether the approval gate lets the user perform domain writes.
// Administrators bypass the gate.
func (u *User) CanWrite() bool {
	if u == nil {
		return false
	}
	return u.Role == RoleAdmin || u.Status == StatusApproved
}

// DisplayName is the name stamped onto listings owned by the user.
func (u *User) DisplayName() string {
	if u.InstitutionName != nil && *u.InstitutionName != "" {
		return *u.InstitutionName
	}
	return u.Name
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role   *UserRole
	Status *ApprovalStatus
	Search string
	ListParams
}

// UserProfile is a user enriched with their visible review aggregate.
type UserProfile struct {
	User
	Rating RatingSummary `json:"rating"`
}

// UserOverview aggregates account counts for the admin dashboard.
type UserOverview struct {
	TotalUsers       int `db:"total_users" json:"totalUsers"`
	PendingUsers     int `db:"pending_users" json:"pendingUsers"`
	ApprovedUsers    int `db:"approved_users" json:"approvedUsers"`
	InstitutionUsers int `db:"institution_users" json:"institutionUsers"`
	RegularUsers     int `db:"regular_users" json:"regularUsers"`
	RecentUsers      int `db:"recent_users" json:"recentUsers"`
}
