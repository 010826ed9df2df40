package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID            int64      `json:"_id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Phone         string     `json:"phone" db:"phone"` // normalized Kenyan format 2547XXXXXXXX
	PasswordHash  string     `json:"-" db:"password_hash"`
	Role          string     `json:"role" db:"role"`
	RefreshToken  string     `json:"-" db:"refresh_token"`
	ResetCodeHash string     `json:"-" db:"reset_code_hash"`
	ResetExpires  *time.Time `json:"-" db:"reset_expires"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
