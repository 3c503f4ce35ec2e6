package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Name         string    `gorm:"not null"                 json:"name"`
	Role         string    `gorm:"not null"                 json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Company      string    `json:"company,omitempty"`
	Location     string    `json:"location,omitempty"`
	IsActive     bool      `gorm:"default:true"             json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// RefreshToken is one ledger row per issued refresh token. The raw JWT is
// never stored, only its sha256 hex.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey"           json:"id"`
	TokenHash string     `gorm:"uniqueIndex;not null" json:"-"`
	JTI       string     `gorm:"uniqueIndex;not null" json:"jti"`
	UserID    uint       `gorm:"index;not null"       json:"user_id"`
	ExpiresAt int64      `gorm:"not null"             json:"expires_at"`
	Revoked   bool       `gorm:"default:false"        json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// PasswordResetToken is a one-time credential. A consumed token keeps its row
// with used=true until pruned.
type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Email     string    `gorm:"index;not null"       json:"email"`
	TokenHash string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt int64     `gorm:"not null"             json:"expires_at"`
	Used      bool      `gorm:"default:false"        json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

type Job struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title         string    `gorm:"not null"                 json:"title"`
	Company       string    `gorm:"not null"                 json:"company"`
	Location      string    `gorm:"not null"                 json:"location"`
	JobType       string    `gorm:"not null"                 json:"job_type"`
	LocationType  string    `gorm:"not null;default:On-site" json:"location_type"`
	SalaryMin     int       `json:"salary_min"`
	SalaryMax     int       `json:"salary_max"`
	Description   string    `gorm:"not null"                 json:"description"`
	Skills        string    `json:"skills"`
	Experience    string    `json:"experience"`
	Status        string    `gorm:"not null;default:active"  json:"status"`
	EmployerID    uint      `gorm:"index;not null"           json:"employer_id"`
	EmployerEmail string    `gorm:"index"                    json:"employer_email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Application struct {
	ID          uint      `gorm:"primaryKey"               json:"id"`
	JobID       uint      `gorm:"index;not null"           json:"job_id"`
	CandidateID uint      `gorm:"index;not null"           json:"candidate_id"`
	FullName    string    `gorm:"not null"                 json:"full_name"`
	Email       string    `gorm:"not null"                 json:"email"`
	CoverLetter string    `json:"cover_letter"`
	ResumeURL   string    `json:"resume_url"`
	Status      string    `gorm:"not null;default:pending" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Company struct {
	ID          uint      `gorm:"primaryKey"           json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Website     string    `json:"website"`
	Industry    string    `json:"industry"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
