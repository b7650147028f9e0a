package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type User struct {
	ID           uuid.UUID      `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"password_hash"`
	Name         string         `json:"name"`
	CompanyName  sql.NullString `json:"company_name"`
	Role         string         `json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Subscription struct {
	ID                 uuid.UUID      `json:"id"`
	UserID             uuid.UUID      `json:"user_id"`
	Plan               string         `json:"plan"`
	Status             string         `json:"status"`
	PendingPlan        sql.NullString `json:"pending_plan"`
	BillingKey         sql.NullString `json:"billing_key"`
	CustomerKey        sql.NullString `json:"customer_key"`
	CurrentPeriodStart sql.NullTime   `json:"current_period_start"`
	CurrentPeriodEnd   sql.NullTime   `json:"current_period_end"`
	Version            int32          `json:"version"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type Coupon struct {
	ID           uuid.UUID     `json:"id"`
	Code         string        `json:"code"`
	Plan         string        `json:"plan"`
	DurationDays int32         `json:"duration_days"`
	RedeemedBy   uuid.NullUUID `json:"redeemed_by"`
	RedeemedAt   sql.NullTime  `json:"redeemed_at"`
	ExpiresAt    sql.NullTime  `json:"expires_at"`
	CreatedBy    uuid.NullUUID `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
}

type GroupPolicy struct {
	GroupName                string    `json:"group_name"`
	MonthlyProjectLimit      int32     `json:"monthly_project_limit"`
	MonthlyPresentationLimit int32     `json:"monthly_presentation_limit"`
	Description              string    `json:"description"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

type UsageLog struct {
	UserID    uuid.UUID `json:"user_id"`
	YearMonth string    `json:"year_month"`
	Kind      string    `json:"kind"`
	Count     int32     `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PaymentLog struct {
	ID            uuid.UUID             `json:"id"`
	UserID        uuid.UUID             `json:"user_id"`
	OrderID       string                `json:"order_id"`
	Amount        int64                 `json:"amount"`
	Currency      string                `json:"currency"`
	Status        string                `json:"status"`
	Plan          string                `json:"plan"`
	Method        string                `json:"method"`
	TransactionID sql.NullString        `json:"transaction_id"`
	Description   string                `json:"description"`
	FailureReason sql.NullString        `json:"failure_reason"`
	Metadata      pqtype.NullRawMessage `json:"metadata"`
	PaidAt        sql.NullTime          `json:"paid_at"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type PlanPrice struct {
	Plan      string    `json:"plan"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	OrderName string    `json:"order_name"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Project struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	Title        string         `json:"title"`
	Status       string         `json:"status"`
	FileKey      string         `json:"file_key"`
	FileName     string         `json:"file_name"`
	ContentType  string         `json:"content_type"`
	FileSize     int64          `json:"file_size"`
	Analysis     sql.NullString `json:"analysis"`
	ErrorMessage sql.NullString `json:"error_message"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type Presentation struct {
	ID           uuid.UUID      `json:"id"`
	ProjectID    uuid.UUID      `json:"project_id"`
	UserID       uuid.UUID      `json:"user_id"`
	Status       string         `json:"status"`
	Content      sql.NullString `json:"content"`
	ErrorMessage sql.NullString `json:"error_message"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type Report struct {
	ID           uuid.UUID      `json:"id"`
	ProjectID    uuid.UUID      `json:"project_id"`
	UserID       uuid.UUID      `json:"user_id"`
	Status       string         `json:"status"`
	FileKey      sql.NullString `json:"file_key"`
	FileSize     sql.NullInt64  `json:"file_size"`
	ErrorMessage sql.NullString `json:"error_message"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  sql.NullTime   `json:"completed_at"`
}

type Job struct {
	ID           uuid.UUID       `json:"id"`
	JobType      string          `json:"job_type"`
	Payload      []byte          `json:"payload"`
	Status       string          `json:"status"`
	Priority     int32           `json:"priority"`
	Attempts     int32           `json:"attempts"`
	MaxAttempts  int32           `json:"max_attempts"`
	ScheduledAt  time.Time       `json:"scheduled_at"`
	StartedAt    sql.NullTime    `json:"started_at"`
	CompletedAt  sql.NullTime    `json:"completed_at"`
	ErrorMessage sql.NullString  `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
}
