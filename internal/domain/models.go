// Package domain defines the persistence models for delivery tracking and the
// read-only user directory, plus the hijack event shape consumed from the
// upstream feed. Persisted types are mapped with GORM.
package domain

import "time"

// DeliveryTrackingEntry records the notification and SMS state of one user
// for one escalation run. A run is identified by (HijackKey, RunToken).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - HijackKey: upstream hijack identifier; indexed together with RunToken.
//   - RunToken: random token minted each time the hijack key is observed.
//   - UserID / MobilePhone: recipient snapshot taken when the run started.
//   - NotificationReceived: flipped only by a device acknowledgement.
//   - SMSStatusCode: see SMSStatus for values and allowed transitions.
//   - SMSMessageID: gateway message id, set on submission acceptance/rejection.
//   - CreatedAt: insertion time (UTC); the retention sweep keys on it.
type DeliveryTrackingEntry struct {
	ID                   string    `json:"id"                    gorm:"type:char(36);primaryKey"`
	HijackKey            string    `json:"hijack_key"            gorm:"type:varchar(128);not null;index:idx_hj_run,priority:1"`
	RunToken             string    `json:"run_token"             gorm:"type:varchar(32);not null;index:idx_hj_run,priority:2"`
	UserID               string    `json:"user_id"               gorm:"type:varchar(64);not null;index"`
	MobilePhone          string    `json:"mobile_phone"          gorm:"type:varchar(32)"`
	NotificationReceived bool      `json:"notification_received" gorm:"not null;default:false"`
	SMSStatusCode        SMSStatus `json:"sms_status_code"       gorm:"not null;check:sms_status_code BETWEEN -3 AND 2"`
	SMSMessageID         *string   `json:"sms_message_id,omitempty" gorm:"type:varchar(64);index"`
	CreatedAt            time.Time `json:"created_at"            gorm:"not null;index"`
}

// TableName returns the database table name for DeliveryTrackingEntry.
func (DeliveryTrackingEntry) TableName() string { return "hj_notifications" }

// User is a notification recipient. The directory is owned by the dashboard
// application; this service only reads it.
type User struct {
	ID          string `json:"id"           gorm:"type:varchar(64);primaryKey"`
	Email       string `json:"email"        gorm:"type:varchar(255);uniqueIndex"`
	Role        string `json:"role"         gorm:"type:varchar(32)"`
	MobilePhone string `json:"mobile_phone" gorm:"type:varchar(32)"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// HijackEvent is a hijack record as returned by the upstream feed. Only Key
// and DetectedAt drive escalation; the rest is carried for logging.
type HijackEvent struct {
	Key        string    `json:"key"`
	DetectedAt time.Time `json:"time_detected"`
	TimeLast   time.Time `json:"time_last"`
	Prefix     string    `json:"prefix"`
	HijackAS   int64     `json:"hijack_as"`
	Type       string    `json:"type"`
	Active     bool      `json:"active"`
}
