package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleAdmin      = "ADMIN"
	RoleTechnician = "TECHNICIAN"
	RoleUser       = "USER"
)

// Device statuses.
const (
	DeviceActive      = "ACTIVE"
	DeviceInactive    = "INACTIVE"
	DeviceMaintenance = "MAINTENANCE"
	DeviceError       = "ERROR"
)

// Alert severities and statuses.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityError    = "ERROR"
	SeverityCritical = "CRITICAL"

	AlertActive       = "ACTIVE"
	AlertAcknowledged = "ACKNOWLEDGED"
	AlertResolved     = "RESOLVED"
)

// Activity types.
const (
	ActivityUser   = "USER"
	ActivitySystem = "SYSTEM"
	ActivityAlert  = "ALERT"
	ActivityError  = "ERROR"
)

type User struct {
	ID        uint       `gorm:"primaryKey"                             json:"id"`
	Username  string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email     string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"not null"                               json:"-"` // bcrypt hash, never serialised
	Role      string     `gorm:"type:varchar(20);default:'USER'"        json:"role"`
	FirstName string     `gorm:"type:varchar(100)"                      json:"firstName"`
	LastName  string     `gorm:"type:varchar(100)"                      json:"lastName"`
	Phone     string     `gorm:"type:varchar(30)"                       json:"phone"`
	IsActive  bool       `gorm:"default:true"                           json:"isActive"`
	LastLogin *time.Time `                                              json:"lastLogin"`
	CreatedAt time.Time  `                                              json:"createdAt"`
	UpdatedAt time.Time  `                                              json:"updatedAt"`
}

// Device is one monitored cooling unit.
type Device struct {
	ID                  uint           `gorm:"primaryKey"                             json:"id"`
	DeviceID            string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"deviceId"` // external identifier, e.g. serial number
	DeviceName          string         `gorm:"not null"                               json:"deviceName"`
	DeviceType          string         `gorm:"type:varchar(100);not null"             json:"deviceType"`
	Status              string         `gorm:"type:varchar(20);default:'ACTIVE'"      json:"status"`
	OwnerName           string         `gorm:"type:varchar(255);not null"             json:"ownerName"`
	PhoneNumber         string         `gorm:"type:varchar(30)"                       json:"phoneNumber"`
	InstallationDate    time.Time      `                                              json:"installationDate"`
	InstallationAddress string         `gorm:"type:text"                              json:"installationAddress"`
	WarrantyMonths      int            `gorm:"default:12"                             json:"warrantyMonths"`
	LocationLat         *float64       `                                              json:"locationLat"`
	LocationLng         *float64       `                                              json:"locationLng"`
	CreatedAt           time.Time      `                                              json:"createdAt"`
	UpdatedAt           time.Time      `                                              json:"updatedAt"`
	DeletedAt           gorm.DeletedAt `gorm:"index"                                  json:"-"`
	SensorData          []SensorData   `gorm:"foreignKey:DeviceRef"                   json:"-"`
	Alerts              []Alert        `gorm:"foreignKey:DeviceRef"                   json:"-"`
}

// SensorData is one reading from a device. All channels are optional; a
// reading may carry any subset.
type SensorData struct {
	ID                uint      `gorm:"primaryKey"       json:"id"`
	DeviceRef         uint      `gorm:"index;not null"   json:"deviceId"`
	TempColdStorage   *float64  `                        json:"tempColdStorage"`
	TempEnvironment   *float64  `                        json:"tempEnvironment"`
	TempSolution      *float64  `                        json:"tempSolution"`
	PressureSuction   *float64  `                        json:"pressureSuction"`
	PressureDischarge *float64  `                        json:"pressureDischarge"`
	SuperheatCurrent  *float64  `                        json:"superheatCurrent"`
	VoltageA          *float64  `                        json:"voltageA"`
	CurrentA          *float64  `                        json:"currentA"`
	Timestamp         time.Time `gorm:"index"            json:"timestamp"`
}

type Alert struct {
	ID        uint      `gorm:"primaryKey"                        json:"id"`
	DeviceRef uint      `gorm:"index;not null"                    json:"deviceId"`
	Severity  string    `gorm:"type:varchar(20);not null"         json:"severity"`
	Message   string    `gorm:"type:text;not null"                json:"message"`
	Status    string    `gorm:"type:varchar(20);default:'ACTIVE'" json:"status"`
	CreatedAt time.Time `                                         json:"createdAt"`
	UpdatedAt time.Time `                                         json:"updatedAt"`
}

// Activity is one audit-log entry. UserRef/DeviceRef are optional: system
// events carry neither.
type Activity struct {
	ID        uint           `gorm:"primaryKey"                json:"id"`
	UserRef   *uint          `gorm:"index"                     json:"userId"`
	DeviceRef *uint          `gorm:"index"                     json:"deviceId"`
	Action    string         `gorm:"type:varchar(255);not null" json:"action"`
	Type      string         `gorm:"type:varchar(20);not null" json:"type"`
	Severity  string         `gorm:"type:varchar(20);not null" json:"severity"`
	Details   datatypes.JSON `gorm:"type:text"                 json:"details,omitempty"`
	Timestamp time.Time      `gorm:"index"                     json:"timestamp"`
}
