package domain

import (
	"fmt"
	"time"
)

// DepositStatus enumerates the catalog registration state of one article.
type DepositStatus uint8

const (
	StatusNotDeposited DepositStatus = iota
	StatusRegistered
	StatusFailed
	StatusMarkedRegistered
	StatusMarkedUnregistered
)

// String returns the persisted literal of the status.
func (s DepositStatus) String() string {
	switch s {
	case StatusNotDeposited:
		return "notDeposited"
	case StatusRegistered:
		return "registered"
	case StatusFailed:
		return "failed"
	case StatusMarkedRegistered:
		return "markedRegistered"
	case StatusMarkedUnregistered:
		return "markedUnregistered"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ParseDepositStatus converts a persisted literal back into a status. An empty
// literal means the article has never been observed and reads as NotDeposited.
func ParseDepositStatus(value string) (DepositStatus, error) {
	switch value {
	case "", "notDeposited":
		return StatusNotDeposited, nil
	case "registered":
		return StatusRegistered, nil
	case "failed":
		return StatusFailed, nil
	case "markedRegistered":
		return StatusMarkedRegistered, nil
	case "markedUnregistered":
		return StatusMarkedUnregistered, nil
	default:
		return 0, fmt.Errorf("unknown deposit status %q", value)
	}
}

// PendingStatuses lists the statuses that make an article a candidate for
// scheduled registration.
func PendingStatuses() []DepositStatus {
	return []DepositStatus{StatusMarkedUnregistered, StatusFailed, StatusNotDeposited}
}

// StatusRecord is the persisted deposit state of one article.
type StatusRecord struct {
	Status    DepositStatus
	LastError string
	UpdatedAt time.Time
}
