package cache

import "time"

// Snapshot is the cached projection of an identity.
type Snapshot struct {
	SchemaVersion uint8
	ID            string
	Email         string
	Confirmed     bool
	CreatedAt     int64
}

// CreatedTime returns CreatedAt as a UTC time.
func (s *Snapshot) CreatedTime() time.Time {
	if s.CreatedAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.CreatedAt, 0).UTC()
}
