package model

import (
	"database/sql/driver"
	"fmt"
)

func scanSmallInt(src any) (int8, error) {
	switch v := src.(type) {
	case int64:
		return int8(v), nil
	case int32:
		return int8(v), nil
	case int16:
		return int8(v), nil
	case []byte:
		var n int8
		_, err := fmt.Sscan(string(v), &n)
		return n, err
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot scan %T into a status", src)
	}
}

// Value stores the status as its integer code
func (s JobPostStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

// Scan reads the integer code
func (s *JobPostStatus) Scan(src any) error {
	n, err := scanSmallInt(src)
	*s = JobPostStatus(n)
	return err
}

// Value stores the status as its integer code
func (s ApplicationStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

// Scan reads the integer code
func (s *ApplicationStatus) Scan(src any) error {
	n, err := scanSmallInt(src)
	*s = ApplicationStatus(n)
	return err
}

// Value stores the status as its integer code
func (s RegistrationStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

// Scan reads the integer code
func (s *RegistrationStatus) Scan(src any) error {
	n, err := scanSmallInt(src)
	*s = RegistrationStatus(n)
	return err
}
