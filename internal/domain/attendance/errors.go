package attendance

import "errors"

// Attendance domain errors
var (
	ErrAttendanceNotFound         = errors.New("attendance record not found")
	ErrAttendanceAlreadyProcessed = errors.New("attendance has already been approved or rejected")
)
