package ledger

import "time"

// CycleWindow returns the active salary-cycle window [start, end) for the
// given reference time. The window is bounded by the configured salary
// day-of-month, not by calendar months: on or after the salary day the
// window starts that day; before it, the window started on the previous
// month's salary day. A transaction dated exactly on the salary day belongs
// to the period starting that day.
func CycleWindow(now time.Time, salaryDay int) (start, end time.Time) {
	if salaryDay < 1 {
		salaryDay = 1
	}
	if salaryDay > 28 {
		// Clamp so the boundary exists in every month.
		salaryDay = 28
	}

	year, month, day := now.Date()
	if day >= salaryDay {
		start = time.Date(year, month, salaryDay, 0, 0, 0, 0, now.Location())
	} else {
		start = time.Date(year, month, salaryDay, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	}
	end = start.AddDate(0, 1, 0)
	return start, end
}
