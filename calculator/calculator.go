// Package calculator derives attendance figures from the store's collections.
package calculator

import "attendance-tracker-go/models"

// Calculate returns the attendance rate, the number of further attendances needed to
// reach goal, and the number of missed classes. It has no side effects.
func Calculate(classes []models.ClassRecord, attendance models.AttendanceLog, goal int) models.DerivedSummary {
	total := len(classes)
	if total == 0 {
		return models.DerivedSummary{}
	}

	attended, missed := 0, 0
	for _, status := range attendance {
		switch status {
		case models.StatusAttended:
			attended++
		case models.StatusMissed:
			missed++
		}
	}

	return models.DerivedSummary{
		AttendanceRate: float64(attended) / float64(total) * 100,
		ClassesNeeded:  requiredAttendances(goal, total) - attended,
		ClassesMissed:  missed,
	}
}

// requiredAttendances is ceil(goal/100 * total) in integer arithmetic, so that
// e.g. 70% of 10 yields exactly 7.
func requiredAttendances(goal, total int) int {
	return (goal*total + 99) / 100
}
