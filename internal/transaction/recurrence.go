package transaction

import "time"

// Occurrence returns the n-th repetition of start under r. Monthly and yearly
// repetitions keep the anchor day, clamped to the length of the target month.
func Occurrence(start time.Time, r Recurrence, n int) time.Time {
	switch r {
	case RecurrenceDaily:
		return start.AddDate(0, 0, n)
	case RecurrenceWeekly:
		return start.AddDate(0, 0, 7*n)
	case RecurrenceMonthly:
		return addMonthsClamped(start, n)
	case RecurrenceYearly:
		return addMonthsClamped(start, 12*n)
	}

	return start
}

// NextOccurrence returns the repetition that follows t.
func NextOccurrence(t time.Time, r Recurrence) time.Time {
	return Occurrence(t, r, 1)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, months, 0)

	day := min(t.Day(), daysIn(target.Year(), target.Month(), t.Location()))

	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Occurrences lists the dates a recurring template produces after its own date,
// up to and including until (or the template's end date, whichever is earlier).
func Occurrences(template *Transaction, until time.Time) []time.Time {
	if !template.IsRecurring || template.Recurrence == "" || template.Recurrence == RecurrenceNone {
		return nil
	}

	limit := until
	if template.RecurrenceEndDate != nil && template.RecurrenceEndDate.Before(limit) {
		limit = *template.RecurrenceEndDate
	}

	var dates []time.Time

	for n := 1; ; n++ {
		d := Occurrence(template.Date, template.Recurrence, n)
		if d.After(limit) {
			break
		}

		dates = append(dates, d)
	}

	return dates
}
