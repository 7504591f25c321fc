package models

import "time"

// DayOfWeek names a school day the way weekly schedules key their slots.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// Valid returns true when the day is a supported value.
func (d DayOfWeek) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	default:
		return false
	}
}

// DayOfWeekFromTime maps a calendar date to its schedule day name.
func DayOfWeekFromTime(t time.Time) DayOfWeek {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// WeeklyScheduleSlot is one period of a teacher's weekly timetable.
type WeeklyScheduleSlot struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	YearID    string    `db:"year_id" json:"year_id"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	Period    int       `db:"period" json:"period"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID *string   `db:"subject_id" json:"subject_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WeeklyScheduleFilter scopes schedule listing queries.
type WeeklyScheduleFilter struct {
	TeacherID string
	YearID    string
	DayOfWeek DayOfWeek
}
