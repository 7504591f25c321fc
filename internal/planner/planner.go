// Package planner computes substitute-teacher coverage recommendations for
// an approved leave request. It is a pure function over read-only snapshots
// of the directory, schedules, assignments and overlapping leaves, so data
// access stays in the calling service and the ranking logic is testable in
// isolation.
package planner

import (
	"sort"
	"time"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
)

// DateLayout keys per-date lookups in snapshots.
const DateLayout = "2006-01-02"

// SlotRef is the class/subject pair a teacher holds at one day/period.
type SlotRef struct {
	ClassID   string
	SubjectID string
}

// WeekSchedule indexes one teacher's timetable by day name, then period.
type WeekSchedule map[models.DayOfWeek]map[int]SlotRef

// Snapshot is the read-only view of the school state a single planning pass
// works from. No locks or version checks are taken: a schedule changed
// concurrently with planning may yield a recommendation based on a stale view.
type Snapshot struct {
	// Directory lists active teachers in stable iteration order. Within a
	// priority tier the first matching entry wins, with no secondary ranking.
	Directory []models.TeacherRef
	// Schedules maps teacher id to that teacher's weekly timetable.
	Schedules map[string]WeekSchedule
	// Assignments maps class id to subject id to the designated teacher.
	Assignments map[string]map[string]string
	// OnLeave maps a date key (DateLayout) to the set of teacher ids with
	// an other approved leave covering that date.
	OnLeave map[string]map[string]struct{}
}

// Request identifies the approved leave to plan coverage for. Both endpoint
// dates count as absence days.
type Request struct {
	LeaveRequestID string
	TeacherID      string
	FromDate       time.Time
	ToDate         time.Time
}

// BuildWeekSchedules indexes raw schedule rows into per-teacher timetables.
func BuildWeekSchedules(slots []models.WeeklyScheduleSlot) map[string]WeekSchedule {
	schedules := make(map[string]WeekSchedule)
	for _, slot := range slots {
		week, ok := schedules[slot.TeacherID]
		if !ok {
			week = make(WeekSchedule)
			schedules[slot.TeacherID] = week
		}
		periods, ok := week[slot.DayOfWeek]
		if !ok {
			periods = make(map[int]SlotRef)
			week[slot.DayOfWeek] = periods
		}
		ref := SlotRef{ClassID: slot.ClassID}
		if slot.SubjectID != nil {
			ref.SubjectID = *slot.SubjectID
		}
		periods[slot.Period] = ref
	}
	return schedules
}

// BuildAssignmentIndex indexes assignment rows by class, then subject.
func BuildAssignmentIndex(assignments []models.TeachingAssignment) map[string]map[string]string {
	index := make(map[string]map[string]string)
	for _, a := range assignments {
		subjects, ok := index[a.ClassID]
		if !ok {
			subjects = make(map[string]string)
			index[a.ClassID] = subjects
		}
		subjects[a.SubjectID] = a.TeacherID
	}
	return index
}

// BuildLeaveIndex expands approved leave intervals into a per-date set of
// absent teacher ids, clamped to the [from, to] planning window.
func BuildLeaveIndex(leaves []models.LeaveRequest, from, to time.Time) map[string]map[string]struct{} {
	index := make(map[string]map[string]struct{})
	from = truncateDate(from)
	to = truncateDate(to)
	for _, leave := range leaves {
		start := truncateDate(leave.FromDate)
		if start.Before(from) {
			start = from
		}
		end := truncateDate(leave.ToDate)
		if end.After(to) {
			end = to
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			key := d.Format(DateLayout)
			set, ok := index[key]
			if !ok {
				set = make(map[string]struct{})
				index[key] = set
			}
			set[leave.TeacherID] = struct{}{}
		}
	}
	return index
}

// Plan walks every calendar date of the leave window inclusive, including
// weekends and holidays; days without schedule entries simply produce no
// tasks. For each scheduled period with a known class it emits one coverage
// task carrying the best suggestion found:
//
//  1. the designated subject teacher for that class, if free
//  2. otherwise the first free teacher in directory order
//  3. otherwise no one, and the period is marked leisure
func Plan(snap Snapshot, req Request) []models.CoverageTask {
	week := snap.Schedules[req.TeacherID]
	if len(week) == 0 {
		return nil
	}

	var tasks []models.CoverageTask
	from := truncateDate(req.FromDate)
	to := truncateDate(req.ToDate)
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		day := models.DayOfWeekFromTime(date)
		periods := week[day]
		if len(periods) == 0 {
			continue
		}

		for _, period := range sortedPeriods(periods) {
			slot := periods[period]
			if slot.ClassID == "" {
				continue
			}

			pool := candidatePool(snap, req.TeacherID, date, day, period)
			task := models.CoverageTask{
				LeaveRequestID:  req.LeaveRequestID,
				AbsentTeacherID: req.TeacherID,
				Date:            date,
				DayOfWeek:       day,
				Period:          period,
				ClassID:         slot.ClassID,
				Status:          models.CoverageTaskPending,
			}
			if slot.SubjectID != "" {
				subject := slot.SubjectID
				task.SubjectID = &subject
			}

			if pick := resolveSuggestion(snap, slot, pool); pick != "" {
				substitute := pick
				task.SuggestedSubstituteID = &substitute
				task.SuggestedType = models.SuggestionSubstitute
			} else {
				task.SuggestedType = models.SuggestionLeisure
			}

			tasks = append(tasks, task)
		}
	}

	return tasks
}

// candidatePool filters the directory down to teachers free at the given
// slot: not the absent teacher, not on another approved leave that date,
// and not already teaching at that day/period themselves. Directory order
// is preserved.
func candidatePool(snap Snapshot, absentID string, date time.Time, day models.DayOfWeek, period int) []string {
	onLeave := snap.OnLeave[date.Format(DateLayout)]

	var pool []string
	for _, teacher := range snap.Directory {
		if teacher.ID == absentID {
			continue
		}
		if _, away := onLeave[teacher.ID]; away {
			continue
		}
		if week := snap.Schedules[teacher.ID]; week != nil {
			if _, busy := week[day][period]; busy {
				continue
			}
		}
		pool = append(pool, teacher.ID)
	}
	return pool
}

// resolveSuggestion applies the priority tiers to the candidate pool and
// returns the chosen substitute id, or "" when the pool is empty.
func resolveSuggestion(snap Snapshot, slot SlotRef, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	if slot.SubjectID != "" {
		if designated, ok := snap.Assignments[slot.ClassID][slot.SubjectID]; ok {
			for _, id := range pool {
				if id == designated {
					return id
				}
			}
		}
	}
	return pool[0]
}

func sortedPeriods(periods map[int]SlotRef) []int {
	keys := make([]int, 0, len(periods))
	for period := range periods {
		keys = append(keys, period)
	}
	sort.Ints(keys)
	return keys
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
