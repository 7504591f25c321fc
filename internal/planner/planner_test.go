package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
)

func date(value string) time.Time {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(v string) *string { return &v }

func slotRows(teacherID string, day models.DayOfWeek, period int, classID, subjectID string) models.WeeklyScheduleSlot {
	slot := models.WeeklyScheduleSlot{
		TeacherID: teacherID,
		YearID:    "2025-2026",
		DayOfWeek: day,
		Period:    period,
		ClassID:   classID,
	}
	if subjectID != "" {
		slot.SubjectID = strPtr(subjectID)
	}
	return slot
}

func baseSnapshot(slots []models.WeeklyScheduleSlot, assignments []models.TeachingAssignment, teachers ...string) Snapshot {
	directory := make([]models.TeacherRef, 0, len(teachers))
	for _, id := range teachers {
		directory = append(directory, models.TeacherRef{ID: id, FullName: "Teacher " + id})
	}
	return Snapshot{
		Directory:   directory,
		Schedules:   BuildWeekSchedules(slots),
		Assignments: BuildAssignmentIndex(assignments),
		OnLeave:     map[string]map[string]struct{}{},
	}
}

// 2026-01-05 is a Monday.
const monday = "2026-01-05"

func TestPlanSubjectTeacherPreferred(t *testing.T) {
	snap := baseSnapshot(
		[]models.WeeklyScheduleSlot{slotRows("T", models.Monday, 3, "5A", "MATH")},
		[]models.TeachingAssignment{{ClassID: "5A", SubjectID: "MATH", TeacherID: "S"}},
		"T", "X", "S",
	)

	tasks := Plan(snap, Request{LeaveRequestID: "lr1", TeacherID: "T", FromDate: date(monday), ToDate: date(monday)})
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "5A", task.ClassID)
	assert.Equal(t, 3, task.Period)
	assert.Equal(t, models.Monday, task.DayOfWeek)
	require.NotNil(t, task.SuggestedSubstituteID)
	// X comes first in directory order but S is the designated subject teacher.
	assert.Equal(t, "S", *task.SuggestedSubstituteID)
	assert.Equal(t, models.SuggestionSubstitute, task.SuggestedType)
	require.NotNil(t, task.SubjectID)
	assert.Equal(t, "MATH", *task.SubjectID)
}

func TestPlanLeisureWhenNoOneFree(t *testing.T) {
	slots := []models.WeeklyScheduleSlot{
		slotRows("T", models.Monday, 3, "5A", "MATH"),
		// The only other teacher is busy at the same slot.
		slotRows("S", models.Monday, 3, "6B", "SCIENCE"),
	}
	snap := baseSnapshot(slots,
		[]models.TeachingAssignment{{ClassID: "5A", SubjectID: "MATH", TeacherID: "S"}},
		"T", "S",
	)

	tasks := Plan(snap, Request{LeaveRequestID: "lr1", TeacherID: "T", FromDate: date(monday), ToDate: date(monday)})
	require.Len(t, tasks, 1)
	assert.Nil(t, tasks[0].SuggestedSubstituteID)
	assert.Equal(t, models.SuggestionLeisure, tasks[0].SuggestedType)
}

func TestPlanFirstFreeTeacherWhenNoSubjectMatch(t *testing.T) {
	snap := baseSnapshot(
		[]models.WeeklyScheduleSlot{slotRows("T", models.Monday, 1, "5A", "MATH")},
		nil,
		"T", "B", "C",
	)

	tasks := Plan(snap, Request{LeaveRequestID: "lr1", TeacherID: "T", FromDate: date(monday), ToDate: date(monday)})
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].SuggestedSubstituteID)
	assert.Equal(t, "B", *tasks[0].SuggestedSubstituteID)
	assert.Equal(t, models.SuggestionSubstitute, tasks[0].SuggestedType)
}

func TestPlanExcludesTeachersOnOverlappingLeave(t *testing.T) {
	snap := baseSnapshot(
		[]models.WeeklyScheduleSlot{slotRows("T", models.Monday, 1, "5A", "MATH")},
		nil,
		"T", "B", "C",
	)
	snap.OnLeave = BuildLeaveIndex([]models.LeaveRequest{
		{TeacherID: "B", FromDate: date(monday), ToDate: date(monday), Status: models.LeaveStatusApproved},
	}, date(monday), date(monday))

	tasks := Plan(snap, Request{LeaveRequestID: "lr1", TeacherID: "T", FromDate: date(monday), ToDate: date(monday)})
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].SuggestedSubstituteID)
	assert.Equal(t, "C", *tasks[0].SuggestedSubstituteID)
}

func TestPlanCoversWholeWindowInclusive(t *testing.T) {
	slots := []models.WeeklyScheduleSlot{
		slotRows("T", models.Monday, 1, "5A", "MATH"),
		slotRows("T", models.Monday, 4, "6B", "MATH"),
		slotRows("T", models.Friday, 2, "5A", "MATH"),
	}
	snap := baseSnapshot(slots, nil, "T", "B")

	// Friday 2026-01-02 through Monday 2026-01-05: the weekend produces no
	// tasks because the schedule has no Saturday or Sunday entries.
	tasks := Plan(snap, Request{LeaveRequestID: "lr1", TeacherID: "T", FromDate: date("2026-01-02"), ToDate: date(monday)})
	require.Len(t, tasks, 3)
	assert.Equal(t, models.Friday, tasks[0].DayOfWeek)
	assert.Equal(t, 2, tasks[0].Period)
	// Monday periods come out in ascending order.
	assert.Equal(t, 1, tasks[1].Period)
	assert.Equal(t, 4, tasks[2].Period)
	for _, task := range tasks {
		assert.Equal(t, "lr1", task.LeaveRequestID)
		assert.Equal(t, "T", task.AbsentTeacherID)
		assert.Equal(t, models.CoverageTaskPending, task.Status)
	}
}

func TestPlanNoScheduleYieldsNoTasks(t *testing.T) {
	snap := baseSnapshot(nil, nil, "T", "B")
	tasks := Plan(snap, Request{LeaveRequestID: "lr1", TeacherID: "T", FromDate: date(monday), ToDate: date(monday)})
	assert.Empty(t, tasks)
}

func TestPlanSkipsSlotsWithoutClass(t *testing.T) {
	slots := []models.WeeklyScheduleSlot{
		slotRows("T", models.Monday, 1, "", ""),
		slotRows("T", models.Monday, 2, "5A", ""),
	}
	snap := baseSnapshot(slots, nil, "T", "B")

	tasks := Plan(snap, Request{LeaveRequestID: "lr1", TeacherID: "T", FromDate: date(monday), ToDate: date(monday)})
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].Period)
	assert.Nil(t, tasks[0].SubjectID)
	// Without a subject there is no designated teacher, so tier 2 applies.
	require.NotNil(t, tasks[0].SuggestedSubstituteID)
	assert.Equal(t, "B", *tasks[0].SuggestedSubstituteID)
}

func TestPlanNeverSuggestsExcludedTeachers(t *testing.T) {
	slots := []models.WeeklyScheduleSlot{
		slotRows("T", models.Monday, 1, "5A", "MATH"),
		slotRows("busy", models.Monday, 1, "7C", "ART"),
	}
	snap := baseSnapshot(slots, nil, "T", "busy", "away", "free")
	snap.OnLeave = map[string]map[string]struct{}{
		monday: {"away": {}},
	}

	tasks := Plan(snap, Request{LeaveRequestID: "lr1", TeacherID: "T", FromDate: date(monday), ToDate: date(monday)})
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].SuggestedSubstituteID)
	assert.Equal(t, "free", *tasks[0].SuggestedSubstituteID)
}

func TestBuildLeaveIndexClampsToWindow(t *testing.T) {
	index := BuildLeaveIndex([]models.LeaveRequest{
		{TeacherID: "B", FromDate: date("2025-12-29"), ToDate: date("2026-01-10")},
	}, date("2026-01-02"), date("2026-01-04"))

	require.Len(t, index, 3)
	for _, key := range []string{"2026-01-02", "2026-01-03", "2026-01-04"} {
		_, ok := index[key]["B"]
		assert.True(t, ok, key)
	}
}
