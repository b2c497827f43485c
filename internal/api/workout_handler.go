package api

import (
	"errors"
	"net/http"
	"time"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutHandler serves the set-logging endpoints and the member's
// workout history views.
type WorkoutHandler struct {
	workoutService service.WorkoutService
}

func NewWorkoutHandler(workoutService service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

// --- Request/Response Structs ---

type LogSetRequest struct {
	ExerciseName string  `json:"exercise_name" binding:"required"`
	BodyPart     string  `json:"body_part" binding:"required"`
	Equipment    string  `json:"equipment" binding:"required"`
	Repetitions  int     `json:"repetitions" binding:"required"`
	WeightKg     float64 `json:"weight_kg"`
	DurationSec  int     `json:"duration_sec" binding:"required"`
	Calories     int     `json:"calories"`
}

type AddSetRequest struct {
	Repetitions int     `json:"repetitions" binding:"required"`
	WeightKg    float64 `json:"weight_kg"`
	DurationSec int     `json:"duration_sec" binding:"required"`
	Calories    int     `json:"calories"`
}

type UpdateSetRequest struct {
	Repetitions *int     `json:"repetitions"`
	WeightKg    *float64 `json:"weight_kg"`
	DurationSec *int     `json:"duration_sec"`
	Calories    *int     `json:"calories"`
}

type CompletionRequest struct {
	IsCompleted *bool `json:"is_completed" binding:"required"`
}

type SetResponse struct {
	ID          string    `json:"id"`
	SetNumber   int       `json:"set_number"`
	Repetitions int       `json:"repetitions"`
	WeightKg    float64   `json:"weight_kg"`
	DurationSec int       `json:"duration_sec"`
	Calories    int       `json:"calories"`
	CompletedAt time.Time `json:"completed_at"`
}

// SetResultResponse is a mutated set with the refreshed totals on both
// parent levels.
type SetResultResponse struct {
	Set             SetResponse            `json:"set"`
	WorkoutExercise WorkoutExerciseSummary `json:"workout_exercise"`
	DailyWorkout    DailyWorkoutSummary    `json:"daily_workout"`
}

type WorkoutExerciseSummary struct {
	ID               string `json:"id"`
	ExerciseName     string `json:"exercise_name"`
	BodyPart         string `json:"body_part"`
	Equipment        string `json:"equipment"`
	OrderNumber      int    `json:"order_number"`
	SetCount         int    `json:"set_count"`
	TotalDurationSec int    `json:"total_duration_sec"`
	CaloriesBurned   int    `json:"calories_burned"`
}

type DailyWorkoutSummary struct {
	ID               string `json:"id"`
	WorkoutDate      string `json:"workout_date"`
	TotalDurationSec int    `json:"total_duration_sec"`
	TotalCalories    int    `json:"total_calories"`
	IsCompleted      bool   `json:"is_completed"`
}

// ExerciseRecordResponse is one exercise group in the history view.
type ExerciseRecordResponse struct {
	WorkoutExerciseSummary
	Sets []SetResponse `json:"sets"`
}

type WorkoutRecordResponse struct {
	DailyWorkoutSummary
	Exercises []ExerciseRecordResponse `json:"exercises"`
}

// SetRowResponse is the flat per-set row of a member's history.
type SetRowResponse struct {
	SetID           string    `json:"set_id"`
	ExerciseName    string    `json:"exercise_name"`
	SetCount        int       `json:"set_count"`
	TotalDuration   int       `json:"total_duration_sec"`
	CaloriesBurned  int       `json:"calories_burned"`
	LoggedByTrainer bool      `json:"logged_by_trainer"`
	CompletedAt     time.Time `json:"completed_at"`
}

// --- Handler Methods ---

// LogSet handles POST /api/members/:memberId/workout-sets — the full
// get-or-create path down to the appended set.
func (h *WorkoutHandler) LogSet(c *gin.Context) {
	actorID, memberID, ok := h.actorAndMember(c)
	if !ok {
		return
	}

	var req LogSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.workoutService.LogSet(c.Request.Context(), actorID, memberID, service.LogSetInput{
		ExerciseName: req.ExerciseName,
		BodyPart:     req.BodyPart,
		Equipment:    req.Equipment,
		Repetitions:  req.Repetitions,
		WeightKg:     req.WeightKg,
		DurationSec:  req.DurationSec,
		Calories:     req.Calories,
	})
	if err != nil {
		handleWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapSetResultToResponse(result))
}

// AddSet handles POST .../workout-exercises/:workoutExerciseId/sets —
// appending to an existing exercise entry.
func (h *WorkoutHandler) AddSet(c *gin.Context) {
	actorID, memberID, ok := h.actorAndMember(c)
	if !ok {
		return
	}
	workoutExerciseID, err := primitive.ObjectIDFromHex(c.Param("workoutExerciseId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workout exercise ID format")
		return
	}

	var req AddSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.workoutService.AddSet(c.Request.Context(), actorID, memberID, workoutExerciseID, service.SetInput{
		Repetitions: req.Repetitions,
		WeightKg:    req.WeightKg,
		DurationSec: req.DurationSec,
		Calories:    req.Calories,
	})
	if err != nil {
		handleWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapSetResultToResponse(result))
}

// UpdateSet handles PATCH .../workout-exercises/:workoutExerciseId/sets/:setId.
func (h *WorkoutHandler) UpdateSet(c *gin.Context) {
	actorID, memberID, ok := h.actorAndMember(c)
	if !ok {
		return
	}
	workoutExerciseID, setID, ok := h.exerciseAndSet(c)
	if !ok {
		return
	}

	var req UpdateSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.workoutService.UpdateSet(c.Request.Context(), actorID, memberID, workoutExerciseID, setID, service.SetPatch{
		Repetitions: req.Repetitions,
		WeightKg:    req.WeightKg,
		DurationSec: req.DurationSec,
		Calories:    req.Calories,
	})
	if err != nil {
		handleWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapSetResultToResponse(result))
}

// DeleteSet handles DELETE .../workout-exercises/:workoutExerciseId/sets/:setId.
func (h *WorkoutHandler) DeleteSet(c *gin.Context) {
	actorID, memberID, ok := h.actorAndMember(c)
	if !ok {
		return
	}
	workoutExerciseID, setID, ok := h.exerciseAndSet(c)
	if !ok {
		return
	}

	result, err := h.workoutService.DeleteSet(c.Request.Context(), actorID, memberID, workoutExerciseID, setID)
	if err != nil {
		handleWorkoutError(c, err)
		return
	}

	resp := MapSetResultToResponse(result)
	c.JSON(http.StatusOK, gin.H{
		"message":          "set deleted",
		"workout_exercise": resp.WorkoutExercise,
		"daily_workout":    resp.DailyWorkout,
	})
}

// SetCompletion handles PATCH /api/members/:memberId/workouts/:workoutId/completion.
func (h *WorkoutHandler) SetCompletion(c *gin.Context) {
	actorID, memberID, ok := h.actorAndMember(c)
	if !ok {
		return
	}
	workoutID, err := primitive.ObjectIDFromHex(c.Param("workoutId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workout ID format")
		return
	}

	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.workoutService.SetCompleted(c.Request.Context(), actorID, memberID, workoutID, *req.IsCompleted); err != nil {
		handleWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"is_completed": *req.IsCompleted})
}

// GetRecords handles GET /api/members/:memberId/records with an optional
// ?date=YYYY-MM-DD filter.
func (h *WorkoutHandler) GetRecords(c *gin.Context) {
	actorID, memberID, ok := h.actorAndMember(c)
	if !ok {
		return
	}
	date, ok := h.parseDateFilter(c)
	if !ok {
		return
	}

	records, err := h.workoutService.MemberRecords(c.Request.Context(), actorID, memberID, date)
	if err != nil {
		handleWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": MapRecordsToResponse(records)})
}

// GetSetRows handles GET /api/members/:memberId/workout-sets — the flat
// per-set view of the same history.
func (h *WorkoutHandler) GetSetRows(c *gin.Context) {
	actorID, memberID, ok := h.actorAndMember(c)
	if !ok {
		return
	}
	date, ok := h.parseDateFilter(c)
	if !ok {
		return
	}

	rows, err := h.workoutService.MemberSetRows(c.Request.Context(), actorID, memberID, date)
	if err != nil {
		handleWorkoutError(c, err)
		return
	}

	resp := make([]SetRowResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, SetRowResponse{
			SetID:           row.SetID.Hex(),
			ExerciseName:    row.ExerciseName,
			SetCount:        row.SetNumber,
			TotalDuration:   row.DurationSec,
			CaloriesBurned:  row.CaloriesBurned,
			LoggedByTrainer: row.LoggedByTrainer,
			CompletedAt:     row.CompletedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sets": resp})
}

// --- Helpers ---

func (h *WorkoutHandler) actorAndMember(c *gin.Context) (actorID, memberID primitive.ObjectID, ok bool) {
	actorID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	memberID, err = primitive.ObjectIDFromHex(c.Param("memberId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid member ID format")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return actorID, memberID, true
}

func (h *WorkoutHandler) exerciseAndSet(c *gin.Context) (workoutExerciseID, setID primitive.ObjectID, ok bool) {
	workoutExerciseID, err := primitive.ObjectIDFromHex(c.Param("workoutExerciseId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workout exercise ID format")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	setID, err = primitive.ObjectIDFromHex(c.Param("setId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid set ID format")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return workoutExerciseID, setID, true
}

func (h *WorkoutHandler) parseDateFilter(c *gin.Context) (*time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date filter, expected YYYY-MM-DD")
		return nil, false
	}
	return &parsed, true
}

func handleWorkoutError(c *gin.Context, err error) {
	if fieldErrs, ok := service.AsFieldErrors(err); ok {
		abortWithFieldErrors(c, fieldErrs)
	} else if errors.Is(err, service.ErrLastSet) {
		abortWithError(c, http.StatusBadRequest, err.Error())
	} else if errors.Is(err, service.ErrPermissionDenied) {
		abortWithError(c, http.StatusForbidden, err.Error())
	} else if errors.Is(err, service.ErrWorkoutNotFound) || errors.Is(err, service.ErrSetNotFound) ||
		errors.Is(err, service.ErrMemberNotFound) || errors.Is(err, service.ErrUserNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
	} else if errors.Is(err, service.ErrStorageUnavailable) {
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	} else {
		abortWithError(c, http.StatusInternalServerError, "Failed to process workout request")
	}
}

// --- Mapping ---

func MapSetResultToResponse(result *service.SetResult) SetResultResponse {
	if result == nil {
		return SetResultResponse{}
	}
	return SetResultResponse{
		Set:             mapSet(result.Set),
		WorkoutExercise: mapWorkoutExercise(result.WorkoutExercise, result.Exercise.Name, result.Exercise.BodyPart, result.Exercise.Equipment),
		DailyWorkout:    mapDailyWorkout(result.DailyWorkout),
	}
}

// MapRecordsToResponse converts the grouped history to response DTOs.
func MapRecordsToResponse(records []service.WorkoutRecord) []WorkoutRecordResponse {
	resp := make([]WorkoutRecordResponse, 0, len(records))
	for _, record := range records {
		out := WorkoutRecordResponse{
			DailyWorkoutSummary: mapDailyWorkout(record.DailyWorkout),
			Exercises:           make([]ExerciseRecordResponse, 0, len(record.Exercises)),
		}
		for _, entry := range record.Exercises {
			group := ExerciseRecordResponse{
				WorkoutExerciseSummary: mapWorkoutExercise(
					entry.WorkoutExercise, entry.Exercise.Name, entry.Exercise.BodyPart, entry.Exercise.Equipment,
				),
				Sets: make([]SetResponse, 0, len(entry.Sets)),
			}
			for _, set := range entry.Sets {
				group.Sets = append(group.Sets, mapSet(set))
			}
			out.Exercises = append(out.Exercises, group)
		}
		resp = append(resp, out)
	}
	return resp
}

func mapSet(set domain.ExerciseSet) SetResponse {
	return SetResponse{
		ID:          set.ID.Hex(),
		SetNumber:   set.SetNumber,
		Repetitions: set.Repetitions,
		WeightKg:    set.WeightKg,
		DurationSec: set.DurationSec,
		Calories:    set.Calories,
		CompletedAt: set.CompletedAt,
	}
}

func mapWorkoutExercise(entry domain.WorkoutExercise, name, bodyPart, equipment string) WorkoutExerciseSummary {
	return WorkoutExerciseSummary{
		ID:               entry.ID.Hex(),
		ExerciseName:     name,
		BodyPart:         bodyPart,
		Equipment:        equipment,
		OrderNumber:      entry.OrderNumber,
		SetCount:         entry.TotalSets,
		TotalDurationSec: entry.TotalDurationSec,
		CaloriesBurned:   entry.TotalCalories,
	}
}

func mapDailyWorkout(dw domain.DailyWorkout) DailyWorkoutSummary {
	return DailyWorkoutSummary{
		ID:               dw.ID.Hex(),
		WorkoutDate:      dw.Date.Format("2006-01-02"),
		TotalDurationSec: dw.TotalDurationSec,
		TotalCalories:    dw.TotalCalories,
		IsCompleted:      dw.IsCompleted,
	}
}
