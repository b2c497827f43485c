package api

import (
	"errors"
	"net/http"

	"trainmate/api/internal/service"

	"github.com/gin-gonic/gin"
)

// ExerciseHandler serves the exercise catalog.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

type ExerciseResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"exercise_name"`
	BodyPart  string  `json:"body_part"`
	Equipment string  `json:"equipment"`
	METValue  float64 `json:"met_value"`
}

// ListExercises handles GET /api/exercises with an optional
// ?body_part= filter.
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	exercises, err := h.exerciseService.List(c.Request.Context(), c.Query("body_part"))
	if err != nil {
		if errors.Is(err, service.ErrStorageUnavailable) {
			abortWithError(c, http.StatusServiceUnavailable, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load exercise catalog")
		}
		return
	}

	resp := make([]ExerciseResponse, 0, len(exercises))
	for _, exercise := range exercises {
		resp = append(resp, ExerciseResponse{
			ID:        exercise.ID.Hex(),
			Name:      exercise.Name,
			BodyPart:  exercise.BodyPart,
			Equipment: exercise.Equipment,
			METValue:  exercise.METValue,
		})
	}
	c.JSON(http.StatusOK, gin.H{"exercises": resp, "count": len(resp)})
}
