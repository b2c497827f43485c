package api

import (
	"errors"
	"net/http"
	"strings"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemberHandler serves profile reads/updates, the trainer roster and the
// member detail view (which embeds the workout record summary).
type MemberHandler struct {
	memberService  service.MemberService
	trainerService service.TrainerService
	workoutService service.WorkoutService
}

func NewMemberHandler(
	memberService service.MemberService,
	trainerService service.TrainerService,
	workoutService service.WorkoutService,
) *MemberHandler {
	return &MemberHandler{
		memberService:  memberService,
		trainerService: trainerService,
		workoutService: workoutService,
	}
}

// --- Request/Response Structs ---

type ProfileResponse struct {
	User          UserResponse  `json:"user"`
	Age           *int          `json:"age,omitempty"`
	HeightCm      *float64      `json:"height_cm,omitempty"`
	WeightKg      *float64      `json:"weight_kg,omitempty"`
	BodyFatPct    *float64      `json:"body_fat_pct,omitempty"`
	MuscleMassKg  *float64      `json:"muscle_mass_kg,omitempty"`
	ProfileFilled bool          `json:"profile_filled"`
	ImageURL      string        `json:"image_url,omitempty"`
	MemberCount   *int          `json:"member_count,omitempty"`
	Trainer       *UserResponse `json:"trainer,omitempty"`
}

type UpdateProfileRequest struct {
	Age          *int     `json:"age"`
	HeightCm     *float64 `json:"height_cm"`
	WeightKg     *float64 `json:"weight_kg"`
	BodyFatPct   *float64 `json:"body_fat_pct"`
	MuscleMassKg *float64 `json:"muscle_mass_kg"`
}

type MemberListResponse struct {
	Members []UserResponse `json:"members"`
	Count   int            `json:"count"`
	Message string         `json:"message,omitempty"`
}

type AssignMemberResponse struct {
	MemberID  string `json:"member_id"`
	TrainerID string `json:"trainer_id"`
	Message   string `json:"message"`
}

type MemberDetailResponse struct {
	Profile ProfileResponse         `json:"profile"`
	Records []WorkoutRecordResponse `json:"records"`
}

// --- Handler Methods ---

// GetOwnProfile handles GET /api/members/profile.
func (h *MemberHandler) GetOwnProfile(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}
	h.respondWithProfile(c, userID)
}

// GetProfileByID handles GET /api/members/profile/:userId. Profiles are
// readable by any authenticated caller.
func (h *MemberHandler) GetProfileByID(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	h.respondWithProfile(c, userID)
}

func (h *MemberHandler) respondWithProfile(c *gin.Context, userID primitive.ObjectID) {
	view, err := h.memberService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(view))
}

// UpdateOwnProfile handles PATCH /api/members/profile. A JSON body patches
// the physical attributes; a multipart body replaces the profile image.
func (h *MemberHandler) UpdateOwnProfile(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.updateProfileImage(c, userID)
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	view, err := h.memberService.UpdateProfile(c.Request.Context(), userID, service.ProfilePatch{
		Age:          req.Age,
		HeightCm:     req.HeightCm,
		WeightKg:     req.WeightKg,
		BodyFatPct:   req.BodyFatPct,
		MuscleMassKg: req.MuscleMassKg,
	})
	if err != nil {
		h.handleProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(view))
}

func (h *MemberHandler) updateProfileImage(c *gin.Context, userID primitive.ObjectID) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Multipart request must include an 'image' file")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	view, err := h.memberService.UploadProfileImage(
		c.Request.Context(), userID, fileHeader.Filename, contentType, file, fileHeader.Size,
	)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapProfileToResponse(view))
}

// DeleteOwnAccount handles DELETE /api/members/profile. Removes the caller's
// account together with its profile and, by role, the workout history or
// the assignment edges on member profiles.
func (h *MemberHandler) DeleteOwnAccount(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	if err := h.memberService.DeleteAccount(c.Request.Context(), userID); err != nil {
		h.handleProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

// ListMembers handles GET /api/members. Trainers get their assigned
// roster; member callers get an empty list with an explanatory message
// rather than a 403.
func (h *MemberHandler) ListMembers(c *gin.Context) {
	callerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	list, err := h.trainerService.AssignedMembers(c.Request.Context(), callerID)
	if err != nil {
		if errors.Is(err, service.ErrTrainerNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrStorageUnavailable) {
			abortWithError(c, http.StatusServiceUnavailable, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load member list")
		}
		return
	}

	resp := MemberListResponse{
		Members: make([]UserResponse, 0, len(list.Members)),
		Count:   list.Count,
		Message: list.Message,
	}
	for i := range list.Members {
		resp.Members = append(resp.Members, MapUserToResponse(&list.Members[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// SearchMembers handles GET /api/members/search?q=... (trainer only).
func (h *MemberHandler) SearchMembers(c *gin.Context) {
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}

	members, err := h.trainerService.SearchAssignableMembers(c.Request.Context(), trainerID, c.Query("q"))
	if err != nil {
		if fieldErrs, ok := service.AsFieldErrors(err); ok {
			abortWithFieldErrors(c, fieldErrs)
		} else if errors.Is(err, service.ErrStorageUnavailable) {
			abortWithError(c, http.StatusServiceUnavailable, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to search members")
		}
		return
	}

	resp := make([]UserResponse, 0, len(members))
	for i := range members {
		resp = append(resp, MapUserToResponse(&members[i]))
	}
	c.JSON(http.StatusOK, gin.H{"members": resp, "count": len(resp)})
}

// AssignMember handles POST /api/members/:memberId/assign (trainer only).
func (h *MemberHandler) AssignMember(c *gin.Context) {
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}
	memberID, err := primitive.ObjectIDFromHex(c.Param("memberId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid member ID format")
		return
	}

	profile, err := h.trainerService.AssignMember(c.Request.Context(), trainerID, memberID)
	if err != nil {
		var assigned *service.AlreadyAssignedError
		if errors.As(err, &assigned) {
			abortWithError(c, http.StatusConflict, assigned.Error())
		} else if errors.Is(err, service.ErrMemberNotFound) || errors.Is(err, service.ErrTrainerNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrNotATrainer) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else if errors.Is(err, service.ErrNotAMember) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else if errors.Is(err, service.ErrStorageUnavailable) {
			abortWithError(c, http.StatusServiceUnavailable, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to assign member")
		}
		return
	}

	c.JSON(http.StatusOK, AssignMemberResponse{
		MemberID:  profile.UserID.Hex(),
		TrainerID: trainerID.Hex(),
		Message:   "member assigned",
	})
}

// GetMemberDetail handles GET /api/members/:memberId — the member's
// profile together with the grouped workout record summary.
func (h *MemberHandler) GetMemberDetail(c *gin.Context) {
	callerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to identify user from token")
		return
	}
	memberID, err := primitive.ObjectIDFromHex(c.Param("memberId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid member ID format")
		return
	}

	view, err := h.memberService.GetProfile(c.Request.Context(), memberID)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}

	records, err := h.workoutService.MemberRecords(c.Request.Context(), callerID, memberID, nil)
	if err != nil {
		handleWorkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, MemberDetailResponse{
		Profile: MapProfileToResponse(view),
		Records: MapRecordsToResponse(records),
	})
}

func (h *MemberHandler) handleProfileError(c *gin.Context, err error) {
	if fieldErrs, ok := service.AsFieldErrors(err); ok {
		abortWithFieldErrors(c, fieldErrs)
	} else if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrProfileNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
	} else if errors.Is(err, service.ErrStorageUnavailable) {
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	} else {
		abortWithError(c, http.StatusInternalServerError, "Failed to process profile request")
	}
}

// MapProfileToResponse converts a profile view to its response DTO.
func MapProfileToResponse(view *service.ProfileView) ProfileResponse {
	if view == nil {
		return ProfileResponse{}
	}

	resp := ProfileResponse{
		User:          MapUserToResponse(&view.User),
		Age:           view.Profile.Age,
		HeightCm:      view.Profile.HeightCm,
		WeightKg:      view.Profile.WeightKg,
		BodyFatPct:    view.Profile.BodyFatPct,
		MuscleMassKg:  view.Profile.MuscleMassKg,
		ProfileFilled: view.Profile.ProfileFilled,
		ImageURL:      view.ImageURL,
	}

	if view.User.Role == domain.RoleTrainer {
		count := view.MemberCount
		resp.MemberCount = &count
	}
	if view.Trainer != nil {
		trainer := MapUserToResponse(view.Trainer)
		resp.Trainer = &trainer
	}
	return resp
}
