package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "api-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// Stub services with overridable behavior per test. Unset functions panic,
// which immediately flags a handler calling something the test did not
// expect.

type stubAuthService struct {
	signup  func(ctx context.Context, in service.SignupInput) (*domain.User, error)
	login   func(ctx context.Context, email, password string) (*domain.User, service.TokenPair, error)
	refresh func(ctx context.Context, refreshToken string) (string, error)
	logout  func(ctx context.Context, refreshToken string) error
}

func (s *stubAuthService) Signup(ctx context.Context, in service.SignupInput) (*domain.User, error) {
	return s.signup(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*domain.User, service.TokenPair, error) {
	return s.login(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return s.refresh(ctx, refreshToken)
}

func (s *stubAuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.logout(ctx, refreshToken)
}

func (s *stubAuthService) JWTSecret() string { return testSecret }

type stubTrainerService struct {
	assignMember    func(ctx context.Context, trainerID, memberUserID primitive.ObjectID) (*domain.Profile, error)
	assignedMembers func(ctx context.Context, callerID primitive.ObjectID) (*service.MemberList, error)
	searchMembers   func(ctx context.Context, trainerID primitive.ObjectID, query string) ([]domain.User, error)
}

func (s *stubTrainerService) AssignMember(ctx context.Context, trainerID, memberUserID primitive.ObjectID) (*domain.Profile, error) {
	return s.assignMember(ctx, trainerID, memberUserID)
}

func (s *stubTrainerService) AssignedMembers(ctx context.Context, callerID primitive.ObjectID) (*service.MemberList, error) {
	return s.assignedMembers(ctx, callerID)
}

func (s *stubTrainerService) SearchAssignableMembers(ctx context.Context, trainerID primitive.ObjectID, query string) ([]domain.User, error) {
	return s.searchMembers(ctx, trainerID, query)
}

type stubMemberService struct {
	getProfile    func(ctx context.Context, userID primitive.ObjectID) (*service.ProfileView, error)
	updateProfile func(ctx context.Context, userID primitive.ObjectID, patch service.ProfilePatch) (*service.ProfileView, error)
	uploadImage   func(ctx context.Context, userID primitive.ObjectID, fileName, contentType string, body io.Reader, size int64) (*service.ProfileView, error)
	deleteAccount func(ctx context.Context, userID primitive.ObjectID) error
}

func (s *stubMemberService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*service.ProfileView, error) {
	return s.getProfile(ctx, userID)
}

func (s *stubMemberService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, patch service.ProfilePatch) (*service.ProfileView, error) {
	return s.updateProfile(ctx, userID, patch)
}

func (s *stubMemberService) UploadProfileImage(ctx context.Context, userID primitive.ObjectID, fileName, contentType string, body io.Reader, size int64) (*service.ProfileView, error) {
	return s.uploadImage(ctx, userID, fileName, contentType, body, size)
}

func (s *stubMemberService) DeleteAccount(ctx context.Context, userID primitive.ObjectID) error {
	return s.deleteAccount(ctx, userID)
}

type stubWorkoutService struct {
	logSet        func(ctx context.Context, actorID, memberID primitive.ObjectID, in service.LogSetInput) (*service.SetResult, error)
	addSet        func(ctx context.Context, actorID, memberID, workoutExerciseID primitive.ObjectID, in service.SetInput) (*service.SetResult, error)
	updateSet     func(ctx context.Context, actorID, memberID, workoutExerciseID, setID primitive.ObjectID, patch service.SetPatch) (*service.SetResult, error)
	deleteSet     func(ctx context.Context, actorID, memberID, workoutExerciseID, setID primitive.ObjectID) (*service.SetResult, error)
	setCompleted  func(ctx context.Context, actorID, memberID, dailyWorkoutID primitive.ObjectID, completed bool) error
	memberRecords func(ctx context.Context, actorID, memberID primitive.ObjectID, date *time.Time) ([]service.WorkoutRecord, error)
	memberSetRows func(ctx context.Context, actorID, memberID primitive.ObjectID, date *time.Time) ([]service.SetRow, error)
}

func (s *stubWorkoutService) LogSet(ctx context.Context, actorID, memberID primitive.ObjectID, in service.LogSetInput) (*service.SetResult, error) {
	return s.logSet(ctx, actorID, memberID, in)
}

func (s *stubWorkoutService) AddSet(ctx context.Context, actorID, memberID, workoutExerciseID primitive.ObjectID, in service.SetInput) (*service.SetResult, error) {
	return s.addSet(ctx, actorID, memberID, workoutExerciseID, in)
}

func (s *stubWorkoutService) UpdateSet(ctx context.Context, actorID, memberID, workoutExerciseID, setID primitive.ObjectID, patch service.SetPatch) (*service.SetResult, error) {
	return s.updateSet(ctx, actorID, memberID, workoutExerciseID, setID, patch)
}

func (s *stubWorkoutService) DeleteSet(ctx context.Context, actorID, memberID, workoutExerciseID, setID primitive.ObjectID) (*service.SetResult, error) {
	return s.deleteSet(ctx, actorID, memberID, workoutExerciseID, setID)
}

func (s *stubWorkoutService) SetCompleted(ctx context.Context, actorID, memberID, dailyWorkoutID primitive.ObjectID, completed bool) error {
	return s.setCompleted(ctx, actorID, memberID, dailyWorkoutID, completed)
}

func (s *stubWorkoutService) MemberRecords(ctx context.Context, actorID, memberID primitive.ObjectID, date *time.Time) ([]service.WorkoutRecord, error) {
	return s.memberRecords(ctx, actorID, memberID, date)
}

func (s *stubWorkoutService) MemberSetRows(ctx context.Context, actorID, memberID primitive.ObjectID, date *time.Time) ([]service.SetRow, error) {
	return s.memberSetRows(ctx, actorID, memberID, date)
}

type stubExerciseService struct {
	list func(ctx context.Context, bodyPart string) ([]domain.Exercise, error)
}

func (s *stubExerciseService) List(ctx context.Context, bodyPart string) ([]domain.Exercise, error) {
	return s.list(ctx, bodyPart)
}

func (s *stubExerciseService) Import(ctx context.Context, exercise domain.Exercise) (*domain.Exercise, bool, error) {
	panic("Import must not be reached from the API")
}

func (s *stubExerciseService) EstimateCalories(ctx context.Context, exercise *domain.Exercise, bodyWeightKg float64, duration time.Duration) int {
	panic("EstimateCalories must not be reached from the API")
}

// testServices bundles all stubs; tests override the functions they need.
type testServices struct {
	auth     *stubAuthService
	trainer  *stubTrainerService
	member   *stubMemberService
	workout  *stubWorkoutService
	exercise *stubExerciseService
}

func newTestRouter(svcs *testServices) *gin.Engine {
	router := gin.New()
	SetupRoutes(router, testSecret, svcs.auth, svcs.trainer, svcs.member, svcs.workout, svcs.exercise)
	return router
}

func newTestServices() *testServices {
	return &testServices{
		auth:     &stubAuthService{},
		trainer:  &stubTrainerService{},
		member:   &stubMemberService{},
		workout:  &stubWorkoutService{},
		exercise: &stubExerciseService{},
	}
}

// makeAccessToken signs an access JWT the middleware will accept.
func makeAccessToken(t *testing.T, userID primitive.ObjectID, role domain.Role) string {
	t.Helper()
	return makeTypedToken(t, userID, role, "access")
}

func makeTypedToken(t *testing.T, userID primitive.ObjectID, role domain.Role, tokenType string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"uid":  userID.Hex(),
		"role": string(role),
		"typ":  tokenType,
		"sub":  userID.Hex(),
		"exp":  time.Now().Add(time.Hour).Unix(),
		"iat":  time.Now().Unix(),
		"iss":  "trainmate",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, router *gin.Engine, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
