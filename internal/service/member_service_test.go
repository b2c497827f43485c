package service

import (
	"context"
	"strings"
	"testing"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memberFixture struct {
	svc         MemberService
	userRepo    *fakeUserRepo
	profileRepo *fakeProfileRepo
	workoutRepo *fakeWorkoutRepo
	tx          *fakeTxRunner
	files       *fakeFileStorage

	trainerID primitive.ObjectID
	memberID  primitive.ObjectID
}

func newMemberFixture(t *testing.T) *memberFixture {
	t.Helper()

	userRepo := newFakeUserRepo()
	profileRepo := newFakeProfileRepo()
	workoutRepo := newFakeWorkoutRepo()
	tx := &fakeTxRunner{}
	files := newFakeFileStorage()

	trainerID := userRepo.put(domain.User{Name: "Coach Kim", Email: "coach@example.com", Role: domain.RoleTrainer, Active: true})
	memberID := userRepo.put(domain.User{Name: "Jamie Park", Email: "jamie@example.com", Role: domain.RoleMember, Active: true})

	profileRepo.put(domain.Profile{UserID: trainerID, Role: domain.RoleTrainer})
	profileRepo.put(domain.Profile{UserID: memberID, Role: domain.RoleMember, AssignedTrainerID: &trainerID})

	return &memberFixture{
		svc:         NewMemberService(userRepo, profileRepo, workoutRepo, tx, files),
		userRepo:    userRepo,
		profileRepo: profileRepo,
		workoutRepo: workoutRepo,
		tx:          tx,
		files:       files,
		trainerID:   trainerID,
		memberID:    memberID,
	}
}

func TestGetProfileMemberIncludesTrainer(t *testing.T) {
	f := newMemberFixture(t)

	view, err := f.svc.GetProfile(context.Background(), f.memberID)
	require.NoError(t, err)

	assert.Equal(t, "Jamie Park", view.User.Name)
	assert.Empty(t, view.User.PasswordHash)
	require.NotNil(t, view.Trainer)
	assert.Equal(t, "Coach Kim", view.Trainer.Name)
}

func TestGetProfileTrainerDerivesMemberCount(t *testing.T) {
	f := newMemberFixture(t)

	secondID := f.userRepo.put(domain.User{Name: "Riley Cho", Email: "riley@example.com", Role: domain.RoleMember, Active: true})
	f.profileRepo.put(domain.Profile{UserID: secondID, Role: domain.RoleMember, AssignedTrainerID: &f.trainerID})

	// Inactive members stay assigned but are not counted, like the roster.
	inactiveID := f.userRepo.put(domain.User{Name: "Sam Oh", Email: "sam@example.com", Role: domain.RoleMember, Active: false})
	f.profileRepo.put(domain.Profile{UserID: inactiveID, Role: domain.RoleMember, AssignedTrainerID: &f.trainerID})

	view, err := f.svc.GetProfile(context.Background(), f.trainerID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.MemberCount)
	assert.Nil(t, view.Trainer)
}

func TestGetProfileUnknownUser(t *testing.T) {
	f := newMemberFixture(t)

	_, err := f.svc.GetProfile(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfileRefreshesCompletionFlag(t *testing.T) {
	f := newMemberFixture(t)

	age, height := 30, 178.0
	view, err := f.svc.UpdateProfile(context.Background(), f.memberID, ProfilePatch{Age: &age, HeightCm: &height})
	require.NoError(t, err)
	assert.False(t, view.Profile.ProfileFilled, "partial profile is not complete")

	weight, bodyFat, muscle := 74.5, 18.2, 33.0
	view, err = f.svc.UpdateProfile(context.Background(), f.memberID, ProfilePatch{
		WeightKg: &weight, BodyFatPct: &bodyFat, MuscleMassKg: &muscle,
	})
	require.NoError(t, err)
	assert.True(t, view.Profile.ProfileFilled)
	require.NotNil(t, view.Profile.Age)
	assert.Equal(t, 30, *view.Profile.Age, "earlier fields survive later patches")
}

func TestUpdateProfileValidation(t *testing.T) {
	f := newMemberFixture(t)

	badAge, badFat := -1, 140.0
	_, err := f.svc.UpdateProfile(context.Background(), f.memberID, ProfilePatch{Age: &badAge, BodyFatPct: &badFat})

	fieldErrs, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fieldErrs, "age")
	assert.Contains(t, fieldErrs, "body_fat_percentage")
}

func TestUploadProfileImage(t *testing.T) {
	f := newMemberFixture(t)

	view, err := f.svc.UploadProfileImage(
		context.Background(), f.memberID, "avatar.png", "image/png", strings.NewReader("fake-png"), 8,
	)
	require.NoError(t, err)
	assert.NotEmpty(t, view.ImageURL)

	profile, err := f.profileRepo.GetByUserID(context.Background(), f.memberID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(profile.ImageKey, "profiles/"+f.memberID.Hex()+"/"))
	assert.Contains(t, f.files.objects, profile.ImageKey)
}

func TestUploadProfileImageReplacesPrevious(t *testing.T) {
	f := newMemberFixture(t)

	_, err := f.svc.UploadProfileImage(
		context.Background(), f.memberID, "old.png", "image/png", strings.NewReader("old"), 3,
	)
	require.NoError(t, err)
	profile, err := f.profileRepo.GetByUserID(context.Background(), f.memberID)
	require.NoError(t, err)
	oldKey := profile.ImageKey

	_, err = f.svc.UploadProfileImage(
		context.Background(), f.memberID, "new.png", "image/png", strings.NewReader("new"), 3,
	)
	require.NoError(t, err)

	assert.Contains(t, f.files.deleted, oldKey, "previous image is removed")
	assert.NotContains(t, f.files.objects, oldKey)
}

func TestDeleteAccountMemberCascadesWorkoutData(t *testing.T) {
	f := newMemberFixture(t)

	workoutID := primitive.NewObjectID()
	entryID := primitive.NewObjectID()
	setID := primitive.NewObjectID()
	f.workoutRepo.dailyWorkouts[workoutID] = &domain.DailyWorkout{ID: workoutID, MemberID: f.memberID, TrainerID: f.memberID}
	f.workoutRepo.workoutExercises[entryID] = &domain.WorkoutExercise{ID: entryID, DailyWorkoutID: workoutID}
	f.workoutRepo.sets[setID] = &domain.ExerciseSet{ID: setID, WorkoutExerciseID: entryID, SetNumber: 1}

	require.NoError(t, f.svc.DeleteAccount(context.Background(), f.memberID))

	assert.NotContains(t, f.userRepo.users, f.memberID)
	assert.NotContains(t, f.profileRepo.profiles, f.memberID)
	assert.Empty(t, f.workoutRepo.dailyWorkouts)
	assert.Empty(t, f.workoutRepo.workoutExercises)
	assert.Empty(t, f.workoutRepo.sets)
}

func TestDeleteAccountTrainerReleasesMembers(t *testing.T) {
	f := newMemberFixture(t)

	require.NoError(t, f.svc.DeleteAccount(context.Background(), f.trainerID))

	assert.NotContains(t, f.userRepo.users, f.trainerID)
	assert.NotContains(t, f.profileRepo.profiles, f.trainerID)

	// The member keeps their account but drops back to unassigned.
	memberProfile, err := f.profileRepo.GetByUserID(context.Background(), f.memberID)
	require.NoError(t, err)
	assert.Nil(t, memberProfile.AssignedTrainerID)
	assert.Contains(t, f.userRepo.users, f.memberID)
}

func TestDeleteAccountRemovesProfileImage(t *testing.T) {
	f := newMemberFixture(t)

	key := "profiles/" + f.memberID.Hex() + "/avatar.png"
	f.profileRepo.put(domain.Profile{UserID: f.memberID, Role: domain.RoleMember, ImageKey: key})

	require.NoError(t, f.svc.DeleteAccount(context.Background(), f.memberID))
	assert.Contains(t, f.files.deleted, key)
}

func TestDeleteAccountUnknownUser(t *testing.T) {
	f := newMemberFixture(t)

	err := f.svc.DeleteAccount(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteAccountStorageFailure(t *testing.T) {
	f := newMemberFixture(t)
	f.tx.failWith = repository.ErrUnavailable

	err := f.svc.DeleteAccount(context.Background(), f.memberID)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	// The transaction never ran, so nothing was touched.
	assert.Contains(t, f.userRepo.users, f.memberID)
	assert.Contains(t, f.profileRepo.profiles, f.memberID)
}
