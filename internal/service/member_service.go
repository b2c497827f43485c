package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/repository"
	"trainmate/api/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUserNotFound    = errors.New("user not found")
)

// Presigned profile image links stay valid long enough for a page render.
const profileImageURLExpiry = 15 * time.Minute

// ProfileView is a user's account joined with its profile, shaped for
// responses. For trainers it carries the derived member count; for members
// the assigned trainer's summary, when any.
type ProfileView struct {
	User    domain.User
	Profile domain.Profile
	// ImageURL is a presigned link to the profile image, if one is set.
	ImageURL string
	// MemberCount is derived for trainers, never stored.
	MemberCount int
	// Trainer summarizes a member's assigned trainer.
	Trainer *domain.User
}

// ProfilePatch applies only the supplied physical attributes.
type ProfilePatch struct {
	Age          *int
	HeightCm     *float64
	WeightKg     *float64
	BodyFatPct   *float64
	MuscleMassKg *float64
}

// --- Service Interface ---
type MemberService interface {
	// GetProfile reads any user's profile; profiles are visible to every
	// authenticated caller.
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*ProfileView, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, patch ProfilePatch) (*ProfileView, error)
	UploadProfileImage(ctx context.Context, userID primitive.ObjectID, fileName, contentType string, body io.Reader, size int64) (*ProfileView, error)
	// DeleteAccount removes the user and everything hanging off it: the
	// profile, a member's workout history, and for trainers the assignment
	// edge on every member profile. All of it in one transaction.
	DeleteAccount(ctx context.Context, userID primitive.ObjectID) error
}

// --- Service Implementation ---

type memberService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	workoutRepo repository.WorkoutRepository
	tx          repository.TxRunner
	files       storage.FileStorage
}

// NewMemberService creates a new instance of memberService.
func NewMemberService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	workoutRepo repository.WorkoutRepository,
	tx repository.TxRunner,
	files storage.FileStorage,
) MemberService {
	return &memberService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		workoutRepo: workoutRepo,
		tx:          tx,
		files:       files,
	}
}

// GetProfile joins the user and profile documents and fills the derived
// fields for the role.
func (s *memberService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*ProfileView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	view := &ProfileView{User: *user, Profile: *profile}
	view.User.PasswordHash = ""

	if profile.ImageKey != "" && s.files != nil {
		// Best effort: a profile read should not fail because the image
		// store is briefly unreachable.
		if url, err := s.files.GeneratePresignedDownloadURL(ctx, profile.ImageKey, profileImageURLExpiry); err == nil {
			view.ImageURL = url
		}
	}

	switch user.Role {
	case domain.RoleTrainer:
		memberIDs, err := s.profileRepo.MemberIDsByTrainer(ctx, userID)
		if err != nil {
			return nil, err
		}
		members, err := s.userRepo.GetByIDs(ctx, memberIDs)
		if err != nil {
			return nil, err
		}
		// Same policy as the roster view: inactive accounts stay
		// assigned but are not counted.
		for _, m := range members {
			if m.Active {
				view.MemberCount++
			}
		}
	case domain.RoleMember:
		if profile.IsAssigned() {
			if trainer, err := s.userRepo.GetByID(ctx, *profile.AssignedTrainerID); err == nil {
				trainer.PasswordHash = ""
				view.Trainer = trainer
			}
		}
	}

	return view, nil
}

// UpdateProfile applies the supplied physical attributes and refreshes the
// profile-completion flag from the resulting field set.
func (s *memberService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, patch ProfilePatch) (*ProfileView, error) {
	if fieldErrs := validateProfilePatch(patch); fieldErrs.HasErrors() {
		return nil, fieldErrs
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	if patch.Age != nil {
		profile.Age = patch.Age
	}
	if patch.HeightCm != nil {
		profile.HeightCm = patch.HeightCm
	}
	if patch.WeightKg != nil {
		profile.WeightKg = patch.WeightKg
	}
	if patch.BodyFatPct != nil {
		profile.BodyFatPct = patch.BodyFatPct
	}
	if patch.MuscleMassKg != nil {
		profile.MuscleMassKg = patch.MuscleMassKg
	}
	profile.ProfileFilled = profile.Complete()

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}

	return s.GetProfile(ctx, userID)
}

// UploadProfileImage stores the image under a fresh object key and records
// the key on the profile. The previous image, if any, is removed from the
// bucket afterwards.
func (s *memberService) UploadProfileImage(ctx context.Context, userID primitive.ObjectID, fileName, contentType string, body io.Reader, size int64) (*ProfileView, error) {
	if s.files == nil {
		return nil, errors.New("file storage is not configured")
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	objectKey := fmt.Sprintf("profiles/%s/%s-%s", userID.Hex(), uuid.NewString(), fileName)
	if err := s.files.Upload(ctx, objectKey, contentType, body, size); err != nil {
		return nil, ErrStorageUnavailable
	}

	previousKey := profile.ImageKey
	profile.ImageKey = objectKey
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		// Don't leave an orphan object behind a failed profile update.
		_ = s.files.DeleteObject(ctx, objectKey)
		return nil, err
	}

	if previousKey != "" {
		_ = s.files.DeleteObject(ctx, previousKey)
	}

	return s.GetProfile(ctx, userID)
}

// DeleteAccount cascades through everything the user owns. Member accounts
// drop their entire workout hierarchy; trainer accounts release every
// assigned member back to the unassigned pool. The user, its profile and
// the cascade targets go in one transaction so a half-deleted account can
// never be observed.
func (s *memberService) DeleteAccount(ctx context.Context, userID primitive.ObjectID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	// Read before the transaction: the image key is needed for bucket
	// cleanup after the commit.
	var imageKey string
	if profile, err := s.profileRepo.GetByUserID(ctx, userID); err == nil {
		imageKey = profile.ImageKey
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		switch user.Role {
		case domain.RoleMember:
			if err := s.workoutRepo.DeleteByMemberID(txCtx, userID); err != nil {
				return err
			}
		case domain.RoleTrainer:
			if err := s.profileRepo.ClearTrainer(txCtx, userID); err != nil {
				return err
			}
		}
		if err := s.profileRepo.DeleteByUserID(txCtx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return s.userRepo.Delete(txCtx, userID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUnavailable) || errors.Is(err, repository.ErrConflict) {
			return ErrStorageUnavailable
		}
		return err
	}

	if imageKey != "" && s.files != nil {
		_ = s.files.DeleteObject(ctx, imageKey)
	}
	return nil
}

func validateProfilePatch(patch ProfilePatch) FieldErrors {
	fieldErrs := FieldErrors{}
	if patch.Age != nil && (*patch.Age <= 0 || *patch.Age > 130) {
		fieldErrs.Add("age", "age must be between 1 and 130")
	}
	if patch.HeightCm != nil && *patch.HeightCm <= 0 {
		fieldErrs.Add("height_cm", "height must be greater than zero")
	}
	if patch.WeightKg != nil && *patch.WeightKg <= 0 {
		fieldErrs.Add("weight_kg", "weight must be greater than zero")
	}
	if patch.BodyFatPct != nil && (*patch.BodyFatPct < 0 || *patch.BodyFatPct > 100) {
		fieldErrs.Add("body_fat_percentage", "body fat percentage must be between 0 and 100")
	}
	if patch.MuscleMassKg != nil && *patch.MuscleMassKg < 0 {
		fieldErrs.Add("muscle_mass_kg", "muscle mass cannot be negative")
	}
	return fieldErrs
}
