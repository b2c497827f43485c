package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrMemberNotFound  = errors.New("member user not found")
	ErrTrainerNotFound = errors.New("trainer user not found")
	ErrNotATrainer     = errors.New("acting user is not a trainer")
	ErrNotAMember      = errors.New("target user is not a member")
)

// AlreadyAssignedError is the conflict raised when assigning a member who
// already has a trainer. It names the current trainer rather than silently
// overwriting the assignment.
type AlreadyAssignedError struct {
	MemberName         string
	CurrentTrainerName string
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("member %s is already assigned to trainer %s", e.MemberName, e.CurrentTrainerName)
}

// Maximum results for the assignable-member search page.
const memberSearchLimit = 10

// MemberList is a trainer's roster together with the derived count.
type MemberList struct {
	Members []domain.User
	Count   int
	// Message is set for the soft-deny case: a member asking for a roster
	// gets an empty list with an explanation instead of an error.
	Message string
}

// --- Service Interface ---
type TrainerService interface {
	AssignMember(ctx context.Context, trainerID, memberUserID primitive.ObjectID) (*domain.Profile, error)
	AssignedMembers(ctx context.Context, callerID primitive.ObjectID) (*MemberList, error)
	SearchAssignableMembers(ctx context.Context, trainerID primitive.ObjectID, query string) ([]domain.User, error)
}

// --- Service Implementation ---

type trainerService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
}

// NewTrainerService creates a new instance of trainerService.
func NewTrainerService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository) TrainerService {
	return &trainerService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
	}
}

// AssignMember records the trainer-member assignment edge. Preconditions:
// the actor is a trainer, the target is a member, and the member has no
// current trainer. An existing assignment is a conflict naming the current
// trainer, never an overwrite.
func (s *trainerService) AssignMember(ctx context.Context, trainerID, memberUserID primitive.ObjectID) (*domain.Profile, error) {
	trainer, err := s.userRepo.GetByID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTrainerNotFound
		}
		return nil, err
	}
	if !trainer.IsTrainer() {
		return nil, ErrNotATrainer
	}

	member, err := s.userRepo.GetByID(ctx, memberUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if !member.IsMember() {
		return nil, ErrNotAMember
	}

	profile, err := s.profileRepo.GetByUserID(ctx, memberUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if profile.IsAssigned() {
		return nil, s.alreadyAssigned(ctx, member, profile)
	}

	err = s.profileRepo.SetAssignedTrainer(ctx, memberUserID, trainerID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race against another assignment; report the winner.
			fresh, ferr := s.profileRepo.GetByUserID(ctx, memberUserID)
			if ferr == nil {
				return nil, s.alreadyAssigned(ctx, member, fresh)
			}
			return nil, &AlreadyAssignedError{MemberName: member.Name}
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	profile.AssignedTrainerID = &trainerID
	return profile, nil
}

func (s *trainerService) alreadyAssigned(ctx context.Context, member *domain.User, profile *domain.Profile) error {
	conflict := &AlreadyAssignedError{MemberName: member.Name}
	if profile.AssignedTrainerID != nil {
		if current, err := s.userRepo.GetByID(ctx, *profile.AssignedTrainerID); err == nil {
			conflict.CurrentTrainerName = current.Name
		}
	}
	return conflict
}

// AssignedMembers returns the caller's roster of active assigned members.
// A member caller gets the soft-deny shape: empty list plus a message.
func (s *trainerService) AssignedMembers(ctx context.Context, callerID primitive.ObjectID) (*MemberList, error) {
	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTrainerNotFound
		}
		return nil, err
	}

	if caller.IsMember() {
		return &MemberList{
			Members: []domain.User{},
			Message: "members cannot access a trainer's member list",
		}, nil
	}

	memberIDs, err := s.profileRepo.MemberIDsByTrainer(ctx, callerID)
	if err != nil {
		return nil, err
	}

	members, err := s.userRepo.GetByIDs(ctx, memberIDs)
	if err != nil {
		return nil, err
	}

	// Inactive accounts stay assigned but drop out of the roster view.
	active := members[:0]
	for _, m := range members {
		if m.Active {
			m.PasswordHash = ""
			active = append(active, m)
		}
	}

	return &MemberList{Members: active, Count: len(active)}, nil
}

// SearchAssignableMembers finds unassigned members whose name or email
// contains the query, case-insensitive, excluding the calling trainer,
// capped at a small page.
func (s *trainerService) SearchAssignableMembers(ctx context.Context, trainerID primitive.ObjectID, query string) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		fieldErrs := FieldErrors{}
		fieldErrs.Add("query", "search query is required")
		return nil, fieldErrs
	}

	trainer, err := s.userRepo.GetByID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTrainerNotFound
		}
		return nil, err
	}
	if !trainer.IsTrainer() {
		return nil, ErrNotATrainer
	}

	unassigned, err := s.profileRepo.UnassignedMemberIDs(ctx)
	if err != nil {
		return nil, err
	}

	users, err := s.userRepo.SearchMembers(ctx, query, unassigned, trainerID, memberSearchLimit)
	if err != nil {
		return nil, err
	}

	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}
