package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrAccountInactive      = errors.New("account is deactivated")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrInvalidToken         = errors.New("invalid or expired token")
)

// Password policy: at least 10 characters, with at least one letter, one
// digit and one symbol from the fixed punctuation set. Each class is checked
// independently so the caller learns exactly which one is missing.
const (
	minPasswordLength = 10
	passwordSymbols   = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// TokenPair bundles the access and refresh tokens returned at login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// SignupInput carries the signup form fields.
type SignupInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Role            domain.Role
	Phone           string
}

// --- Service Interface ---
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	JWTSecret() string
}

// --- Service Implementation ---

// authService implements the AuthService interface.
type authService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	tokenRepo   repository.TokenRepository
	tx          repository.TxRunner

	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	tokenRepo repository.TokenRepository,
	tx repository.TxRunner,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if accessExpiry <= 0 {
		accessExpiry = time.Hour
	}
	if refreshExpiry <= 0 {
		refreshExpiry = 24 * time.Hour * 7
	}
	return &authService{
		userRepo:      userRepo,
		profileRepo:   profileRepo,
		tokenRepo:     tokenRepo,
		tx:            tx,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// Signup validates the form, hashes the credential and creates the user
// together with its role profile in one transaction. If the profile insert
// fails the user insert rolls back with it.
func (s *authService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	if fieldErrs := validateSignup(in); fieldErrs.HasErrors() {
		return nil, fieldErrs
	}

	// Emails are case-insensitive: normalize before both the lookup and
	// the insert so the unique index sees one canonical form.
	email := strings.ToLower(strings.TrimSpace(in.Email))

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         in.Role,
		Phone:        in.Phone,
		Active:       true,
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		userID, err := s.userRepo.Create(txCtx, user)
		if err != nil {
			return err
		}
		user.ID = userID

		profile := &domain.Profile{
			UserID: userID,
			Role:   in.Role,
		}
		_, err = s.profileRepo.Create(txCtx, profile)
		return err
	})
	if err != nil {
		// The unique index catches a signup race between the availability
		// check above and the insert.
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		if errors.Is(err, repository.ErrUnavailable) {
			return nil, ErrStorageUnavailable
		}
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func validateSignup(in SignupInput) FieldErrors {
	fieldErrs := FieldErrors{}

	if strings.TrimSpace(in.Name) == "" {
		fieldErrs.Add("name", "name is required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(in.Email)) {
		fieldErrs.Add("email", "enter a valid email address")
	}
	if !domain.ValidRole(in.Role) {
		fieldErrs.Add("user_type", "user type must be trainer or member")
	}

	for _, msg := range passwordPolicyViolations(in.Password) {
		fieldErrs.Add("password", msg)
	}
	if in.Password != in.ConfirmPassword {
		fieldErrs.Add("confirm_password", "passwords do not match")
	}

	return fieldErrs
}

// passwordPolicyViolations returns one message per missing character class,
// so "no digit" and "no symbol" surface as separate errors.
func passwordPolicyViolations(password string) []string {
	var violations []string

	if len(password) < minPasswordLength {
		violations = append(violations, "password must be at least 10 characters long")
	}

	var hasLetter, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasLetter {
		violations = append(violations, "password must contain at least one letter")
	}
	if !hasDigit {
		violations = append(violations, "password must contain at least one digit")
	}
	if !hasSymbol {
		violations = append(violations, "password must contain at least one special character")
	}
	return violations
}

// Login authenticates a user and issues an access/refresh token pair.
// Unknown email and wrong password fail identically; only a deactivated
// account gets its own error.
func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, TokenPair, error) {
	if email == "" || password == "" {
		return nil, TokenPair{}, ErrAuthenticationFailed
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, TokenPair{}, ErrAuthenticationFailed
		}
		return nil, TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, TokenPair{}, ErrAuthenticationFailed
	}

	if !user.Active {
		return nil, TokenPair{}, ErrAccountInactive
	}

	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, TokenPair{}, ErrTokenGeneration
	}

	user.PasswordHash = ""
	return user, pair, nil
}

// Refresh mints a new access token from a valid, unrevoked refresh token.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	revoked, err := s.tokenRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, mustObjectID(claims.UserID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if !user.Active {
		return "", ErrAccountInactive
	}

	access, err := s.generateAccessToken(user)
	if err != nil {
		return "", ErrTokenGeneration
	}
	return access, nil
}

// Logout blacklists the refresh token's JTI so it can no longer mint access
// tokens. The blacklist entry expires together with the token itself.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return err
	}

	expires := time.Now().Add(s.refreshExpiry).UTC()
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	return s.tokenRepo.Revoke(ctx, &domain.RevokedToken{
		JTI:       claims.ID,
		UserID:    mustObjectID(claims.UserID),
		ExpiresAt: expires,
	})
}

// --- JWT Helpers ---

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UserID    string      `json:"uid"`
	Role      domain.Role `json:"role"`
	TokenType string      `json:"typ"`
	jwt.RegisteredClaims
}

func (s *authService) generateTokenPair(user *domain.User) (TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.signToken(user, tokenTypeRefresh, s.refreshExpiry)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *authService) generateAccessToken(user *domain.User) (string, error) {
	return s.signToken(user, tokenTypeAccess, s.accessExpiry)
}

func (s *authService) signToken(user *domain.User, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		UserID:    user.ID.Hex(),
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "trainmate",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) parseRefreshToken(tokenString string) (*jwtClaims, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenTypeRefresh || claims.ID == "" || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JWTSecret returns the JWT secret for middleware authentication
func (s *authService) JWTSecret() string {
	return s.jwtSecret
}

// mustObjectID converts a hex user ID taken from validated token claims.
// A malformed ID yields NilObjectID, which no lookup will ever match.
func mustObjectID(hex string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}
