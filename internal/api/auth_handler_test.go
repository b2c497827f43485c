package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"trainmate/api/internal/domain"
	"trainmate/api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validSignupBody() map[string]any {
	return map[string]any{
		"name":             "Jamie Park",
		"email":            "jamie@example.com",
		"password":         "longenough1!",
		"confirm_password": "longenough1!",
		"user_type":        "member",
		"terms_agreed":     true,
		"privacy_agreed":   true,
	}
}

func TestSignupEndpointCreated(t *testing.T) {
	svcs := newTestServices()
	svcs.auth.signup = func(ctx context.Context, in service.SignupInput) (*domain.User, error) {
		assert.Equal(t, "jamie@example.com", in.Email)
		assert.Equal(t, domain.RoleMember, in.Role)
		return &domain.User{
			ID:        primitive.NewObjectID(),
			Name:      in.Name,
			Email:     in.Email,
			Role:      in.Role,
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}, nil
	}
	router := newTestRouter(svcs)

	rec := doJSON(t, router, http.MethodPost, "/auth/signup", "", validSignupBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "jamie@example.com", body["email"])
	assert.NotContains(t, rec.Body.String(), "passwordHash")
}

func TestSignupEndpointFieldErrors(t *testing.T) {
	svcs := newTestServices()
	svcs.auth.signup = func(ctx context.Context, in service.SignupInput) (*domain.User, error) {
		fieldErrs := service.FieldErrors{}
		fieldErrs.Add("password", "password must contain at least one digit")
		return nil, fieldErrs
	}
	router := newTestRouter(svcs)

	rec := doJSON(t, router, http.MethodPost, "/auth/signup", "", validSignupBody())
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "password")
}

func TestSignupEndpointRequiresAgreements(t *testing.T) {
	svcs := newTestServices()
	router := newTestRouter(svcs)

	body := validSignupBody()
	body["terms_agreed"] = false
	rec := doJSON(t, router, http.MethodPost, "/auth/signup", "", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody(t, rec)
	errs, ok := resp["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "terms_agreed")
}

func TestSignupEndpointDuplicateEmail(t *testing.T) {
	svcs := newTestServices()
	svcs.auth.signup = func(ctx context.Context, in service.SignupInput) (*domain.User, error) {
		return nil, service.ErrUserAlreadyExists
	}
	router := newTestRouter(svcs)

	rec := doJSON(t, router, http.MethodPost, "/auth/signup", "", validSignupBody())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	svcs := newTestServices()
	svcs.auth.login = func(ctx context.Context, email, password string) (*domain.User, service.TokenPair, error) {
		return &domain.User{ID: primitive.NewObjectID(), Name: "Jamie Park", Email: email, Role: domain.RoleMember},
			service.TokenPair{Access: "access-token", Refresh: "refresh-token"}, nil
	}
	router := newTestRouter(svcs)

	rec := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "jamie@example.com", "password": "longenough1!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	tokens, ok := body["tokens"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "access-token", tokens["access"])
	assert.Equal(t, "refresh-token", tokens["refresh"])
}

func TestLoginEndpointBadCredentials(t *testing.T) {
	svcs := newTestServices()
	svcs.auth.login = func(ctx context.Context, email, password string) (*domain.User, service.TokenPair, error) {
		return nil, service.TokenPair{}, service.ErrAuthenticationFailed
	}
	router := newTestRouter(svcs)

	rec := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "jamie@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpointInactiveAccount(t *testing.T) {
	svcs := newTestServices()
	svcs.auth.login = func(ctx context.Context, email, password string) (*domain.User, service.TokenPair, error) {
		return nil, service.TokenPair{}, service.ErrAccountInactive
	}
	router := newTestRouter(svcs)

	rec := doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "jamie@example.com", "password": "longenough1!",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	svcs := newTestServices()
	svcs.auth.refresh = func(ctx context.Context, refreshToken string) (string, error) {
		assert.Equal(t, "refresh-token", refreshToken)
		return "new-access", nil
	}
	router := newTestRouter(svcs)

	rec := doJSON(t, router, http.MethodPost, "/auth/token/refresh", "", map[string]any{"refresh": "refresh-token"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new-access", decodeBody(t, rec)["access"])
}

func TestRefreshEndpointInvalidToken(t *testing.T) {
	svcs := newTestServices()
	svcs.auth.refresh = func(ctx context.Context, refreshToken string) (string, error) {
		return "", service.ErrInvalidToken
	}
	router := newTestRouter(svcs)

	rec := doJSON(t, router, http.MethodPost, "/auth/token/refresh", "", map[string]any{"refresh": "expired"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndpointRequiresAuth(t *testing.T) {
	svcs := newTestServices()
	router := newTestRouter(svcs)

	rec := doJSON(t, router, http.MethodPost, "/auth/logout", "", map[string]any{"refresh": "refresh-token"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	svcs := newTestServices()
	var revoked string
	svcs.auth.logout = func(ctx context.Context, refreshToken string) error {
		revoked = refreshToken
		return nil
	}
	router := newTestRouter(svcs)

	token := makeAccessToken(t, primitive.NewObjectID(), domain.RoleMember)
	rec := doJSON(t, router, http.MethodPost, "/auth/logout", token, map[string]any{"refresh": "refresh-token"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refresh-token", revoked)
}
