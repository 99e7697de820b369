package auth

import (
	"context"
	"errors"
	"os"
	"time"

	autherrors "hr-collab/internal/auth/errors"
	"hr-collab/internal/employee"
	"hr-collab/internal/shared/apperror"
	"hr-collab/internal/user"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

//go:generate mockgen -source=auth_service.go -destination=mock/auth_service_mock.go -package=mock
type Service interface {
	Login(ctx context.Context, email, password string) (TokenPair, AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (TokenPair, AuthResponse, error)
	GetMe(ctx context.Context, userID string) (*AuthResponse, error)
	Register(ctx context.Context, companyID string, req RegisterRequest) (AuthResponse, error)
}

type service struct {
	users     user.Repository
	employees employee.Repository
	logger    *zap.Logger
}

func NewService(users user.Repository, employees employee.Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("auth.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("auth.service")
	}
	return &service{users: users, employees: employees, logger: l}
}

func (s *service) Login(ctx context.Context, email, password string) (TokenPair, AuthResponse, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, AuthResponse{}, autherrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return TokenPair{}, AuthResponse{}, autherrors.ErrInvalidCredentials
	}

	// Presence feed for chat: a fresh login counts as "seen now".
	if err := s.users.TouchLastSeen(ctx, u.ID.String(), time.Now().UTC()); err != nil {
		s.logger.Warn("touch last_seen on login failed", zap.String("user_id", u.ID.String()), zap.Error(err))
	}

	pair, err := s.tokenPairFor(u)
	if err != nil {
		return TokenPair{}, AuthResponse{}, autherrors.ErrTokenGenerationFailed
	}

	s.logger.Info("login success", zap.String("user_id", u.ID.String()))
	return pair, mapToAuthResponse(u), nil
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, AuthResponse, error) {
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, autherrors.ErrInvalidToken
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return TokenPair{}, AuthResponse{}, autherrors.ErrInvalidRefreshToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenPair{}, AuthResponse{}, autherrors.ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return TokenPair{}, AuthResponse{}, autherrors.ErrInvalidToken
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return TokenPair{}, AuthResponse{}, autherrors.ErrUserNotFound
	}

	pair, err := s.tokenPairFor(u)
	if err != nil {
		return TokenPair{}, AuthResponse{}, autherrors.ErrTokenGenerationFailed
	}

	return pair, mapToAuthResponse(u), nil
}

func (s *service) GetMe(ctx context.Context, userID string) (*AuthResponse, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, autherrors.ErrUserNotFound
		}
		return nil, err
	}
	resp := mapToAuthResponse(u)
	return &resp, nil
}

func (s *service) Register(ctx context.Context, companyID string, req RegisterRequest) (AuthResponse, error) {
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return AuthResponse{}, autherrors.ErrEmailTaken
	}

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return AuthResponse{}, apperror.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	u := &user.User{
		ID:        uuid.New(),
		CompanyID: companyUUID,
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hash),
		Role:      user.RoleEmployee,
		IsActive:  true,
	}

	// Link the parallel employee record when one shares the email.
	if empl, err := s.employees.FindByEmail(ctx, req.Email); err == nil {
		u.EmployeeID = &empl.ID
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailExists) {
			return AuthResponse{}, autherrors.ErrEmailTaken
		}
		return AuthResponse{}, err
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID.String()))
	return mapToAuthResponse(u), nil
}

func (s *service) tokenPairFor(u *user.User) (TokenPair, error) {
	access, err := s.generateToken(u, accessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.generateToken(u, refreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *service) generateToken(u *user.User, ttl time.Duration) (string, error) {
	employeeID := ""
	if u.EmployeeID != nil {
		employeeID = u.EmployeeID.String()
	}

	claims := jwt.MapClaims{
		"user_id":     u.ID.String(),
		"employee_id": employeeID,
		"company_id":  u.CompanyID.String(),
		"role":        u.Role,
		"exp":         time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

func mapToAuthResponse(u *user.User) AuthResponse {
	resp := AuthResponse{
		ID:        u.ID.String(),
		CompanyID: u.CompanyID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
	}
	if u.EmployeeID != nil {
		resp.EmployeeID = u.EmployeeID.String()
	}
	return resp
}
