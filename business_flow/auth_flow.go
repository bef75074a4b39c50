package businessflow

import (
	"context"
	"strings"

	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/app/services"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	"github.com/inventara/inventara/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthFlow handles signup, login, and session lifecycle
type AuthFlow interface {
	Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error)
	Logout(ctx context.Context, actor *models.User, accessToken string, metadata *ClientMetadata) error
	RefreshTokens(ctx context.Context, refreshToken string) (*dto.TokenPairDTO, error)
	GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error)
}

type AuthFlowImpl struct {
	userRepo     repository.UserRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	db           *gorm.DB
}

func NewAuthFlow(
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	db *gorm.DB,
) AuthFlow {
	return &AuthFlowImpl{
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		db:           db,
	}
}

func (f *AuthFlowImpl) Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := f.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Failed to check existing users", err)
	}
	if existing != nil {
		return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", ErrEmailAlreadyExists)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Failed to hash password", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
		Version:      1,
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.userRepo.Save(txCtx, user); err != nil {
			return err
		}
		f.writeAuditLog(txCtx, user, models.AuditActionSignupCompleted, true, metadata)
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("SIGNUP_FAILED", "Failed to create account", err)
	}

	return f.issueTokens(user)
}

func (f *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := f.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to fetch user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		f.writeAuditLog(ctx, user, models.AuditActionLoginFailed, false, metadata)
		return nil, NewBusinessError("INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	if user.IsBlocked() {
		f.writeAuditLog(ctx, user, models.AuditActionLoginFailed, false, metadata)
		return nil, NewBusinessError("ACCOUNT_BLOCKED", "Account is blocked", ErrAccountBlocked)
	}

	if err := f.userRepo.UpdateLastLogin(ctx, user.ID, utils.UTCNow()); err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to record login", err)
	}
	f.writeAuditLog(ctx, user, models.AuditActionLoginSuccessful, true, metadata)

	return f.issueTokens(user)
}

func (f *AuthFlowImpl) Logout(ctx context.Context, actor *models.User, accessToken string, metadata *ClientMetadata) error {
	if err := f.tokenService.RevokeToken(ctx, accessToken); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Failed to revoke token", err)
	}
	f.writeAuditLog(ctx, actor, models.AuditActionLogout, true, metadata)
	return nil
}

func (f *AuthFlowImpl) RefreshTokens(ctx context.Context, refreshToken string) (*dto.TokenPairDTO, error) {
	access, refresh, err := f.tokenService.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, NewBusinessError("REFRESH_FAILED", "Failed to refresh tokens", err)
	}
	return &dto.TokenPairDTO{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    utils.AccessTokenTTLSeconds,
	}, nil
}

func (f *AuthFlowImpl) GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error) {
	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("PROFILE_FETCH_FAILED", "Failed to fetch user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}
	out := ToUserDTO(*user)
	return &out, nil
}

func (f *AuthFlowImpl) issueTokens(user *models.User) (*dto.AuthResponse, error) {
	access, refresh, err := f.tokenService.GenerateTokens(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	return &dto.AuthResponse{
		User: ToUserDTO(*user),
		Tokens: dto.TokenPairDTO{
			AccessToken:  access,
			RefreshToken: refresh,
			TokenType:    "Bearer",
			ExpiresIn:    utils.AccessTokenTTLSeconds,
		},
	}, nil
}

func (f *AuthFlowImpl) writeAuditLog(ctx context.Context, user *models.User, action string, success bool, metadata *ClientMetadata) {
	entry := &models.AuditLog{
		Action:  action,
		Success: utils.ToPtr(success),
	}
	if user != nil {
		entry.UserID = &user.ID
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			entry.RequestID = &metadata.RequestID
		}
	}
	_ = f.auditRepo.Save(ctx, entry)
}
