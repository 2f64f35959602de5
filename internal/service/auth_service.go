package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"passchecker/internal/auth"
	"passchecker/internal/cache"
	apperrors "passchecker/internal/errors"
	"passchecker/internal/logging"
	"passchecker/internal/model"
	"passchecker/internal/repository"
)

var bcryptCost = 12

// LoginResult is the outcome of a credential check. When RequiresTwoFactor is
// set no tokens are issued and the caller must complete Verify2FA.
type LoginResult struct {
	RequiresTwoFactor bool
	UserID            uuid.UUID
	AccessToken       string
	RefreshToken      string
	User              *model.User
}

// TwoFactorSetup is returned when 2FA enrollment starts.
type TwoFactorSetup struct {
	Secret     string
	QRCode     string
	OTPAuthURL string
}

// TOTPValidator enrolls and checks authenticator codes.
type TOTPValidator interface {
	Enroll(accountName string) (*auth.TOTPEnrollment, error)
	Validate(code, secret string) bool
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, email, password string, name *string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	Enable2FA(ctx context.Context, userID uuid.UUID, password string) (*TwoFactorSetup, error)
	Confirm2FA(ctx context.Context, userID uuid.UUID, code string) (*model.User, error)
	Verify2FA(ctx context.Context, userID uuid.UUID, code string) (*LoginResult, error)
	Disable2FA(ctx context.Context, userID uuid.UUID, password, code string) error
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	totp       TOTPValidator
	cache      *cache.Client
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	totp TOTPValidator,
	cache *cache.Client,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		totp:       totp,
		cache:      cache,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user with a hashed password.
func (s *authService) Register(ctx context.Context, email, password string, name *string) (*model.User, error) {
	email = normalizeEmail(email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var displayName *string
	if name != nil {
		if trimmed := strings.TrimSpace(*name); trimmed != "" {
			displayName = &trimmed
		}
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         displayName,
		Role:         model.RoleUser,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logging.FromContext(ctx).Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials. Users with 2FA enabled get a challenge instead of tokens.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	log := logging.FromContext(ctx)

	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Info("login failed", "reason", "unknown email")
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !checkPassword(user, password) {
		log.Info("login failed", "reason", "bad password", "user_id", user.ID)
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		return &LoginResult{RequiresTwoFactor: true, UserID: user.ID}, nil
	}

	return s.issueTokens(ctx, user)
}

// RefreshToken validates a refresh token and returns a new access token.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", apperrors.ErrInvalidToken
	}

	storedUserID, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return "", apperrors.ErrInvalidToken
	}
	if storedUserID.String() != claims.Subject {
		return "", apperrors.ErrInvalidToken
	}

	// Re-read the user so role or 2FA changes since login are reflected.
	user, err := s.userRepo.FindByID(ctx, storedUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrInvalidToken
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout invalidates a refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return apperrors.ErrInvalidToken
	}
	return s.tokenStore.DeleteRefreshToken(ctx, claims.ID)
}

// Enable2FA starts enrollment: a new secret is stored but stays disabled
// until a code is confirmed.
func (s *authService) Enable2FA(ctx context.Context, userID uuid.UUID, password string) (*TwoFactorSetup, error) {
	user, err := s.findUser(ctx, userID, apperrors.ErrInvalidCredentials)
	if err != nil {
		return nil, err
	}

	if !checkPassword(user, password) {
		return nil, apperrors.ErrInvalidPassword
	}
	if user.TwoFactorEnabled {
		return nil, apperrors.Err2FAAlreadyEnabled
	}

	enrollment, err := s.totp.Enroll(user.Email)
	if err != nil {
		return nil, fmt.Errorf("enroll totp: %w", err)
	}

	if err := s.userRepo.SetTwoFactorSecret(ctx, user.ID, enrollment.Secret); err != nil {
		return nil, fmt.Errorf("store 2fa secret: %w", err)
	}
	s.invalidateUser(ctx, user.ID)

	logging.FromContext(ctx).Info("2fa enrollment started", "user_id", user.ID)
	return &TwoFactorSetup{
		Secret:     enrollment.Secret,
		QRCode:     enrollment.QRCode,
		OTPAuthURL: enrollment.OTPAuthURL,
	}, nil
}

// Confirm2FA completes enrollment for an authenticated user.
func (s *authService) Confirm2FA(ctx context.Context, userID uuid.UUID, code string) (*model.User, error) {
	user, err := s.findUser(ctx, userID, apperrors.Err2FASetupNotStarted)
	if err != nil {
		return nil, err
	}
	if !user.HasTwoFactorSecret() {
		return nil, apperrors.Err2FASetupNotStarted
	}
	if !s.totp.Validate(code, *user.TwoFactorSecret) {
		return nil, apperrors.ErrInvalid2FACode
	}

	if !user.TwoFactorEnabled {
		if err := s.userRepo.EnableTwoFactor(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("enable 2fa: %w", err)
		}
		user.TwoFactorEnabled = true
		s.invalidateUser(ctx, user.ID)
		logging.FromContext(ctx).Info("2fa enabled", "user_id", user.ID)
	}
	return user, nil
}

// Verify2FA is the second login step. A valid code also completes a pending
// enrollment before tokens are issued.
func (s *authService) Verify2FA(ctx context.Context, userID uuid.UUID, code string) (*LoginResult, error) {
	user, err := s.findUser(ctx, userID, apperrors.ErrInvalidCredentials)
	if err != nil {
		return nil, err
	}
	if !user.HasTwoFactorSecret() {
		return nil, apperrors.Err2FANotSetUp
	}
	if !s.totp.Validate(code, *user.TwoFactorSecret) {
		logging.FromContext(ctx).Info("2fa verification failed", "user_id", user.ID)
		return nil, apperrors.ErrInvalid2FACode
	}

	if !user.TwoFactorEnabled {
		if err := s.userRepo.EnableTwoFactor(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("enable 2fa: %w", err)
		}
		user.TwoFactorEnabled = true
		s.invalidateUser(ctx, user.ID)
	}

	return s.issueTokens(ctx, user)
}

// Disable2FA turns 2FA off. Both the password and a current code are required.
func (s *authService) Disable2FA(ctx context.Context, userID uuid.UUID, password, code string) error {
	user, err := s.findUser(ctx, userID, apperrors.ErrInvalidCredentials)
	if err != nil {
		return err
	}

	if !checkPassword(user, password) {
		return apperrors.ErrInvalidPassword
	}
	if !user.TwoFactorEnabled {
		return apperrors.Err2FANotEnabled
	}
	if !user.HasTwoFactorSecret() {
		return apperrors.Err2FANotSetUp
	}
	if !s.totp.Validate(code, *user.TwoFactorSecret) {
		return apperrors.ErrInvalid2FACode
	}

	if err := s.userRepo.DisableTwoFactor(ctx, user.ID); err != nil {
		return fmt.Errorf("disable 2fa: %w", err)
	}
	s.invalidateUser(ctx, user.ID)

	logging.FromContext(ctx).Info("2fa disabled", "user_id", user.ID)
	return nil
}

// findUser loads a user and substitutes notFound for a missing record.
func (s *authService) findUser(ctx context.Context, id uuid.UUID, notFound error) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*LoginResult, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, s.jwtService.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &LoginResult{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func (s *authService) invalidateUser(ctx context.Context, id uuid.UUID) {
	_ = s.cache.Delete(ctx, userCacheKey(id))
}

func checkPassword(user *model.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}
