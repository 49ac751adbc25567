package auth

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/BearBump/LoadBoard/internal/apperr"
	"github.com/BearBump/LoadBoard/internal/models"
	"github.com/pkg/errors"
)

type Store interface {
	CreateProfile(ctx context.Context, in models.ProfileCreateInput) (*models.UserProfile, error)
	GetProfileByID(ctx context.Context, id string) (*models.UserProfile, error)
	GetCredentialsByEmail(ctx context.Context, email string) (*models.Credentials, error)
	SetProfileVerified(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id, fullName, phone string) error
}

// OTPStore — одноразовые коды подтверждения email.
type OTPStore interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) (bool, error)
}

type Service struct {
	store       Store
	otp         OTPStore
	tokenSecret []byte
	tokenTTL    time.Duration
}

func New(store Store, otp OTPStore, tokenSecret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		store:       store,
		otp:         otp,
		tokenSecret: []byte(tokenSecret),
		tokenTTL:    tokenTTL,
	}
}

type SignUpInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// SignUp регистрирует водителя или грузоотправителя. Админские роли
// через публичную регистрацию не выдаются. Код подтверждения уходит в
// лог: почтового шлюза в этом сервисе нет, доставка — внешняя забота.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.UserProfile, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.FullName == "" {
		return nil, apperr.Validationf("fullName is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperr.Validationf("invalid email")
	}
	if len(in.Password) < 8 {
		return nil, apperr.Validationf("password must be at least 8 characters")
	}
	if in.Role != models.RoleDriver && in.Role != models.RoleShipper {
		return nil, apperr.Validationf("role must be driver or shipper")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	p, err := s.store.CreateProfile(ctx, models.ProfileCreateInput{
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         in.Role,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	s.issueOTP(ctx, in.Email)
	return p, nil
}

// VerifyEmail сравнивает код; совпавший код одноразовый.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" {
		return apperr.Validationf("email and code are required")
	}

	ok, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validationf("invalid or expired code")
	}

	creds, err := s.store.GetCredentialsByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.store.SetProfileVerified(ctx, creds.UserID)
}

// ResendOTP выдаёт новый код; прежний перестаёт действовать.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperr.Validationf("email is required")
	}
	// Не раскрываем, существует ли адрес.
	if _, err := s.store.GetCredentialsByEmail(ctx, email); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	s.issueOTP(ctx, email)
	return nil
}

type Session struct {
	Token   string              `json:"token"`
	Profile *models.UserProfile `json:"profile"`
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return s.signIn(ctx, email, password, false)
}

// AdminSignIn — отдельная дверь для админ-панели: обычные роли сюда не
// проходят даже с верным паролем.
func (s *Service) AdminSignIn(ctx context.Context, email, password string) (*Session, error) {
	return s.signIn(ctx, email, password, true)
}

func (s *Service) signIn(ctx context.Context, email, password string, adminOnly bool) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validationf("email and password are required")
	}

	creds, err := s.store.GetCredentialsByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errors.Wrap(apperr.ErrPermissionDenied, "invalid credentials")
	}
	if err != nil {
		return nil, err
	}

	ok, err := VerifyPassword(password, creds.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(apperr.ErrPermissionDenied, "invalid credentials")
	}
	if adminOnly && !models.AdminRole(creds.Role) {
		return nil, errors.Wrap(apperr.ErrPermissionDenied, "admin access only")
	}
	if !creds.Verified && !models.AdminRole(creds.Role) {
		return nil, errors.Wrap(apperr.ErrPermissionDenied, "email is not verified")
	}

	token, err := s.issueToken(creds.UserID, creds.Role)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.GetProfileByID(ctx, creds.UserID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Profile: profile}, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	return s.store.GetProfileByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID, fullName, phone string) (*models.UserProfile, error) {
	if fullName == "" {
		return nil, apperr.Validationf("fullName is required")
	}
	if err := s.store.UpdateProfile(ctx, userID, fullName, phone); err != nil {
		return nil, err
	}
	return s.store.GetProfileByID(ctx, userID)
}

func (s *Service) issueOTP(ctx context.Context, email string) {
	code, err := s.otp.Issue(ctx, email)
	if err != nil {
		slog.Error("issue otp", "email", email, "error", err.Error())
		return
	}
	// TODO: подключить почтовый шлюз, когда появится SMTP-аккаунт.
	slog.Info("verification code issued", "email", email, "code", code)
}
