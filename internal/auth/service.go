package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/model"
	"github.com/oncontrol/platform/pkg/logging"
)

// Service implements the register/login flows. Registration creates the
// credential first and only then writes the public doctor profile, so a
// failed credential (email already in use) never leaves a profile behind.
type Service struct {
	repo     *Repository
	client   *backend.Client
	secret   string
	tokenTTL time.Duration
	logger   *logging.Logger
}

func NewService(repo *Repository, client *backend.Client, secret string, tokenTTL time.Duration, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &Service{
		repo:     repo,
		client:   client,
		secret:   secret,
		tokenTTL: tokenTTL,
		logger:   logger.Component("auth"),
	}
}

// RegisterDoctor creates a credential and writes the doctor profile keyed
// by the new uid into the public doctors collection. Returns the uid.
func (s *Service) RegisterDoctor(ctx context.Context, email, password string, profile model.DoctorProfile) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	uid := uuid.NewString()
	if err := s.repo.Create(ctx, &Credential{
		UID:          uid,
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  profile.Name,
	}); err != nil {
		return "", err
	}

	doc := profileDocument(uid, email, profile)
	path := backend.DoctorsPath(s.client.AppID)
	if err := s.client.Store.Set(ctx, path, uid, doc, false); err != nil {
		s.logger.Error("profile write failed after credential creation", "uid", uid, "error", err)
		return "", fmt.Errorf("write doctor profile: %w", err)
	}

	s.logger.Info("doctor registered", "uid", uid, "specialty", profile.Specialty)
	return uid, nil
}

// Login verifies the password and issues a session token. A credential
// with no matching profile document still logs in; the session manager
// reports an absent profile in that case.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if cred == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	user := model.User{UID: cred.UID, Email: cred.Email, DisplayName: cred.DisplayName}
	token, err := issueToken(s.secret, user, s.tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return &user, token, nil
}

// Verify validates a session token against this service's secret.
func (s *Service) Verify(tokenString string) (*model.User, error) {
	return VerifyToken(s.secret, tokenString)
}

// profileDocument builds the stored profile, keeping exactly one identity
// document field according to the discriminant.
func profileDocument(uid, email string, profile model.DoctorProfile) map[string]any {
	now := time.Now()
	doc := map[string]any{
		"uid":          uid,
		"name":         profile.Name,
		"email":        email,
		"specialty":    profile.Specialty,
		"license":      profile.License,
		"phone":        profile.Phone,
		"documentType": string(profile.DocumentType),
		"createdAt":    now,
		"updatedAt":    now,
	}
	switch profile.DocumentType {
	case model.DocumentTypeRUC:
		doc["ruc"] = profile.RUC
	default:
		doc["documentType"] = string(model.DocumentTypeDNI)
		doc["dni"] = profile.DNI
	}
	return doc
}
