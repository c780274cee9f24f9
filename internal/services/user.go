package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jjudge-oj/contestjudge/internal/store"
	"github.com/jjudge-oj/contestjudge/types"
)

const (
	minNameRunes   = 2
	minRegNoRunes  = 5
	minPasswordLen = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or
// a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// AttemptLister lists every contest attempt of one participant.
type AttemptLister interface {
	ListByUser(ctx context.Context, userID int) ([]types.Session, error)
}

// Registration is a participant's sign-up form.
type Registration struct {
	Email      string
	Name       string
	RegNo      string
	Department string
	Password   string
}

// Profile is an account together with its contest attempts, newest first.
// Ended attempts cannot be re-entered.
type Profile struct {
	types.User
	Attempts []types.Session `json:"attempts"`
}

// UserService registers participants and authenticates accounts.
type UserService struct {
	repo        UserRepository
	attempts    AttemptLister
	regNoPrefix string
	log         *zap.Logger
}

// NewUserService wires the service. A non-empty regNoPrefix is required at
// the start of every registration number.
func NewUserService(repo UserRepository, attempts AttemptLister, regNoPrefix string, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		repo:        repo,
		attempts:    attempts,
		regNoPrefix: strings.TrimSpace(regNoPrefix),
		log:         log,
	}
}

// Register validates the form and creates a participant account. A taken
// email yields store.ErrConflict.
func (s *UserService) Register(ctx context.Context, form Registration) (types.User, error) {
	user := types.User{
		Email:      strings.ToLower(strings.TrimSpace(form.Email)),
		Name:       strings.TrimSpace(form.Name),
		RegNo:      strings.ToUpper(strings.TrimSpace(form.RegNo)),
		Department: strings.TrimSpace(form.Department),
		Role:       types.RoleParticipant,
	}
	if err := s.validateRegistration(user, form.Password); err != nil {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashed)

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.log.Info("participant registered",
		zap.Int("user_id", created.ID),
		zap.String("reg_no", created.RegNo),
		zap.String("department", created.Department))
	return created, nil
}

func (s *UserService) validateRegistration(user types.User, password string) error {
	if addr, err := mail.ParseAddress(user.Email); err != nil || addr.Address != user.Email {
		return invalid("email", "is not a valid address")
	}
	if utf8.RuneCountInString(user.Name) < minNameRunes {
		return invalid("name", fmt.Sprintf("must be at least %d characters", minNameRunes))
	}
	if utf8.RuneCountInString(user.RegNo) < minRegNoRunes {
		return invalid("reg_no", fmt.Sprintf("must be at least %d characters", minRegNoRunes))
	}
	if s.regNoPrefix != "" && !strings.HasPrefix(user.RegNo, strings.ToUpper(s.regNoPrefix)) {
		return invalid("reg_no", fmt.Sprintf("must start with %s", s.regNoPrefix))
	}
	if user.Department == "" {
		return invalid("department", "is required")
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return invalid("password", fmt.Sprintf("must be %d to %d characters", minPasswordLen, maxPasswordLen))
	}
	return nil
}

// Authenticate returns the account for email when password matches.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return types.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Profile returns the account and its contest attempts.
func (s *UserService) Profile(ctx context.Context, id int) (Profile, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	profile := Profile{User: user, Attempts: []types.Session{}}
	if s.attempts == nil {
		return profile, nil
	}
	attempts, err := s.attempts.ListByUser(ctx, id)
	if err != nil {
		return Profile{}, fmt.Errorf("list attempts: %w", err)
	}
	if len(attempts) > 0 {
		profile.Attempts = attempts
	}
	return profile, nil
}

// IsAdmin reports whether the account holds the admin role.
func (s *UserService) IsAdmin(ctx context.Context, id int) (bool, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}
