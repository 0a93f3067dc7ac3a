// Package service — account business logic.
//
// AccountService sits between the HTTP handlers and the storage/crypto
// utilities:
//
//	AccountHandler (HTTP) → AccountService (business rules) → UserRepository (DB)
//	                      ↘ TokenService (JWT), PasswordHasher (argon2id)
//
// KEY RESPONSIBILITIES:
//   - Registration: shape check, policy validation, uniqueness, hashing
//   - Login: credential verification and token issuance
//   - Authorization: token verification, profile visibility, confirm-password
//     flows for update and delete
//
// WHAT THIS PACKAGE DOES NOT DO:
// It never reads *http.Request or writes cookies. Credentials arrive as an
// auth.RequestContext built at the HTTP edge.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/repository"
	"github.com/sakif/account-service/internal/validation"
)

// Client-facing messages.
const (
	MsgBadRequest         = "Bad Request"
	MsgInvalidCredentials = "Invalid Credentials"
	MsgWrongPassword      = "Wrong Password"
	MsgValidationError    = "Validation Error"
)

// saltLength is the length of the per-user salt column.
const saltLength = 20

// AccountService handles the account business logic.
//
// DEPENDENCIES (injected via NewAccountService):
//   - users   repository.UserRepository → read/write user records
//   - tokens  *auth.TokenService        → sign/verify JWTs
//   - hasher  auth.PasswordHasher       → argon2id hashing
//   - pepper  string                    → server-wide secret appended to every password
//   - logger  *slog.Logger              → structured logging
type AccountService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	hasher auth.PasswordHasher
	pepper string
	logger *slog.Logger
	now    func() time.Time

	// decoy is verified against when there is no real digest to check, so
	// a miss costs as much argon2 work as a wrong password.
	decoy string
}

// NewAccountService creates an AccountService with all required dependencies.
func NewAccountService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	hasher auth.PasswordHasher,
	pepper string,
	logger *slog.Logger,
) *AccountService {
	decoy, err := hasher.Hash(xid.New().String())
	if err != nil {
		logger.Warn("failed to prepare decoy digest", slog.String("error", err.Error()))
	}
	return &AccountService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		pepper: pepper,
		logger: logger,
		now:    time.Now,
		decoy:  decoy,
	}
}

// LoginInput is the body of a login request. Either Username or Email
// identifies the account.
type LoginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult bundles the issued token with the claims it encodes so the
// handler can set the cookie and respond in one step.
type LoginResult struct {
	Token  string       `json:"token"`
	Claims model.Claims `json:"claims"`
}

// UpdateInput is the body of a profile update. Empty fields keep their
// stored value; Password is the caller's current password.
type UpdateInput struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	RoomNumber   string `json:"roomNumber"`
	ProfileImage string `json:"profileImage"`
	Password     string `json:"password"`
}

// Patch returns the profile fields of in.
func (in UpdateInput) Patch() model.UserPatch {
	return model.UserPatch{
		Username:     in.Username,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		RoomNumber:   in.RoomNumber,
		ProfileImage: in.ProfileImage,
	}
}

// DeleteInput is the body of an account deletion.
type DeleteInput struct {
	Password string `json:"password"`
}

// =========================================================================
// REGISTRATION
// =========================================================================

// Register validates and stores a new account.
//
// The payload is the raw JSON object so the shape check can reject fields of
// the wrong type. A policy failure returns apperror.ErrValidation carrying
// the full *validation.Result as Details; on success the same result shape
// is returned with Accepted set.
func (s *AccountService) Register(ctx context.Context, payload map[string]any) (*validation.Result, error) {
	reg, ok := validation.ParseRegistration(payload)
	if !ok {
		return nil, apperror.BadRequest(MsgBadRequest)
	}

	result := validation.ValidateRegistration(reg)
	if !result.Accepted {
		return nil, apperror.ValidationFailedWith(MsgValidationError, result)
	}

	existing, err := s.users.FindAll(ctx, repository.UserFilter{
		Username:    reg.Username,
		Email:       reg.Email,
		PhoneNumber: reg.PhoneNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("service/account: checking uniqueness: %w", err)
	}
	if fields := takenFields(existing, "", reg.Username, reg.Email, reg.PhoneNumber); len(fields) > 0 {
		return nil, apperror.FieldConflict(fields...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	salt, err := auth.NewSalt(saltLength)
	if err != nil {
		return nil, fmt.Errorf("service/account: %w", err)
	}
	digest, err := s.hasher.Hash(reg.Password + salt + s.pepper)
	if err != nil {
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}

	now := s.now().UnixMilli()
	user := &model.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PhoneNumber:  reg.PhoneNumber,
		PasswordHash: digest,
		Salt:         salt,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		RoomNumber:   reg.RoomNumber,
		Role:         0,
		RegisteredOn: now,
		LastLogInOn:  now,
	}

	// The UNIQUE constraints still guard the race between the check above
	// and this insert; that loser gets ErrConflict from the store.
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: inserting user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return &result, nil
}

// =========================================================================
// LOGIN
// =========================================================================

// Login verifies credentials and issues an access token.
//
// An unknown identity, a record without credentials and a wrong password all
// produce the same apperror.ErrUnauthorized with MsgInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if in.Password == "" || (in.Username == "" && in.Email == "") {
		return nil, apperror.BadRequest(MsgBadRequest)
	}

	filter := repository.UserFilter{Username: in.Username}
	if in.Username == "" {
		filter = repository.UserFilter{Email: in.Email}
	}

	user, err := s.users.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.verifyDecoy(in.Password)
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("service/account: looking up login identity: %w", err)
	}
	if in.Username != "" && in.Email != "" && user.Email != in.Email {
		s.verifyDecoy(in.Password)
		return nil, invalidCredentials()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.passwordMatches(user, in.Password) {
		s.logger.Info("login rejected", slog.String("userID", user.ID))
		return nil, invalidCredentials()
	}

	now := s.now()
	claims := model.Claims{
		Username: user.Username,
		IssuedAt: now,
		ID:       user.ID,
	}
	token, err := s.tokens.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("service/account: signing token for %s: %w", user.ID, err)
	}

	if err := s.users.RecordLogin(ctx, user.ID, now.UnixMilli()); err != nil {
		s.logger.Warn("failed to record login",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &LoginResult{Token: token, Claims: claims}, nil
}

// =========================================================================
// AUTHORIZED OPERATIONS
// =========================================================================

// VerifyToken returns the claims of the request's token.
func (s *AccountService) VerifyToken(ctx context.Context, rc auth.RequestContext) (*model.Claims, error) {
	return auth.Authenticate(rc, s.tokens)
}

// GetProfile returns the profile of the user named by identifier, which is
// a username or an internal ID.
//
// An identifier shaped like an xid is looked up by ID first, so a username
// that happens to equal another account's ID cannot shadow that account.
//
// The owner gets a model.PrivateProfile; anyone else gets a
// model.PublicProfile without email, phone number or room number.
func (s *AccountService) GetProfile(ctx context.Context, rc auth.RequestContext, identifier string) (any, error) {
	claims, err := auth.Authenticate(rc, s.tokens)
	if err != nil {
		return nil, err
	}
	if identifier == "" {
		return nil, apperror.BadRequest(MsgBadRequest)
	}

	first, second := repository.UserFilter{Username: identifier}, repository.UserFilter{ID: identifier}
	if _, perr := xid.FromString(identifier); perr == nil {
		first, second = second, first
	}
	target, err := s.users.FindOne(ctx, first)
	if errors.Is(err, apperror.ErrNotFound) {
		target, err = s.users.FindOne(ctx, second)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user", identifier)
		}
		return nil, fmt.Errorf("service/account: fetching profile %s: %w", identifier, err)
	}

	if isSelf(claims, target) {
		return target.Private(), nil
	}
	return target.Public(), nil
}

// UpdateSelf applies in to the caller's own account.
//
// Preconditions, in order: a valid token, the current password, well-formed
// replacement username/email/phone, and no other account owning any of
// them. The store is not written unless all of them hold.
func (s *AccountService) UpdateSelf(ctx context.Context, rc auth.RequestContext, in UpdateInput) error {
	self, err := s.authorizeSelf(ctx, rc, in.Password)
	if err != nil {
		return err
	}

	patch := in.Patch()
	if err := validatePatch(patch); err != nil {
		return err
	}

	if filter := uniqueFilter(patch); !filter.IsEmpty() {
		others, err := s.users.FindAll(ctx, filter)
		if err != nil {
			return fmt.Errorf("service/account: checking uniqueness: %w", err)
		}
		if fields := takenFields(others, self.ID, patch.Username, patch.Email, patch.PhoneNumber); len(fields) > 0 {
			return apperror.FieldConflict(fields...)
		}
	}

	if err := s.users.Update(ctx, self.ID, patch); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/account: updating user %s: %w", self.ID, err)
	}

	s.logger.Info("profile updated", slog.String("userID", self.ID))
	return nil
}

// DeleteSelf removes the caller's own account after confirming the password.
func (s *AccountService) DeleteSelf(ctx context.Context, rc auth.RequestContext, in DeleteInput) error {
	self, err := s.authorizeSelf(ctx, rc, in.Password)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, self.ID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/account: deleting user %s: %w", self.ID, err)
	}

	s.logger.Info("user deleted", slog.String("userID", self.ID))
	return nil
}

// authorizeSelf verifies the token, loads the account it names and checks
// password against it.
func (s *AccountService) authorizeSelf(ctx context.Context, rc auth.RequestContext, password string) (*model.User, error) {
	claims, err := auth.Authenticate(rc, s.tokens)
	if err != nil {
		return nil, err
	}

	filter := repository.UserFilter{ID: claims.ID}
	if claims.ID == "" {
		filter = repository.UserFilter{Username: claims.Username}
	}
	self, err := s.users.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// the token outlived its account
			return nil, apperror.Unauthorized(auth.MsgTokenInvalid)
		}
		return nil, fmt.Errorf("service/account: loading caller: %w", err)
	}

	if password == "" {
		return nil, apperror.BadRequest(MsgBadRequest)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.passwordMatches(self, password) {
		return nil, apperror.Unauthorized(MsgWrongPassword)
	}
	return self, nil
}

// passwordMatches verifies password+salt+pepper against the stored digest.
// Hasher errors count as a mismatch.
func (s *AccountService) passwordMatches(u *model.User, password string) bool {
	if u.Salt == "" || u.PasswordHash == "" {
		s.verifyDecoy(password)
		return false
	}
	ok, err := s.hasher.Verify(u.PasswordHash, password+u.Salt+s.pepper)
	if err != nil {
		s.logger.Warn("stored password digest unreadable", slog.String("userID", u.ID))
		return false
	}
	return ok
}

// verifyDecoy spends one Verify on the decoy digest; the result is ignored.
func (s *AccountService) verifyDecoy(password string) {
	if s.decoy == "" {
		return
	}
	_, _ = s.hasher.Verify(s.decoy, password+s.pepper)
}

func invalidCredentials() error {
	return apperror.Unauthorized(MsgInvalidCredentials)
}

func isSelf(claims *model.Claims, target *model.User) bool {
	if claims.ID != "" {
		return claims.ID == target.ID
	}
	return claims.Username == target.Username
}

// validatePatch checks the shape of each identifying field being replaced
// and reports every malformed one.
func validatePatch(p model.UserPatch) error {
	var fields []string
	if p.Username != "" && !validation.ValidUsername(p.Username) {
		fields = append(fields, "username")
	}
	if p.Email != "" && !validation.ValidEmail(p.Email) {
		fields = append(fields, "email")
	}
	if p.PhoneNumber != "" && !validation.ValidPhoneNumber(p.PhoneNumber) {
		fields = append(fields, "phoneNumber")
	}
	if len(fields) == 0 {
		return nil
	}
	return apperror.InvalidFields(fields...)
}

func uniqueFilter(p model.UserPatch) repository.UserFilter {
	return repository.UserFilter{
		Username:    p.Username,
		Email:       p.Email,
		PhoneNumber: p.PhoneNumber,
	}
}

// takenFields lists, in a fixed order, which of username/email/phone are
// already owned by a user other than selfID. Empty values are never taken.
func takenFields(users []model.User, selfID, username, email, phone string) []string {
	var taken [3]bool
	for _, u := range users {
		if u.ID == selfID && selfID != "" {
			continue
		}
		taken[0] = taken[0] || (username != "" && u.Username == username)
		taken[1] = taken[1] || (email != "" && u.Email == email)
		taken[2] = taken[2] || (phone != "" && u.PhoneNumber == phone)
	}

	var fields []string
	for i, name := range []string{"username", "email", "phoneNumber"} {
		if taken[i] {
			fields = append(fields, name)
		}
	}
	return fields
}
