package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Provisioner orchestrates registration, login, logout, session
// validation and profile provisioning.
type Provisioner struct {
	repo      RepositoryManager
	hasher    PasswordHasher
	tokens    TokenService
	sessions  *SessionManager
	didDomain string
	limiter   RateLimiter
	activity  ActivitySink
	provider  LoggerProvider
	logger    Logger
	useHashid bool
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// ProvisionerOption configures a Provisioner
type ProvisionerOption func(*Provisioner)

// WithDIDDomain sets the did:web domain used for new users
func WithDIDDomain(domain string) ProvisionerOption {
	return func(p *Provisioner) {
		p.didDomain = strings.TrimSpace(domain)
	}
}

// WithRateLimiter throttles login attempts
func WithRateLimiter(l RateLimiter) ProvisionerOption {
	return func(p *Provisioner) {
		p.limiter = l
	}
}

// WithActivitySink registers a sink for audit events
func WithActivitySink(s ActivitySink) ProvisionerOption {
	return func(p *Provisioner) {
		p.activity = normalizeActivitySink(s)
	}
}

// WithLoggerProvider resolves the provisioner logger from provider
func WithLoggerProvider(provider LoggerProvider) ProvisionerOption {
	return func(p *Provisioner) {
		p.provider, p.logger = ResolveLogger("auth.provisioner", provider, p.logger)
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) ProvisionerOption {
	return func(p *Provisioner) {
		p.provider, p.logger = ResolveLogger("auth.provisioner", nil, logger)
	}
}

// WithDeterministicIDs derives user ids from the username with hashid
func WithDeterministicIDs(enabled bool) ProvisionerOption {
	return func(p *Provisioner) {
		p.useHashid = enabled
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) ProvisionerOption {
	return func(p *Provisioner) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProvisioner creates a provisioner
func NewProvisioner(repo RepositoryManager, hasher PasswordHasher, tokens TokenService, sessions *SessionManager, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		activity: noopActivitySink{},
		now:      defaultNow,
	}
	p.provider, p.logger = ResolveLogger("auth.provisioner", nil, nil)

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Register creates user, profile and session as one transaction and
// returns them with a signed token.
func (p *Provisioner) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	exists, err := UsernameExists(ctx, p.repo.Users(), in.Username)
	if err != nil {
		return nil, internalError(err, "failed to check username")
	}
	if exists {
		return nil, alreadyExists("username", nil)
	}

	hash, err := p.hasher.Hash(in.Password)
	if err != nil {
		if KindOf(err) == KindValidation {
			return nil, err
		}
		return nil, internalError(err, "failed to hash password")
	}

	user := &User{
		Username:     in.Username,
		PasswordHash: hash,
		DID:          DeriveDID(p.didDomain, in.Username),
		Role:         RoleUser,
	}
	if p.useHashid {
		if id, err := hashid.NewUUID(in.Username); err == nil {
			user.ID = id
		}
	}

	var result *AuthResult
	err = p.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := p.now()

		created, err := CreateUser(ctx, p.repo.Users().InTx(tx), user, now)
		if err != nil {
			if IsConflict(err) {
				return alreadyExists("username", err)
			}
			return internalError(err, "failed to create user")
		}

		profile, err := CreateProfile(ctx, p.repo.Profiles().InTx(tx), &Profile{
			UserID:      created.ID,
			DisplayName: in.DisplayName,
		}, now)
		if err != nil {
			if IsConflict(err) {
				return alreadyExists("profile", err)
			}
			return internalError(err, "failed to create profile")
		}

		session, err := p.sessions.CreateTx(ctx, tx, created.ID)
		if err != nil {
			return err
		}

		token, err := p.issue(created, session)
		if err != nil {
			return err
		}

		result = &AuthResult{
			User:    created.Public(),
			Profile: profile,
			Session: session,
			Token:   token,
		}
		return nil
	})

	if err != nil {
		return nil, txError(err, "user registration transaction failed")
	}

	p.record(ctx, ActivityEvent{
		EventType: ActivityEventRegisterSuccess,
		UserID:    result.User.ID.String(),
		Username:  result.User.Username,
		SessionID: result.Session.ID.String(),
	})

	return result, nil
}

// Login verifies credentials and opens a new session. Unknown users and
// wrong passwords fail the same way.
func (p *Provisioner) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if err := p.checkRate(ctx, in); err != nil {
		return nil, err
	}

	user, err := FindUserByUsername(ctx, p.repo.Users(), in.Username)
	if err != nil {
		if !IsRecordNotFound(err) {
			return nil, internalError(err, "failed to load user")
		}
		p.hasher.Verify(p.timingHash(), in.Password)
		p.loginFailed(ctx, in.Username)
		return nil, ErrInvalidCredentials.Clone()
	}

	if !p.hasher.Verify(user.PasswordHash, in.Password) {
		p.loginFailed(ctx, in.Username)
		return nil, ErrInvalidCredentials.Clone()
	}

	session, err := p.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, err := p.issue(user, session)
	if err != nil {
		if rerr := p.sessions.Revoke(ctx, session.ID); rerr != nil {
			p.logger.Warn("failed to drop session after signing error", "session_id", session.ID, "error", rerr)
		}
		return nil, err
	}

	profile := p.profileBestEffort(ctx, user.ID)

	p.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
		Username:  user.Username,
		SessionID: session.ID.String(),
	})

	return &AuthResult{
		User:    user.Public(),
		Profile: profile,
		Session: session,
		Token:   token,
	}, nil
}

// Logout revokes the session. It always succeeds.
func (p *Provisioner) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := p.sessions.Revoke(ctx, sessionID); err != nil {
		p.logger.Warn("logout could not revoke session", "session_id", sessionID, "error", err)
		return nil
	}

	p.record(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		SessionID: sessionID.String(),
	})
	return nil
}

// LogoutAll revokes every session of userID
func (p *Provisioner) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	n, err := p.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return err
	}

	p.record(ctx, ActivityEvent{
		EventType: ActivityEventLogoutAll,
		UserID:    userID.String(),
		Metadata:  map[string]any{"revoked": n},
	})
	return nil
}

// ValidateSession resolves a bearer token to a principal. Anything short
// of a verified token pointing at a live session is anonymous (nil, nil);
// only store failures are returned as errors.
func (p *Provisioner) ValidateSession(ctx context.Context, token string) (*Principal, error) {
	claims, ok := p.tokens.Verify(token)
	if !ok {
		return nil, nil
	}

	sessionID, err := uuid.Parse(claims.SessionID())
	if err != nil {
		return nil, nil
	}

	session, user, err := p.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || user == nil {
		return nil, nil
	}

	if user.ID.String() != claims.UserID() {
		p.logger.Warn("token subject does not own session", "session_id", session.ID)
		return nil, nil
	}

	return &Principal{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		DID:       user.DID,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
		Profile:   p.profileBestEffort(ctx, user.ID),
	}, nil
}

// CreateOrGetProfile creates the profile of userID, or returns the one a
// concurrent caller created first. The unique index on user_id decides.
func (p *Provisioner) CreateOrGetProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*Profile, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	exists, err := UserExists(ctx, p.repo.Users(), userID)
	if err != nil {
		return nil, internalError(err, "failed to check user")
	}
	if !exists {
		return nil, notFound("user")
	}

	profiles := p.repo.Profiles()
	profile, err := CreateProfile(ctx, profiles, &Profile{
		UserID:      userID,
		DisplayName: in.DisplayName,
		Bio:         in.Bio,
		AvatarURL:   in.AvatarURL,
		BannerURL:   in.BannerURL,
		Metadata:    in.Metadata,
	}, p.now())

	if err == nil {
		p.record(ctx, ActivityEvent{
			EventType: ActivityEventProfileCreated,
			UserID:    userID.String(),
		})
		return profile, nil
	}

	if !IsConflict(err) {
		return nil, internalError(err, "failed to create profile")
	}

	existing, err := FindProfileByUserID(ctx, profiles, userID)
	if err != nil {
		return nil, internalError(err, "failed to load existing profile")
	}
	return existing, nil
}

// GetProfile returns the profile of userID
func (p *Provisioner) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	profile, err := FindProfileByUserID(ctx, p.repo.Profiles(), userID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, notFound("profile")
		}
		return nil, internalError(err, "failed to load profile")
	}
	return profile, nil
}

// UpdateProfile applies a partial update. Metadata keys are merged into
// the stored map; a nil value removes the key.
func (p *Provisioner) UpdateProfile(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (*Profile, error) {
	if patch.DisplayName != nil {
		name := strings.TrimSpace(*patch.DisplayName)
		patch.DisplayName = &name
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return p.GetProfile(ctx, userID)
	}

	var updated *Profile
	err := p.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		profiles := p.repo.Profiles().InTx(tx)

		current, err := FindProfileByUserID(ctx, profiles, userID)
		if err != nil {
			if IsRecordNotFound(err) {
				return notFound("profile")
			}
			return internalError(err, "failed to load profile")
		}

		cols := patch.Columns()
		if patch.Metadata != nil {
			cols["metadata"] = mergeMetadata(current.Metadata, patch.Metadata)
		}
		cols["updated_at"] = p.now()

		updated, err = MergeProfile(ctx, profiles, current.ID, cols)
		if err != nil {
			return internalError(err, "failed to update profile")
		}
		return nil
	})

	if err != nil {
		return nil, txError(err, "profile update transaction failed")
	}

	p.record(ctx, ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		UserID:    userID.String(),
	})

	return updated, nil
}

func (p *Provisioner) issue(user *User, session *Session) (string, error) {
	return p.tokens.Issue(Claims{
		UserID:    user.ID.String(),
		Username:  user.Username,
		Role:      user.Role,
		SessionID: session.ID.String(),
	}, session.ExpiresAt.Sub(session.CreatedAt))
}

func (p *Provisioner) checkRate(ctx context.Context, in LoginInput) error {
	if p.limiter == nil {
		return nil
	}

	key := "login:" + strings.ToLower(in.Username)
	if in.ClientKey != "" {
		key += ":" + in.ClientKey
	}

	ok, err := p.limiter.Allow(ctx, key)
	if err != nil {
		p.logger.Warn("rate limiter unavailable", "error", err)
		return nil
	}
	if !ok {
		return ErrRateLimited.Clone()
	}
	return nil
}

// timingHash is verified against when the username is unknown so both
// failure paths spend the same hashing time.
func (p *Provisioner) timingHash() string {
	p.dummyOnce.Do(func() {
		p.dummyHash, _ = p.hasher.Hash(uuid.NewString())
	})
	return p.dummyHash
}

func (p *Provisioner) loginFailed(ctx context.Context, username string) {
	p.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Username:  username,
	})
}

func (p *Provisioner) profileBestEffort(ctx context.Context, userID uuid.UUID) *Profile {
	profile, err := FindProfileByUserID(ctx, p.repo.Profiles(), userID)
	if err != nil {
		if !IsRecordNotFound(err) {
			p.logger.Warn("profile lookup failed", "user_id", userID, "error", err)
		}
		return nil
	}
	return profile
}

func (p *Provisioner) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now()
	}
	if err := p.activity.Record(ctx, event); err != nil {
		p.logger.Warn("activity sink failed", "event", event.EventType, "error", err)
	}
}

func mergeMetadata(current, patch map[string]any) map[string]any {
	out := make(map[string]any, len(current)+len(patch))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

func txError(err error, msg string) error {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return rich
	}
	return internalError(err, msg)
}

// ActiveSessions lists the unexpired sessions of userID
func (p *Provisioner) ActiveSessions(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	return p.sessions.ListActive(ctx, userID)
}

// SessionTTL is the lifetime given to new sessions
func (p *Provisioner) SessionTTL() time.Duration {
	return p.sessions.TTL()
}
