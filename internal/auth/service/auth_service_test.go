package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"company-portal/backend/internal/apperror"
	"company-portal/backend/internal/auth/repository"
	companydomain "company-portal/backend/internal/company/domain"
	membershipdomain "company-portal/backend/internal/membership/domain"
	"company-portal/backend/internal/security"
	sessiondomain "company-portal/backend/internal/session/domain"
	userdomain "company-portal/backend/internal/user/domain"
)

type fakeStore struct {
	mu          sync.Mutex
	companies   map[string]companydomain.Company // by slug
	usersByID   map[string]userdomain.User
	memberships []membershipdomain.Membership
	sessions    map[string]sessiondomain.RefreshSession // by session id
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		companies: make(map[string]companydomain.Company),
		usersByID: make(map[string]userdomain.User),
		sessions:  make(map[string]sessiondomain.RefreshSession),
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(f)
}

func (f *fakeStore) FindCompanyBySlug(_ context.Context, slug string) (*companydomain.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.companies[slug]; ok {
		return &c, nil
	}
	return nil, nil
}

func (f *fakeStore) FindUserByEmail(_ context.Context, emailNormalized string) (*userdomain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.usersByID {
		if u.EmailNormalized == emailNormalized {
			copied := u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateSignup(_ context.Context, s *repository.Signup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.companies[s.Company.Slug]; ok {
		return fmt.Errorf("insert company: %w", repository.ErrDuplicate)
	}
	for _, u := range f.usersByID {
		if u.EmailNormalized == s.User.EmailNormalized {
			return fmt.Errorf("insert user: %w", repository.ErrDuplicate)
		}
	}
	f.companies[s.Company.Slug] = s.Company
	f.usersByID[s.User.ID] = s.User
	f.memberships = append(f.memberships, s.Membership)
	return nil
}

func (f *fakeStore) FindLoginProfile(_ context.Context, emailNormalized string) (*repository.LoginProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.usersByID {
		if u.EmailNormalized != emailNormalized {
			continue
		}
		for _, m := range f.memberships {
			if m.UserID == u.ID {
				return &repository.LoginProfile{
					UserID:           u.ID,
					FullName:         u.FullName,
					Email:            u.Email,
					PasswordHash:     u.PasswordHash,
					IsActive:         u.IsActive,
					CompanyID:        m.CompanyID,
					Role:             m.Role,
					MembershipStatus: m.Status,
				}, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateRefreshSession(_ context.Context, s *sessiondomain.RefreshSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sessions {
		if existing.TokenHash == s.TokenHash {
			return fmt.Errorf("insert refresh session: %w", repository.ErrDuplicate)
		}
	}
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeStore) FindActiveRefreshSession(_ context.Context, sessionID, tokenHash string, now time.Time) (*sessiondomain.RefreshSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || s.TokenHash != tokenHash || !s.Active(now) {
		return nil, nil
	}
	copied := s
	return &copied, nil
}

func (f *fakeStore) RotateRefreshSession(_ context.Context, p repository.RotateParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[p.SessionID]
	if !ok || s.TokenHash != p.CurrentTokenHash || s.RevokedAt != nil {
		return false, nil
	}
	now := p.Now
	s.TokenHash = p.NextTokenHash
	s.ExpiresAt = p.ExpiresAt
	s.LastUsedAt = &now
	s.UserAgent = p.UserAgent
	s.IPAddress = p.IPAddress
	f.sessions[p.SessionID] = s
	return true, nil
}

func (f *fakeStore) RevokeRefreshSession(_ context.Context, sessionID, tokenHash string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || s.TokenHash != tokenHash || s.RevokedAt != nil {
		return false, nil
	}
	s.RevokedAt = &now
	s.LastUsedAt = &now
	f.sessions[sessionID] = s
	return true, nil
}

func (f *fakeStore) FindUserInCompany(_ context.Context, userID, companyID string) (*repository.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usersByID[userID]
	if !ok {
		return nil, nil
	}
	for _, m := range f.memberships {
		if m.UserID == userID && m.CompanyID == companyID {
			return &repository.Profile{
				UserID:           u.ID,
				FullName:         u.FullName,
				Email:            u.Email,
				IsActive:         u.IsActive,
				CompanyID:        m.CompanyID,
				Role:             m.Role,
				MembershipStatus: m.Status,
			}, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) setUserActive(userID string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.usersByID[userID]
	u.IsActive = active
	f.usersByID[userID] = u
}

func (f *fakeStore) setMembershipStatus(userID string, status membershipdomain.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.memberships {
		if f.memberships[i].UserID == userID {
			f.memberships[i].Status = status
		}
	}
}

func newTestService(t *testing.T) (*AuthService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	svc, err := NewAuthService(store, security.NewTestHasher(), security.NewTestTokenCodec())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, store
}

func signupFixture(t *testing.T, svc *AuthService) *AuthResult {
	t.Helper()
	res, err := svc.SignupCompany(context.Background(), SignupInput{
		CompanyName: "Acme Corp",
		FullName:    "Ada Admin",
		Email:       "Ada@Acme.test",
		Password:    "correct horse battery",
	}, Meta{UserAgent: "test-agent", IPAddress: "192.0.2.1"})
	if err != nil {
		t.Fatalf("SignupCompany: %v", err)
	}
	return res
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	if got := apperror.StatusOf(err); got != status {
		t.Fatalf("status = %d, want %d (err: %v)", got, status, err)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Corp", "acme-corp"},
		{"  Acme   Corp!  ", "acme-corp"},
		{"ACME", "acme"},
		{"a--b", "a-b"},
		{"---", ""},
		{"Déjà Vu 42", "d-j-vu-42"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSignupCompany(t *testing.T) {
	svc, store := newTestService(t)
	res := signupFixture(t, svc)

	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if res.User.Role != membershipdomain.RoleCompanyAdmin {
		t.Fatalf("role = %q, want %q", res.User.Role, membershipdomain.RoleCompanyAdmin)
	}
	if res.User.Email != "Ada@Acme.test" {
		t.Fatalf("email = %q, want original casing preserved", res.User.Email)
	}
	if _, ok := store.companies["acme-corp"]; !ok {
		t.Fatal("expected slug acme-corp to be derived from company name")
	}
	if res.RefreshExpiresAt.IsZero() || !res.RefreshExpiresAt.After(time.Now()) {
		t.Fatalf("refresh expiry %v is not in the future", res.RefreshExpiresAt)
	}
}

func TestSignupCompanyExplicitSlug(t *testing.T) {
	svc, store := newTestService(t)
	_, err := svc.SignupCompany(context.Background(), SignupInput{
		CompanyName: "Acme Corp",
		CompanySlug: "acme-eu",
		FullName:    "Ada Admin",
		Email:       "ada@acme.test",
		Password:    "correct horse battery",
	}, Meta{})
	if err != nil {
		t.Fatalf("SignupCompany: %v", err)
	}
	if _, ok := store.companies["acme-eu"]; !ok {
		t.Fatal("expected explicit slug to win over derived one")
	}
}

func TestSignupCompanyDuplicateSlug(t *testing.T) {
	svc, _ := newTestService(t)
	signupFixture(t, svc)

	_, err := svc.SignupCompany(context.Background(), SignupInput{
		CompanyName: "Acme Corp",
		FullName:    "Bea Boss",
		Email:       "bea@other.test",
		Password:    "another password",
	}, Meta{})
	wantStatus(t, err, 409)
}

func TestSignupCompanyDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	signupFixture(t, svc)

	_, err := svc.SignupCompany(context.Background(), SignupInput{
		CompanyName: "Other Co",
		FullName:    "Ada Again",
		Email:       "ADA@acme.test", // same after normalization
		Password:    "another password",
	}, Meta{})
	wantStatus(t, err, 409)
}

func TestSignupCompanyUnusableName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SignupCompany(context.Background(), SignupInput{
		CompanyName: "!!!",
		FullName:    "Ada Admin",
		Email:       "ada@acme.test",
		Password:    "correct horse battery",
	}, Meta{})
	wantStatus(t, err, 400)
}

func TestSignupCompanyConcurrentSameSlug(t *testing.T) {
	svc, _ := newTestService(t)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SignupCompany(context.Background(), SignupInput{
				CompanyName: "Acme Corp",
				FullName:    "Racer",
				Email:       fmt.Sprintf("racer%d@acme.test", i),
				Password:    "correct horse battery",
			}, Meta{})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		wantStatus(t, err, 409)
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	signupFixture(t, svc)

	res, err := svc.Login(context.Background(), "ada@acme.test", "correct horse battery", Meta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.FullName != "Ada Admin" {
		t.Fatalf("full name = %q", res.User.FullName)
	}

	codec := security.NewTestTokenCodec()
	claims, err := codec.VerifyAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != res.User.ID || claims.CompanyID != res.User.CompanyID {
		t.Fatal("access claims do not match the issued user view")
	}
	if claims.SessionID == "" {
		t.Fatal("access claims missing session id")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	signupFixture(t, svc)

	_, err := svc.Login(context.Background(), "ada@acme.test", "wrong password", Meta{})
	wantStatus(t, err, 401)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)
	signupFixture(t, svc)

	_, err := svc.Login(context.Background(), "nobody@acme.test", "correct horse battery", Meta{})
	wantStatus(t, err, 401)
}

func TestLoginDeactivatedUser(t *testing.T) {
	svc, store := newTestService(t)
	res := signupFixture(t, svc)
	store.setUserActive(res.User.ID, false)

	_, err := svc.Login(context.Background(), "ada@acme.test", "correct horse battery", Meta{})
	wantStatus(t, err, 403)
}

func TestLoginDisabledMembership(t *testing.T) {
	svc, store := newTestService(t)
	res := signupFixture(t, svc)
	store.setMembershipStatus(res.User.ID, membershipdomain.StatusDisabled)

	_, err := svc.Login(context.Background(), "ada@acme.test", "correct horse battery", Meta{})
	wantStatus(t, err, 403)
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _ := newTestService(t)
	first := signupFixture(t, svc)

	second, err := svc.Refresh(context.Background(), first.RefreshToken, Meta{UserAgent: "new-agent"})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	if second.User.ID != first.User.ID {
		t.Fatal("rotated session changed user")
	}

	// The pre-rotation token must now be rejected.
	if _, err := svc.Refresh(context.Background(), first.RefreshToken, Meta{}); err == nil {
		t.Fatal("stale refresh token was accepted")
	} else {
		wantStatus(t, err, 401)
	}

	// The rotated token keeps working.
	if _, err := svc.Refresh(context.Background(), second.RefreshToken, Meta{}); err != nil {
		t.Fatalf("rotated token rejected: %v", err)
	}
}

func TestRefreshGarbageToken(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Refresh(context.Background(), "not-a-jwt", Meta{})
	wantStatus(t, err, 401)
}

func TestRefreshConcurrentSameToken(t *testing.T) {
	svc, _ := newTestService(t)
	res := signupFixture(t, svc)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(context.Background(), res.RefreshToken, Meta{})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		wantStatus(t, err, 401)
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
}

func TestRefreshAfterLogout(t *testing.T) {
	svc, _ := newTestService(t)
	res := signupFixture(t, svc)

	svc.Logout(context.Background(), res.RefreshToken)

	_, err := svc.Refresh(context.Background(), res.RefreshToken, Meta{})
	wantStatus(t, err, 401)
}

func TestLogoutIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	res := signupFixture(t, svc)

	svc.Logout(context.Background(), res.RefreshToken)
	svc.Logout(context.Background(), res.RefreshToken) // already revoked
	svc.Logout(context.Background(), "")               // missing cookie
	svc.Logout(context.Background(), "garbage")        // undecodable

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, s := range store.sessions {
		if s.RevokedAt == nil {
			t.Fatal("session left unrevoked after logout")
		}
	}
}

func TestGetProfile(t *testing.T) {
	svc, _ := newTestService(t)
	res := signupFixture(t, svc)

	view, err := svc.GetProfile(context.Background(), res.User.ID, res.User.CompanyID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if view.Email != "Ada@Acme.test" || view.Role != membershipdomain.RoleCompanyAdmin {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestGetProfileMissingMembership(t *testing.T) {
	svc, _ := newTestService(t)
	res := signupFixture(t, svc)

	_, err := svc.GetProfile(context.Background(), res.User.ID, "00000000-0000-0000-0000-000000000000")
	wantStatus(t, err, 404)
}

func TestGetProfileDisabledMembership(t *testing.T) {
	svc, store := newTestService(t)
	res := signupFixture(t, svc)
	store.setMembershipStatus(res.User.ID, membershipdomain.StatusDisabled)

	_, err := svc.GetProfile(context.Background(), res.User.ID, res.User.CompanyID)
	wantStatus(t, err, 403)
}

func TestSignupConflictWrapsDuplicate(t *testing.T) {
	// A duplicate that slips past the pre-checks (simulated by a store whose
	// lookups always miss) must still come back as a conflict.
	svc, store := newTestService(t)
	signupFixture(t, svc)

	blind := &blindStore{fakeStore: store}
	svcBlind, err := NewAuthService(blind, security.NewTestHasher(), security.NewTestTokenCodec())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	_, err = svcBlind.SignupCompany(context.Background(), SignupInput{
		CompanyName: "Acme Corp",
		FullName:    "Ada Again",
		Email:       "ada@acme.test",
		Password:    "correct horse battery",
	}, Meta{})
	wantStatus(t, err, 409)
	if !errorsIsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

// blindStore hides existing rows from the pre-check lookups so the insert path
// has to rely on uniqueness constraints.
type blindStore struct {
	*fakeStore
}

func (b *blindStore) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(b)
}

func (b *blindStore) FindCompanyBySlug(context.Context, string) (*companydomain.Company, error) {
	return nil, nil
}

func (b *blindStore) FindUserByEmail(context.Context, string) (*userdomain.User, error) {
	return nil, nil
}

func errorsIsConflict(err error) bool {
	var appErr *apperror.Error
	return errors.As(err, &appErr) && appErr.Status == 409
}
