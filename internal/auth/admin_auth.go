package auth

import "errors"

// ErrNotAdmin is returned by AdminAuthService.Login when the
// credentials are valid but the account does not hold an admin role.
// Dispute resolution (spec.md §4.7) is the one action in this core that
// needs an authenticated human actor, and it is admin-only.
var ErrNotAdmin = errors.New("account does not have admin privileges")

// AdminAuthService narrows AuthService to the one login flow this
// marketplace core actually needs: an admin authenticating to resolve a
// dispute. It reuses AuthService's bcrypt hashing and JWT issuance
// unchanged and adds the one extra check the generic service has no
// opinion about — that the authenticated account is RoleAdmin or above.
type AdminAuthService struct {
	*AuthService
}

// NewAdminAuthService builds an AdminAuthService over the same
// UserRepository/JWT secret AuthService uses.
func NewAdminAuthService(userRepo UserRepository, jwtSecret string) *AdminAuthService {
	return &AdminAuthService{AuthService: NewAuthService(userRepo, jwtSecret)}
}

// Login authenticates and issues a JWT, same as AuthService.LoginUser,
// but rejects a correctly-authenticated non-admin account.
func (s *AdminAuthService) Login(username, password string) (*User, string, error) {
	user, token, err := s.AuthService.LoginUser(username, password)
	if err != nil {
		return nil, "", err
	}
	if user.Role.Level() < RoleAdmin.Level() {
		return nil, "", ErrNotAdmin
	}
	return user, token, nil
}

// UserByID looks up a user by id, for middleware re-confirming the
// role carried by an already-validated JWT's subject.
func (s *AdminAuthService) UserByID(id int64) (*User, error) {
	return s.userRepo.GetUserByID(id)
}

// JWTSecretString exposes the signing secret for gin middleware
// constructed outside this package (internal/api's AuthMiddlewareStandalone).
func (s *AdminAuthService) JWTSecretString() string {
	return string(s.jwtSecret)
}
