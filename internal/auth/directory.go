package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Account is a login entry of the demo directory.
type Account struct {
	Identity     Identity
	PasswordHash string
}

// Credential is a plaintext seed entry, hashed when the directory is built.
type Credential struct {
	Identity Identity
	Password string
}

// DemoCredentials are the three portal users of the demo deployment.
var DemoCredentials = []Credential{
	{
		Identity: Identity{ID: "1", Email: "hospital@example.com", Name: "City General Hospital", Role: RoleHospital},
		Password: "hospital123",
	},
	{
		Identity: Identity{ID: "2", Email: "insurance@example.com", Name: "HealthGuard Insurance", Role: RoleInsurance},
		Password: "insurance123",
	},
	{
		Identity: Identity{ID: "3", Email: "patient@example.com", Name: "John Doe", Role: RolePatient, PatientID: "PAT123"},
		Password: "patient123",
	},
}

// Directory resolves e-mail/password pairs to identities. It stands in for an
// external identity provider and holds only bcrypt hashes.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]Account // lower-cased email -> account
}

// NewDirectory hashes the supplied credentials with the given bcrypt cost
// (bcrypt.DefaultCost when cost <= 0).
func NewDirectory(creds []Credential, cost int) (*Directory, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	d := &Directory{accounts: make(map[string]Account, len(creds))}
	for _, c := range creds {
		if err := c.Identity.Validate(); err != nil {
			return nil, err
		}
		email := normalizeEmail(c.Identity.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
		}
		hash, err := hashPassword(c.Password, cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", email, err)
		}
		id := c.Identity
		id.Email = email
		d.accounts[email] = Account{Identity: id, PasswordHash: hash}
	}
	return d, nil
}

// Authenticate returns the identity registered under email when password matches.
func (d *Directory) Authenticate(email, password string) (Identity, error) {
	d.mu.RLock()
	acc, ok := d.accounts[normalizeEmail(email)]
	d.mu.RUnlock()
	if !ok {
		return Identity{}, ErrInvalidCredentials
	}
	if err := verifyPassword(acc.PasswordHash, password); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return acc.Identity, nil
}

// Lookup returns the account identity for email without checking a password.
func (d *Directory) Lookup(email string) (Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.accounts[normalizeEmail(email)]
	return acc.Identity, ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string, cost int) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
