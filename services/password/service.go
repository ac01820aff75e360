package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Fallback credentials are salted SHA-256 digests encoded as
// $fallback$<salt>$<digest> with both fields hex encoded.
const (
	fallbackPrefix     = "$fallback$"
	fallbackSaltLength = 32
)

// scheme is a single hashing strategy. Hashing dispatches to the
// configured primary scheme and verification dispatches on the format
// of the stored credential.
type scheme interface {
	name() string
	hash(password string) (string, error)
	verify(password, credential string) bool
}

type Service struct {
	logger   *logging.Service
	bcrypt   scheme
	fallback scheme
	primary  scheme
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		cfg.Auth.BcryptCost = bcrypt.DefaultCost
	}

	s := &Service{
		logger:   logger,
		bcrypt:   bcryptScheme{cost: cfg.Auth.BcryptCost},
		fallback: fallbackScheme{},
	}

	s.primary = s.bcrypt
	if cfg.Auth.ForceFallbackHashing {
		if logger != nil {
			logger.Warn("fallback hashing forced by configuration, new credentials will not use bcrypt")
		}
		s.primary = s.fallback
	}

	return s
}

// Hash always returns a usable credential. When the primary scheme
// cannot process the input it degrades to the fallback scheme instead
// of failing.
func (s *Service) Hash(password string) string {
	credential, err := s.primary.hash(password)
	if err == nil {
		return credential
	}

	if s.logger != nil {
		s.logger.Warn("primary hashing scheme unavailable, using fallback",
			zap.String("scheme", s.primary.name()),
			zap.Error(err))
	}

	credential, err = s.fallback.hash(password)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("fallback hashing failed", zap.Error(err))
		}
		return ""
	}

	return credential
}

// Verify reports whether password matches the stored credential. It
// never returns an error: malformed credentials simply do not match.
func (s *Service) Verify(password, credential string) bool {
	return s.schemeFor(credential).verify(password, credential)
}

// schemeFor picks the scheme that produced a stored credential, so
// existing bcrypt credentials keep verifying even when new hashes are
// forced onto the fallback scheme.
func (s *Service) schemeFor(credential string) scheme {
	if strings.HasPrefix(credential, fallbackPrefix) {
		return s.fallback
	}
	return s.bcrypt
}

type bcryptScheme struct {
	cost int
}

func (bcryptScheme) name() string { return "bcrypt" }

func (b bcryptScheme) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (bcryptScheme) verify(password, credential string) bool {
	return bcrypt.CompareHashAndPassword([]byte(credential), []byte(password)) == nil
}

type fallbackScheme struct{}

func (fallbackScheme) name() string { return "fallback" }

func (fallbackScheme) hash(password string) (string, error) {
	salt := make([]byte, fallbackSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	digest := sha256.Sum256(append([]byte(password), salt...))
	return fallbackPrefix + hex.EncodeToString(salt) + "$" + hex.EncodeToString(digest[:]), nil
}

func (fallbackScheme) verify(password, credential string) bool {
	parts := strings.Split(credential, "$")
	if len(parts) != 4 {
		return false
	}

	salt, err := hex.DecodeString(parts[2])
	if err != nil {
		return false
	}

	expected, err := hex.DecodeString(parts[3])
	if err != nil {
		return false
	}

	digest := sha256.Sum256(append([]byte(password), salt...))
	return subtle.ConstantTimeCompare(digest[:], expected) == 1
}
