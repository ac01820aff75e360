package auth

import (
	"errors"
	"sync"
	"testing"

	"github.com/mindmarks/accounts/config"
	"github.com/mindmarks/accounts/services/jwt"
	"github.com/mindmarks/accounts/services/password"
	"github.com/mindmarks/accounts/services/passwordreset"
	"github.com/mindmarks/accounts/services/refreshtoken"
	"github.com/mindmarks/accounts/services/users"
	"github.com/mindmarks/accounts/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	cfg       *config.Config
	db        *gorm.DB
	service   *Service
	passwords *password.Service
	tokens    *jwt.Service
	sessions  refreshtoken.RefreshTokenStore
	notifier  *testutils.MockNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, &users.User{}, &refreshtoken.RefreshToken{}, &passwordreset.PasswordResetToken{})

	passwords := password.NewService(cfg, nil)
	tokens := jwt.NewService(cfg, nil)
	sessions := refreshtoken.NewService(db, cfg, nil)
	notifier := &testutils.MockNotifier{}

	service := NewService(cfg, nil,
		users.NewService(db, nil),
		passwords,
		tokens,
		sessions,
		passwordreset.NewService(db, cfg, nil),
		notifier,
	)

	return &testEnv{
		cfg:       cfg,
		db:        db,
		service:   service,
		passwords: passwords,
		tokens:    tokens,
		sessions:  sessions,
		notifier:  notifier,
	}
}

func registerTestUser(t *testing.T, env *testEnv) *users.User {
	t.Helper()

	user, err := env.service.Register(
		testutils.TestUsers.ValidUser.Email,
		testutils.TestUsers.ValidUser.FullName,
		testutils.TestPasswords.Valid,
	)
	require.NoError(t, err)
	return user
}

func deactivateUser(t *testing.T, env *testEnv, userID string) {
	t.Helper()
	require.NoError(t, env.db.Model(&users.User{}).Where("id = ?", userID).Update("is_active", false).Error)
}

func TestService_Register(t *testing.T) {
	env := newTestEnv(t)

	t.Run("creates an account with a hashed credential", func(t *testing.T) {
		user, err := env.service.Register("  New@Example.COM ", "New User", testutils.TestPasswords.Valid)

		require.NoError(t, err)
		assert.Equal(t, "new@example.com", user.Email)
		assert.True(t, user.IsActive)
		assert.NotEqual(t, testutils.TestPasswords.Valid, user.HashedPassword)
		assert.True(t, env.passwords.Verify(testutils.TestPasswords.Valid, user.HashedPassword))
	})

	t.Run("rejects a short password before touching storage", func(t *testing.T) {
		user, err := env.service.Register("short@example.com", "Short", testutils.TestPasswords.TooShort)

		require.Error(t, err)
		assert.Nil(t, user)
		testutils.AssertErrorType(t, ErrWeakPassword, err)

		var count int64
		require.NoError(t, env.db.Model(&users.User{}).Where("email = ?", "short@example.com").Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("rejects a taken email", func(t *testing.T) {
		user, err := env.service.Register("new@example.com", "Imposter", testutils.TestPasswords.Valid)

		require.Error(t, err)
		assert.Nil(t, user)
		testutils.AssertErrorType(t, ErrEmailTaken, err)
	})
}

func TestService_Login(t *testing.T) {
	env := newTestEnv(t)
	user := registerTestUser(t, env)

	t.Run("issues a bearer pair and persists the session", func(t *testing.T) {
		pair, err := env.service.Login(user.Email, testutils.TestPasswords.Valid)

		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.Equal(t, "bearer", pair.TokenType)

		accessClaims, err := env.tokens.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, accessClaims.UserID)

		refreshClaims, err := env.tokens.ValidateRefreshToken(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, refreshClaims.UserID)

		session, err := env.sessions.FindLive(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, session.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		pair, err := env.service.Login(user.Email, "WrongPassword123")

		require.Error(t, err)
		assert.Nil(t, pair)
		testutils.AssertErrorType(t, ErrInvalidCredentials, err)
	})

	t.Run("unknown email is indistinguishable from a wrong password", func(t *testing.T) {
		_, unknownErr := env.service.Login("nobody@example.com", testutils.TestPasswords.Valid)
		_, wrongErr := env.service.Login(user.Email, "WrongPassword123")

		require.Error(t, unknownErr)
		assert.Equal(t, wrongErr, unknownErr)
	})

	t.Run("inactive account with the right password", func(t *testing.T) {
		inactive, err := env.service.Register(
			testutils.TestUsers.InactiveUser.Email,
			testutils.TestUsers.InactiveUser.FullName,
			testutils.TestPasswords.Valid,
		)
		require.NoError(t, err)
		deactivateUser(t, env, inactive.ID)

		pair, err := env.service.Login(inactive.Email, testutils.TestPasswords.Valid)

		require.Error(t, err)
		assert.Nil(t, pair)
		testutils.AssertErrorType(t, ErrInactiveAccount, err)
	})

	t.Run("credentials are checked before the account flag", func(t *testing.T) {
		pair, err := env.service.Login(testutils.TestUsers.InactiveUser.Email, "WrongPassword123")

		require.Error(t, err)
		assert.Nil(t, pair)
		testutils.AssertErrorType(t, ErrInvalidCredentials, err)
	})
}

func TestService_Refresh(t *testing.T) {
	env := newTestEnv(t)
	user := registerTestUser(t, env)

	t.Run("rotates the session", func(t *testing.T) {
		first, err := env.service.Login(user.Email, testutils.TestPasswords.Valid)
		require.NoError(t, err)

		second, err := env.service.Refresh(first.RefreshToken)

		require.NoError(t, err)
		require.NotNil(t, second)
		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

		claims, err := env.tokens.ValidateAccessToken(second.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)

		_, err = env.service.Refresh(first.RefreshToken)
		testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)

		third, err := env.service.Refresh(second.RefreshToken)
		require.NoError(t, err)
		assert.NotNil(t, third)
	})

	t.Run("rejects an access token", func(t *testing.T) {
		pair, err := env.service.Login(user.Email, testutils.TestPasswords.Valid)
		require.NoError(t, err)

		rotated, err := env.service.Refresh(pair.AccessToken)

		require.Error(t, err)
		assert.Nil(t, rotated)
		testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		forgedCfg := testutils.GetTestConfig()
		forgedCfg.JWT.SecretKey = "b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a1b2c3"
		forged, err := jwt.NewService(forgedCfg, nil).GenerateRefreshToken(user.ID)
		require.NoError(t, err)

		rotated, err := env.service.Refresh(forged)

		require.Error(t, err)
		assert.Nil(t, rotated)
		testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)
	})

	t.Run("rejects a signed token without a stored session", func(t *testing.T) {
		unpersisted, err := env.tokens.GenerateRefreshToken(user.ID)
		require.NoError(t, err)

		rotated, err := env.service.Refresh(unpersisted)

		require.Error(t, err)
		assert.Nil(t, rotated)
		testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		rotated, err := env.service.Refresh("not-a-token")

		require.Error(t, err)
		assert.Nil(t, rotated)
		testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)
	})

	t.Run("inactive account", func(t *testing.T) {
		pair, err := env.service.Login(user.Email, testutils.TestPasswords.Valid)
		require.NoError(t, err)

		deactivateUser(t, env, user.ID)

		rotated, err := env.service.Refresh(pair.RefreshToken)

		require.Error(t, err)
		assert.Nil(t, rotated)
		testutils.AssertErrorType(t, ErrInactiveAccount, err)
	})
}

func TestService_Refresh_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	user := registerTestUser(t, env)

	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	pair, err := env.service.Login(user.Email, testutils.TestPasswords.Valid)
	require.NoError(t, err)

	const workers = 8

	var wg sync.WaitGroup
	pairs := make([]*TokenPair, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			pairs[idx], errs[idx] = env.service.Refresh(pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < workers; i++ {
		if errs[i] == nil {
			winners++
			assert.NotNil(t, pairs[i])
		} else {
			testutils.AssertErrorType(t, ErrInvalidRefreshToken, errs[i])
		}
	}

	assert.Equal(t, 1, winners)
}

func TestService_Logout(t *testing.T) {
	env := newTestEnv(t)
	user := registerTestUser(t, env)

	t.Run("revokes the session but not the access token", func(t *testing.T) {
		pair, err := env.service.Login(user.Email, testutils.TestPasswords.Valid)
		require.NoError(t, err)

		require.NoError(t, env.service.Logout(pair.RefreshToken))

		_, err = env.service.Refresh(pair.RefreshToken)
		testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)

		_, err = env.tokens.ValidateAccessToken(pair.AccessToken)
		assert.NoError(t, err)
	})

	t.Run("unknown token", func(t *testing.T) {
		assert.NoError(t, env.service.Logout("never-issued"))
	})

	t.Run("repeated logout", func(t *testing.T) {
		pair, err := env.service.Login(user.Email, testutils.TestPasswords.Valid)
		require.NoError(t, err)

		require.NoError(t, env.service.Logout(pair.RefreshToken))
		assert.NoError(t, env.service.Logout(pair.RefreshToken))
	})
}

func TestService_ForgotPassword(t *testing.T) {
	t.Run("known email hands the notifier a secret", func(t *testing.T) {
		env := newTestEnv(t)
		user := registerTestUser(t, env)

		var secret string
		env.notifier.On("SendPasswordReset", user.Email, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { secret = args.String(1) }).
			Return(nil)

		require.NoError(t, env.service.ForgotPassword(user.Email))

		env.notifier.AssertExpectations(t)
		assert.NotEmpty(t, secret)
	})

	t.Run("unknown email reports success without a notification", func(t *testing.T) {
		env := newTestEnv(t)
		registerTestUser(t, env)

		knownErr := env.service.ForgotPassword(testutils.TestUsers.ValidUser.Email)
		unknownErr := env.service.ForgotPassword("nobody@example.com")

		assert.Equal(t, knownErr, unknownErr)
		env.notifier.AssertNotCalled(t, "SendPasswordReset", "nobody@example.com", mock.Anything)
	})

	t.Run("notifier failure stays internal", func(t *testing.T) {
		env := newTestEnv(t)
		user := registerTestUser(t, env)

		env.notifier.On("SendPasswordReset", user.Email, mock.AnythingOfType("string")).
			Return(errors.New("smtp unavailable"))

		assert.NoError(t, env.service.ForgotPassword(user.Email))
	})
}

func TestService_ResetPassword(t *testing.T) {
	t.Run("installs the new credential and revokes every session", func(t *testing.T) {
		env := newTestEnv(t)
		user := registerTestUser(t, env)

		pair, err := env.service.Login(user.Email, testutils.TestPasswords.Valid)
		require.NoError(t, err)

		var secret string
		env.notifier.On("SendPasswordReset", user.Email, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { secret = args.String(1) }).
			Return(nil)
		require.NoError(t, env.service.ForgotPassword(user.Email))
		require.NotEmpty(t, secret)

		require.NoError(t, env.service.ResetPassword(secret, testutils.TestPasswords.Changed))

		_, err = env.service.Login(user.Email, testutils.TestPasswords.Valid)
		testutils.AssertErrorType(t, ErrInvalidCredentials, err)

		fresh, err := env.service.Login(user.Email, testutils.TestPasswords.Changed)
		require.NoError(t, err)
		assert.NotNil(t, fresh)

		_, err = env.service.Refresh(pair.RefreshToken)
		testutils.AssertErrorType(t, ErrInvalidRefreshToken, err)
	})

	t.Run("a secret works exactly once", func(t *testing.T) {
		env := newTestEnv(t)
		user := registerTestUser(t, env)

		var secret string
		env.notifier.On("SendPasswordReset", user.Email, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { secret = args.String(1) }).
			Return(nil)
		require.NoError(t, env.service.ForgotPassword(user.Email))

		require.NoError(t, env.service.ResetPassword(secret, testutils.TestPasswords.Changed))

		err := env.service.ResetPassword(secret, testutils.TestPasswords.Changed)
		testutils.AssertErrorType(t, ErrInvalidResetToken, err)
	})

	t.Run("weak replacement leaves the secret unconsumed", func(t *testing.T) {
		env := newTestEnv(t)
		user := registerTestUser(t, env)

		var secret string
		env.notifier.On("SendPasswordReset", user.Email, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { secret = args.String(1) }).
			Return(nil)
		require.NoError(t, env.service.ForgotPassword(user.Email))

		err := env.service.ResetPassword(secret, testutils.TestPasswords.TooShort)
		testutils.AssertErrorType(t, ErrWeakPassword, err)

		assert.NoError(t, env.service.ResetPassword(secret, testutils.TestPasswords.Changed))
	})

	t.Run("garbage secret", func(t *testing.T) {
		env := newTestEnv(t)
		registerTestUser(t, env)

		err := env.service.ResetPassword("never-issued", testutils.TestPasswords.Changed)
		testutils.AssertErrorType(t, ErrInvalidResetToken, err)
	})
}
