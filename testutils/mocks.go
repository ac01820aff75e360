package testutils

import (
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendPasswordReset(email, token string) error {
	args := m.Called(email, token)
	return args.Error(0)
}
