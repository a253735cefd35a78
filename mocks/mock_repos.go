package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"motscan/internal/domain"
	"motscan/internal/port"
)

// MockUserRepo is a mock implementation of port.UserRepository.
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockScreenshotRepo is a mock implementation of port.ScreenshotRepository.
type MockScreenshotRepo struct {
	mock.Mock
}

func (m *MockScreenshotRepo) Create(ctx context.Context, screenshot *domain.Screenshot) error {
	args := m.Called(ctx, screenshot)
	return args.Error(0)
}

func (m *MockScreenshotRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Screenshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Screenshot), args.Error(1)
}

func (m *MockScreenshotRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockExtractionJobRepo is a mock implementation of port.ExtractionJobRepository.
type MockExtractionJobRepo struct {
	mock.Mock
}

func (m *MockExtractionJobRepo) Create(ctx context.Context, job *domain.ExtractionJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockExtractionJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionJob), args.Error(1)
}

func (m *MockExtractionJobRepo) List(ctx context.Context, filter port.ExtractionJobFilter) ([]*domain.ExtractionJob, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.ExtractionJob), args.Int(1), args.Error(2)
}

func (m *MockExtractionJobRepo) Update(ctx context.Context, job *domain.ExtractionJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockExtractionJobRepo) ClaimQueued(ctx context.Context, limit int) ([]*domain.ExtractionJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ExtractionJob), args.Error(1)
}

func (m *MockExtractionJobRepo) Requeue(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
