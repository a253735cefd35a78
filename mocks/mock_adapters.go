package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"motscan/internal/ensemble"
	"motscan/internal/port"
)

// MockObjectStorage is a mock implementation of port.ObjectStorage.
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, key string, contentType string, body io.Reader, size int64) error {
	args := m.Called(ctx, key, contentType, body, size)
	return args.Error(0)
}

func (m *MockObjectStorage) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStorage) PresignGetURL(ctx context.Context, key string, expirySecs int64) (string, error) {
	args := m.Called(ctx, key, expirySecs)
	return args.String(0), args.Error(1)
}

// MockVehicleRegistry is a mock implementation of port.VehicleRegistry.
type MockVehicleRegistry struct {
	mock.Mock
}

func (m *MockVehicleRegistry) Lookup(ctx context.Context, registration string) (*port.RegistryRecord, error) {
	args := m.Called(ctx, registration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.RegistryRecord), args.Error(1)
}

// MockReviewNotifier is a mock implementation of port.ReviewNotifier.
type MockReviewNotifier struct {
	mock.Mock
}

func (m *MockReviewNotifier) SendReviewRequested(ctx context.Context, n port.ReviewNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockVisionModel is a mock implementation of port.VisionModel.
type MockVisionModel struct {
	mock.Mock
}

func (m *MockVisionModel) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockVisionModel) Weight() float64 {
	args := m.Called()
	return args.Get(0).(float64)
}

func (m *MockVisionModel) Timeout() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func (m *MockVisionModel) Extract(ctx context.Context, input port.ExtractInput) (*port.ModelResponse, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ModelResponse), args.Error(1)
}

// MockPipeline is a mock implementation of service.ExtractionPipeline.
type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Run(ctx context.Context, input port.ExtractInput) (*ensemble.Result, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ensemble.Result), args.Error(1)
}
