package cmd

import (
	"context"
)

// MockBridgeService is a mock implementation of the BridgeService interface.
type MockBridgeService struct {
	RunFunc func(ctx context.Context) error
}

func (m *MockBridgeService) Run(ctx context.Context) error {
	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	<-ctx.Done()
	return nil
}

// MockAPIServer is a mock implementation of the APIServer interface.
type MockAPIServer struct {
	RunFunc func(ctx context.Context) error
}

func (m *MockAPIServer) Run(ctx context.Context) error {
	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	<-ctx.Done()
	return nil
}
