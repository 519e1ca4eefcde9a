package cmd

import (
	"context"
)

// BridgeService defines what cmd.run expects from the bridge.
type BridgeService interface {
	Run(ctx context.Context) error
}

// APIServer is the provider http surface.
type APIServer interface {
	Run(ctx context.Context) error
}
