package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/anvil/internal/app"
)

func TestNewApp_Success(t *testing.T) {
	components, err := app.NewApp(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	require.NotNil(t, components)
	require.NotNil(t, components.App)
	require.NotNil(t, components.Logger)
}
