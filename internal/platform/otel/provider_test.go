package otel_test

import (
	"context"
	"testing"

	"github.com/sokonihq/sokoni/internal/platform/otel"
)

func TestSetupStaysOff(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		enabled  string
	}{
		{name: "no endpoint", endpoint: "", enabled: ""},
		{name: "explicitly disabled", endpoint: "http://localhost:4318", enabled: "false"},
		{name: "disabled any case", endpoint: "http://localhost:4318", enabled: "FALSE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(otel.EnvEndpoint, tc.endpoint)
			t.Setenv(otel.EnvEnabled, tc.enabled)

			shutdown, err := otel.Setup(context.Background(), "sokoni-test")
			if err != nil {
				t.Fatalf("setup: %v", err)
			}

			// The no-op flush ignores even a cancelled context.
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if err := shutdown(ctx); err != nil {
				t.Fatalf("noop shutdown: %v", err)
			}
		})
	}
}

func TestSetupInstallsProvider(t *testing.T) {
	// TEST-NET address so nothing is actually exported.
	t.Setenv(otel.EnvEndpoint, "http://192.0.2.1:4318")
	t.Setenv(otel.EnvEnabled, "")

	shutdown, err := otel.Setup(context.Background(), "sokoni-test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	// No spans were recorded, so the flush has nothing to send.
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
