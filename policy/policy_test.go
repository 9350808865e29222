package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveKnownModes(t *testing.T) {
	tests := []struct {
		tag       string
		wantMode  Mode
		wantDual  bool
		wantLimit time.Duration
	}{
		{tag: "development", wantMode: ModeDevelopment, wantDual: true, wantLimit: 24 * time.Hour},
		{tag: "DEV", wantMode: ModeDevelopment, wantDual: true, wantLimit: 24 * time.Hour},
		{tag: " staging ", wantMode: ModeStaging, wantDual: true, wantLimit: 8 * time.Hour},
		{tag: "prod", wantMode: ModeProduction, wantDual: false, wantLimit: 2 * time.Hour},
		{tag: "test", wantMode: ModeTest, wantDual: true, wantLimit: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			p := Resolve(tt.tag)
			require.Equal(t, tt.wantMode, p.Mode)
			require.Equal(t, tt.wantDual, p.AllowDualSessions)
			require.Equal(t, tt.wantLimit, p.SessionTimeout)
		})
	}
}

func TestResolveUnknownFallsBackToConservative(t *testing.T) {
	for _, tag := range []string{"", "qa", "production-eu"} {
		p := Resolve(tag)
		require.Equal(t, Conservative(), p, "tag %q", tag)
		require.False(t, p.AllowDualSessions)
		require.True(t, p.StrictValidation)
	}
}

func TestSessionTimeoutMs(t *testing.T) {
	require.Equal(t, int64(7_200_000), Resolve("production").SessionTimeoutMs())
}
