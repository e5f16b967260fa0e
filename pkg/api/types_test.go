package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBuildSelector(t *testing.T) {
	tests := []struct {
		raw     string
		want    BuildSelector
		wantErr bool
	}{
		{raw: "42", want: BuildSelector{Number: 42}},
		{raw: "lastBuild", want: BuildSelector{Symbolic: SelectorLastBuild}},
		{raw: "lastSuccessfulBuild", want: BuildSelector{Symbolic: SelectorLastSuccessfulBuild}},
		{raw: "lastCompletedBuild", want: BuildSelector{Symbolic: SelectorLastCompletedBuild}},
		{raw: "0", wantErr: true},
		{raw: "-3", wantErr: true},
		{raw: "latest", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			sel, err := ParseBuildSelector(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel)
		})
	}
}

func TestBuildSelectorString(t *testing.T) {
	assert.Equal(t, "7", BuildSelector{Number: 7}.String())
	assert.Equal(t, "lastBuild", BuildSelector{Symbolic: SelectorLastBuild}.String())
}

func TestBuildStatusTerminal(t *testing.T) {
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailure.Terminal())
	assert.True(t, StatusAborted.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusUnknown.Terminal())
}
