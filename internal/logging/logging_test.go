package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	cases := []struct {
		level, format string
		wantErr       bool
	}{
		{level: "debug", format: "json"},
		{level: "warn", format: "console"},
		{level: "info", format: ""},
		{level: "loud", format: "json", wantErr: true},
		{level: "info", format: "xml", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			log, err := New(tc.level, tc.format)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestNew_LevelGates(t *testing.T) {
	log, err := New("warn", "json")
	require.NoError(t, err)
	assert.Nil(t, log.Check(zap.InfoLevel, "hidden"))
	assert.NotNil(t, log.Check(zap.ErrorLevel, "shown"))
}
