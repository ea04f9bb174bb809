package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidatePositiveDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		wantErr  bool
	}{
		{name: "positive duration", duration: 5 * time.Second, wantErr: false},
		{name: "one nanosecond", duration: time.Nanosecond, wantErr: false},
		{name: "zero duration", duration: 0, wantErr: true},
		{name: "negative duration", duration: -time.Minute, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositiveDuration(tt.duration)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
