package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "hello")

	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{name: "user", msg: Message{Role: RoleUser, Content: "hi"}},
		{name: "assistant", msg: Message{Role: RoleAssistant, Content: "hello"}},
		{name: "system", msg: Message{Role: RoleSystem, Content: "rules"}},
		{name: "unknown role", msg: Message{Role: "tool", Content: "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.msg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "role")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestIngestionMarker_Matches(t *testing.T) {
	marker := &IngestionMarker{
		Collection:  "assignment",
		ContentHash: "abc",
		RecordCount: 3,
		Completed:   true,
	}

	assert.True(t, marker.Matches("abc", 3))
	assert.False(t, marker.Matches("abc", 2))
	assert.False(t, marker.Matches("def", 3))

	marker.Completed = false
	assert.False(t, marker.Matches("abc", 3))

	var missing *IngestionMarker
	assert.False(t, missing.Matches("abc", 3))
}

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("chat: %w", ErrRateLimited)

	assert.True(t, errors.Is(wrapped, ErrRateLimited))
	assert.False(t, errors.Is(wrapped, ErrSourceNotFound))

	withCause := NewDomainErrorWithCause(ErrCodeNotFound, "source document not found", errors.New("stat data/raw.pdf"))
	assert.True(t, errors.Is(withCause, ErrSourceNotFound))
	assert.Contains(t, withCause.Error(), "stat data/raw.pdf")
}
