package security

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/koopa0/sessionvault/internal/log"
)

func TestCheckAccess(t *testing.T) {
	mgr := NewManager(log.NewNop())
	own := uuid.New()
	other := uuid.New()

	tests := []struct {
		name    string
		ctx     Context
		target  uuid.UUID
		wantErr bool
	}{
		{
			name:   "strict own session",
			ctx:    mgr.Authorize(own),
			target: own,
		},
		{
			name:    "strict other session",
			ctx:     mgr.Authorize(own),
			target:  other,
			wantErr: true,
		},
		{
			name:   "shared other session",
			ctx:    mgr.AuthorizeShared(own),
			target: other,
		},
		{
			name:   "shared own session",
			ctx:    mgr.AuthorizeShared(own),
			target: own,
		},
		{
			name:    "zero context",
			ctx:     Context{},
			target:  other,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mgr.CheckAccess(tt.ctx, tt.target)
			if tt.wantErr && !errors.Is(err, ErrAccessDenied) {
				t.Errorf("CheckAccess() error = %v, want ErrAccessDenied", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CheckAccess() error = %v, want nil", err)
			}
		})
	}
}

// Denial errors must not reveal whether the target session exists, so
// the error text must not contain either session id.
func TestDenialLeaksNoIdentifiers(t *testing.T) {
	mgr := NewManager(log.NewNop())
	own := uuid.New()
	target := uuid.New()

	err := mgr.CheckAccess(mgr.Authorize(own), target)
	if err == nil {
		t.Fatal("expected denial")
	}
	msg := err.Error()
	if strings.Contains(msg, own.String()) || strings.Contains(msg, target.String()) {
		t.Errorf("denial message leaks a session id: %q", msg)
	}
}

func TestAuthorizeDefaultsToStrict(t *testing.T) {
	mgr := NewManager(log.NewNop())
	ctx := mgr.Authorize(uuid.New())
	if ctx.Mode != IsolationStrict {
		t.Errorf("Authorize() mode = %q, want %q", ctx.Mode, IsolationStrict)
	}
}
