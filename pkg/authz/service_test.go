package authz

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reviewerID = uuid.MustParse("f6f8b13e-755f-41e0-af1a-f2671e40c15c")

func newTestService(t *testing.T, mode Mode) *Service {
	t.Helper()
	root := filepath.Join("testdata")
	svc, err := NewService(Config{
		ModelPath:  filepath.Join(root, "model.conf"),
		PolicyPath: filepath.Join(root, "policy.csv"),
		Mode:       mode,
	})
	require.NoError(t, err)
	return svc
}

func TestServiceAuthorize(t *testing.T) {
	svc := newTestService(t, ModeEnforce)
	req := NewRequest(SubjectForUser(reviewerID), ObjectName("etc", "requests"), "view")
	require.NoError(t, svc.Authorize(context.Background(), req))
}

func TestServiceAuthorizeDenied(t *testing.T) {
	svc := newTestService(t, ModeEnforce)
	req := NewRequest(SubjectForUser(uuid.New()), ObjectName("etc", "requests"), "view")
	err := svc.Authorize(context.Background(), req)
	require.ErrorIs(t, err, ErrForbidden)
	assert.True(t, IsForbidden(err))
}

func TestServiceAuthorizeRoleBoundary(t *testing.T) {
	svc := newTestService(t, ModeEnforce)
	req := NewRequest(SubjectForUser(reviewerID), ObjectName("etc", "settings"), "manage")
	require.Error(t, svc.Authorize(context.Background(), req),
		"a reviewer does not hold admin capabilities")
}

func TestServiceShadowModeNeverDenies(t *testing.T) {
	svc := newTestService(t, ModeShadow)
	req := NewRequest(SubjectForUser(uuid.New()), ObjectName("etc", "requests"), "view")
	require.NoError(t, svc.Authorize(context.Background(), req))
}

func TestServiceDisabledModeSkipsEvaluation(t *testing.T) {
	svc := newTestService(t, ModeDisabled)
	req := NewRequest(SubjectForUser(uuid.Nil), ObjectName("etc", "requests"), "view")
	require.NoError(t, svc.Authorize(context.Background(), req))
}

func TestServiceSetMode(t *testing.T) {
	svc := newTestService(t, ModeShadow)
	require.Equal(t, ModeShadow, svc.Mode())
	svc.SetMode(ModeEnforce)
	require.Equal(t, ModeEnforce, svc.Mode())
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeDisabled, ParseMode("disabled"))
	assert.Equal(t, ModeShadow, ParseMode(" Shadow "))
	assert.Equal(t, ModeEnforce, ParseMode("enforce"))
	assert.Equal(t, ModeEnforce, ParseMode("bogus"), "unknown modes fail closed")
}

func TestSubjectForUser(t *testing.T) {
	assert.Equal(t, "user:anonymous", SubjectForUser(uuid.Nil))
	assert.Equal(t, "user:"+reviewerID.String(), SubjectForUser(reviewerID))
}

func TestGlobalAuthorizeUnconfigured(t *testing.T) {
	Setup(nil)
	t.Cleanup(func() { Setup(nil) })

	err := Authorize(context.Background(), NewRequest("user:anonymous", "etc.requests", "view"))
	require.ErrorIs(t, err, ErrNotConfigured)
}
