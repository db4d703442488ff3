package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revalidation/internal/cycle/models"
	"revalidation/internal/cycle/service"
	"revalidation/internal/cycle/snapshot"
	"revalidation/internal/cycle/store"
	evidencememory "revalidation/internal/evidence/memory"
	jwttoken "revalidation/internal/jwt_token"
	"revalidation/internal/platform/config"
	id "revalidation/pkg/domain"
	"revalidation/pkg/platform/secrets"
)

func newTestApp(t *testing.T) (*app, *service.Service, *bytes.Buffer) {
	t.Helper()
	cycles := store.NewInMemory()
	svc := service.New(cycles, store.NewInMemoryTx(cycles, store.NewInMemoryAudit()), snapshot.New(evidencememory.New()))
	out := &bytes.Buffer{}
	cfg := config.Config{
		Server:    config.Server{JWTSigningKey: "test-key", JWTIssuer: "revalidation", JWTAudience: "revalidation-api"},
		Reconcile: config.ReconcileConfig{Timeout: time.Second},
	}
	a := &app{cfg: cfg, out: out, openService: func(context.Context) (*service.Service, func(), error) {
		return svc, func() {}, nil
	}}
	return a, svc, out
}

func execute(a *app, args ...string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.out)
	return root.Execute()
}

func TestStatus(t *testing.T) {
	a, svc, out := newTestApp(t)
	subjectID := id.SubjectID(uuid.New())
	_, err := svc.InitializeCycle(context.Background(), subjectID, models.CarryForwardMetrics{
		Role:                   "Staff Nurse",
		ContractedHoursPerWeek: 37.5,
		WorkSetting:            "Hospital",
		ScopeOfPractice:        "Adult acute care",
		RegistrationBody:       "NMC",
		RegistrationNumber:     "12A3456B",
		ExpiryDate:             time.Now().AddDate(2, 0, 0),
	})
	require.NoError(t, err)

	require.NoError(t, execute(a, "status", "--subject", subjectID.String()))

	var current service.CurrentCycle
	require.NoError(t, json.Unmarshal(out.Bytes(), &current))
	assert.Equal(t, subjectID, current.Cycle.SubjectID)
}

func TestStatus_InvalidSubject(t *testing.T) {
	a, _, _ := newTestApp(t)

	err := execute(a, "status", "--subject", "not-a-uuid")

	var ee *exitErr
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 3, ee.code)
}

func TestReconcile_DryRunOnEmptyStore(t *testing.T) {
	a, _, out := newTestApp(t)

	require.NoError(t, execute(a, "reconcile", "--dry-run"))

	var report service.ReconcileReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Zero(t, report.Failed)
}

func TestToken(t *testing.T) {
	a, _, out := newTestApp(t)
	subjectID := id.SubjectID(uuid.New())

	require.NoError(t, execute(a, "token", "--subject", subjectID.String(), "--ttl", "5m"))

	jwtService := jwttoken.NewJWTService("test-key", "revalidation", "revalidation-api")
	claims, err := jwtService.ValidateToken(string(bytes.TrimSpace(out.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, subjectID.String(), claims.SubjectID)
}

func TestAdminToken(t *testing.T) {
	a, _, out := newTestApp(t)

	require.NoError(t, execute(a, "admin-token"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	token := strings.TrimPrefix(lines[0], "token: ")
	hash := strings.TrimPrefix(lines[1], "ADMIN_API_TOKEN=")
	assert.NoError(t, secrets.Verify(token, hash))
}
