package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/statement/internal/audit/domain"
	"github.com/smallbiznis/statement/internal/audit/repository"
	"github.com/smallbiznis/statement/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *clock.FakeClock) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", regexp.MustCompile(`\W`).ReplaceAllString(t.Name(), "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, fakeClock
}

func strPtr(v string) *string { return &v }

func TestAuditLogRecordsActorAndTarget(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	actor := auditdomain.Actor{UserID: "u1", Username: " admin ", IPAddress: "10.0.0.1", UserAgent: ""}
	err := svc.AuditLog(ctx, actor, "invoice.sign", "invoice", strPtr("inv-1"), map[string]any{"serial": "A123", "": "dropped"})
	require.NoError(t, err)

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.NotEmpty(t, entry.ID)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "u1", *entry.ActorID)
	assert.Equal(t, "admin", entry.ActorName)
	assert.Equal(t, "invoice.sign", entry.Action)
	assert.Equal(t, "invoice", entry.TargetType)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "inv-1", *entry.TargetID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
	assert.Nil(t, entry.UserAgent)
	assert.Equal(t, "A123", entry.Metadata["serial"])
	assert.NotContains(t, entry.Metadata, "")
	assert.False(t, resp.HasMore)
}

func TestAuditLogRequiresAction(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.AuditLog(context.Background(), auditdomain.Actor{}, "  ", "invoice", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestAuditLogDefaultsTargetType(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AuditLog(ctx, auditdomain.Actor{}, "auth.login", "", nil, nil))

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
	assert.Nil(t, resp.AuditLogs[0].ActorID)
	assert.Nil(t, resp.AuditLogs[0].TargetID)
}

func TestListFiltersAndPaginates(t *testing.T) {
	svc, fakeClock := newTestService(t)
	ctx := context.Background()
	actor := auditdomain.Actor{UserID: "u1", Username: "admin"}

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.AuditLog(ctx, actor, "invoice.create", "invoice", strPtr(fmt.Sprintf("inv-%d", i)), nil))
		fakeClock.Advance(time.Minute)
	}
	require.NoError(t, svc.AuditLog(ctx, actor, "customer.delete", "customer", strPtr("c1"), nil))

	filtered, err := svc.List(ctx, auditdomain.ListAuditLogRequest{TargetType: "customer"})
	require.NoError(t, err)
	require.Len(t, filtered.AuditLogs, 1)
	assert.Equal(t, "customer.delete", filtered.AuditLogs[0].Action)

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "invoice.create", PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)
	assert.Equal(t, "inv-4", *first.AuditLogs[0].TargetID)
	assert.Equal(t, "inv-3", *first.AuditLogs[1].TargetID)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "invoice.create", PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 2)
	assert.Equal(t, "inv-2", *second.AuditLogs[0].TargetID)
	assert.Equal(t, "inv-1", *second.AuditLogs[1].TargetID)

	third, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "invoice.create", PageSize: 2, PageToken: second.NextPageToken})
	require.NoError(t, err)
	require.Len(t, third.AuditLogs, 1)
	assert.False(t, third.HasMore)
	assert.Equal(t, "inv-0", *third.AuditLogs[0].TargetID)
}

func TestListRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	start := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)

	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{PageToken: "not-a-token"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
