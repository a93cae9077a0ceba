package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/versefeed/versefeed/internal/database"
	"github.com/versefeed/versefeed/internal/model"
	"github.com/versefeed/versefeed/internal/repository"
)

func TestParseBanDuration(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	exp, err := parseBanDuration("", now)
	require.NoError(t, err)
	require.Nil(t, exp)

	exp, err = parseBanDuration("Permanent", now)
	require.NoError(t, err)
	require.Nil(t, exp)

	exp, err = parseBanDuration("24h", now)
	require.NoError(t, err)
	require.Equal(t, now.Add(24*time.Hour), *exp)

	exp, err = parseBanDuration("7d", now)
	require.NoError(t, err)
	require.Equal(t, now.Add(7*24*time.Hour), *exp)

	for _, bad := range []string{"yesterday", "-3h", "0d", "d"} {
		_, err = parseBanDuration(bad, now)
		require.Error(t, err, "input %q", bad)
	}
}

func TestValidateSetting(t *testing.T) {
	require.NoError(t, validateSetting("verse_interval", "60"))
	require.Error(t, validateSetting("verse_interval", "5"))
	require.Error(t, validateSetting("verse_interval", "4000"))
	require.Error(t, validateSetting("verse_interval", "abc"))

	require.NoError(t, validateSetting("auto_refresh", "30"))
	require.Error(t, validateSetting("auto_refresh", "301"))

	require.NoError(t, validateSetting("audit_retention_days", "90"))
	require.Error(t, validateSetting("audit_retention_days", "6"))
	require.Error(t, validateSetting("audit_retention_days", "366"))

	require.NoError(t, validateSetting("safety_mode", "strict"))
	require.NoError(t, validateSetting("safety_mode", "balanced"))
	require.Error(t, validateSetting("safety_mode", "paranoid"))

	require.NoError(t, validateSetting("maintenance_mode", "on"))
	require.NoError(t, validateSetting("maintenance_mode", "off"))
	require.Error(t, validateSetting("maintenance_mode", "maybe"))

	require.Error(t, validateSetting("unknown_key", "x"))
}

func newAuditHandler(t *testing.T) (*AuditHandler, *repository.AuditRepo) {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	repo := repository.NewAuditRepo(db)
	return NewAuditHandler(repo), repo
}

func auditListRequest(t *testing.T, h *AuditHandler, query string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/audit"+query, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.List(c))
	return rec
}

func TestAuditListRejectsBadPagination(t *testing.T) {
	h, _ := newAuditHandler(t)

	require.Equal(t, http.StatusBadRequest, auditListRequest(t, h, "?page=0").Code)
	require.Equal(t, http.StatusBadRequest, auditListRequest(t, h, "?page=abc").Code)
	require.Equal(t, http.StatusBadRequest, auditListRequest(t, h, "?per_page=0").Code)
	require.Equal(t, http.StatusBadRequest, auditListRequest(t, h, "?per_page=201").Code)
}

func TestAuditListNormalizesLegacyRows(t *testing.T) {
	h, repo := newAuditHandler(t)
	ctx := context.Background()

	// A legacy free-text row with no structured details and no stored
	// target id.
	require.NoError(t, repo.Append(ctx, model.AuditLogEntry{
		AdminID: 1,
		Action:  "ban_user",
		Details: "Banned JohnDoe (17) for 3 days: repeated spam",
	}))

	rec := auditListRequest(t, h, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `"reason":"repeated spam"`)
	require.Contains(t, body, `"duration":"3 days"`)
	require.Contains(t, body, `"target_user_id":17`)
}
