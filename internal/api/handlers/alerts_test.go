package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dallasheidt14/PitchRank-sub001/internal/models"
	"github.com/dallasheidt14/PitchRank-sub001/internal/services"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
)

func alertsRouter(db *database.DB) *gin.Engine {
	router := gin.New()
	h := NewAlertsHandler(services.NewAlertService(db, services.NewMockSMSService()))
	router.POST("/alerts", h.CreateAlert)
	router.DELETE("/alerts/:id", h.DeleteAlert)
	return router
}

func TestCreateAlertValidation(t *testing.T) {
	router := alertsRouter(testDB(t))

	for _, body := range []string{
		`{}`,
		`{"phone": "+15551234567"}`,
		`{"team_id": 1}`,
		`not json`,
	} {
		w := doRequest(router, http.MethodPost, "/alerts", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
}

func TestCreateAlertUnknownTeam(t *testing.T) {
	router := alertsRouter(testDB(t))

	w := doRequest(router, http.MethodPost, "/alerts", `{"phone": "+15551234567", "team_id": 999}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAlertLifecycle(t *testing.T) {
	db := testDB(t)
	team := seedTeam(t, db, "Alpha", 11, "M")
	router := alertsRouter(db)

	body := fmt.Sprintf(`{"phone": "+15551234567", "team_id": %d, "min_rank_delta": 4}`, team.ID)
	w := doRequest(router, http.MethodPost, "/alerts", body)
	require.Equal(t, http.StatusOK, w.Code)

	ok, data := decodeResponse(t, w)
	require.True(t, ok)

	var sub models.AlertSubscription
	require.NoError(t, json.Unmarshal(data, &sub))
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, team.ID, sub.TeamID)
	assert.Equal(t, 4, sub.MinRankDelta)

	// Same phone, same team: conflict.
	w = doRequest(router, http.MethodPost, "/alerts", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unsubscribe, then the id is gone.
	w = doRequest(router, http.MethodDelete, "/alerts/"+sub.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = doRequest(router, http.MethodDelete, "/alerts/"+sub.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
