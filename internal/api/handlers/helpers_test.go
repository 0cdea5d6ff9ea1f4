package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/dallasheidt14/PitchRank-sub001/internal/models"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewConnection("sqlite://"+path, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Team{},
		&models.Game{},
		&models.TeamRating{},
		&models.RankSnapshot{},
		&models.RatingRun{},
		&models.AlertSubscription{},
	))
	return db
}

func seedTeam(t *testing.T, db *database.DB, name string, age int, gender string) *models.Team {
	t.Helper()
	team := &models.Team{
		ExternalID: "ext-" + name,
		Name:       name,
		Club:       name + " Club",
		State:      "TX",
		AgeGroup:   age,
		Gender:     gender,
	}
	require.NoError(t, db.Create(team).Error)
	return team
}

// seedRating writes one current rating row at the given rank.
func seedRating(t *testing.T, db *database.DB, team *models.Team, rank int, change7 *int) {
	t.Helper()
	row := &models.TeamRating{
		TeamID:         team.ID,
		AgeGroup:       team.AgeGroup,
		Gender:         team.Gender,
		RunID:          "run-1",
		GamesPlayed:    10,
		WinPct:         0.5,
		PowerAdjusted:  1.0 / float64(rank),
		PowerML:        1.0 / float64(rank),
		SOSNorm:        0.5,
		RankInCohort:   rank,
		RankInCohortML: rank,
		RankChange7d:   change7,
		SampleFlag:     models.SampleOK,
		ComputedAt:     testNow,
	}
	require.NoError(t, db.Create(row).Error)
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeResponse unpacks the standard envelope.
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) (bool, json.RawMessage) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *utils.AppError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Success, resp.Data
}
