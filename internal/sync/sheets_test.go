package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkayomi/class-reservation/internal/model"
)

func TestParseRowNumber(t *testing.T) {
	n, err := parseRowNumber("Sheet1!A7:J7")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), n)

	n, err = parseRowNumber("Sheet1!A123:J123")
	require.NoError(t, err)
	assert.Equal(t, uint32(123), n)

	_, err = parseRowNumber("")
	assert.Error(t, err)

	_, err = parseRowNumber("Sheet1!A:J")
	assert.Error(t, err)
}

func testRow() model.SheetRow {
	return model.SheetRow{
		CreatedAt:     "2026-09-01 10:00",
		ConfirmedAt:   "2026-09-02 09:30",
		ClassName:     "Pottery Basics",
		CustomerName:  "Alice",
		CustomerPhone: "010-1234-5678",
		NumPeople:     2,
		Date:          "2026-09-10",
		Time:          "14:00",
		Price:         60000,
	}
}

func TestSheetsDisabledWithoutCredentials(t *testing.T) {
	g := NewGoogleSheets("", "")
	_, err := g.AppendRow(context.Background(), testRow())
	assert.ErrorIs(t, err, errDisabled)
	assert.ErrorIs(t, g.UpdateRow(context.Background(), 3, testRow()), errDisabled)
	assert.ErrorIs(t, g.DeleteRow(context.Background(), 3), errDisabled)
}

func TestSheetsAppendRow(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"updates": map[string]interface{}{"updatedRange": "Sheet1!A9:J9"},
		})
	}))
	defer srv.Close()

	g := NewGoogleSheets("sheet-id", "token")
	g.BaseURL = srv.URL

	rowNum, err := g.AppendRow(context.Background(), testRow())
	require.NoError(t, err)
	assert.Equal(t, uint32(9), rowNum)
	assert.Equal(t, "Bearer token", gotAuth)

	values, ok := gotBody["values"].([]interface{})
	require.True(t, ok)
	require.Len(t, values, 1)
	cells := values[0].([]interface{})
	require.Len(t, cells, 10)
	assert.Equal(t, "Pottery Basics", cells[2])
	assert.Equal(t, "2026-09-10", cells[6])
}

func TestSheetsDeleteRowUsesZeroBasedIndexes(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewGoogleSheets("sheet-id", "token")
	g.BaseURL = srv.URL

	require.NoError(t, g.DeleteRow(context.Background(), 7))

	reqs := gotBody["requests"].([]interface{})
	rng := reqs[0].(map[string]interface{})["deleteDimension"].(map[string]interface{})["range"].(map[string]interface{})
	assert.Equal(t, float64(6), rng["startIndex"])
	assert.Equal(t, float64(7), rng["endIndex"])
}

func TestSheetsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGoogleSheets("sheet-id", "token")
	g.BaseURL = srv.URL

	_, err := g.AppendRow(context.Background(), testRow())
	assert.ErrorContains(t, err, "429")
}
