package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"statusboard/internal/domain/tracker"
)

func TestWriteXLSX(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := tracker.Defaults(now)
	require.NoError(t, st.SetCategoryProgress(0, 100, now))
	u, err := st.AddUpdate("Cut-over", "Saturday", tracker.TypeWarning, now)
	require.NoError(t, err)
	_, _, err = st.AddComment(u.ID, "ok", "", now)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, st))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{SheetCategories, SheetUpdates}, wb.GetSheetList())

	cats, err := wb.GetRows(SheetCategories)
	require.NoError(t, err)
	require.Len(t, cats, tracker.CategoryCount+2)
	assert.Equal(t, []string{"Category", "Progress (%)", "Status"}, cats[0])
	assert.Equal(t, []string{"Customer migration", "100", "Not started"}, cats[1])
	assert.Equal(t, []string{"Overall", "17", "In progress"}, cats[len(cats)-1])

	updates, err := wb.GetRows(SheetUpdates)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, []string{"2026-03-01 12:00:00", "warning", "Cut-over", "Saturday", "1"}, updates[1])
}

func TestWriteXLSX_NoUpdates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, tracker.Defaults(time.Now())))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	updates, err := wb.GetRows(SheetUpdates)
	require.NoError(t, err)
	assert.Len(t, updates, 1, "header only")
}
