package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/chinor-crm/internal/model"
)

func sampleGuests() []model.Guest {
	name := "Олег, VIP"
	email := "vip@example.com"
	last := time.Date(2026, 2, 1, 19, 0, 0, 0, time.UTC)
	return []model.Guest{
		{ID: 4, Name: &name, Phone: "+998901234570", Email: &email, Segment: "VIP", VisitsCount: 12, LastVisitAt: &last},
		{ID: 1, Phone: "+998901234567", Segment: "Новичок"},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestWriteGuests_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGuests(&buf, FormatCSV, sampleGuests()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, GuestHeader, records[0])
	assert.Equal(t, []string{"Олег, VIP", "+998901234570", "vip@example.com", "VIP", "12", "2026-02-01T19:00:00Z"}, records[1])
	assert.Equal(t, []string{"", "+998901234567", "", "Новичок", "0", ""}, records[2])
}

func TestWriteGuests_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGuests(&buf, FormatXLSX, sampleGuests()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(guestSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, GuestHeader, rows[0])
	assert.Equal(t, "+998901234570", rows[1][1])
	assert.Equal(t, "12", rows[1][4])
}

func TestWriteActivity(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	entries := []model.Activity{{
		ID:              1,
		CreatedAt:       time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC),
		ActionType:      model.ActionStatusChange,
		EntityType:      model.EntityBooking,
		EntityID:        53,
		UserDisplayName: "Хостес",
		UserEmail:       "host@chinor.com",
		Summary:         "Бронь #53: pending → confirmed",
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteActivity(&buf, entries, loc))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2026-02-07 20:00:00", records[1][0])
	assert.Equal(t, "53", records[1][5])
}
