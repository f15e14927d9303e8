package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// ActivityHeader is the column header of the activity report.
var ActivityHeader = []string{"Дата", "Пользователь", "Email", "Действие", "Объект", "ID объекта", "Описание"}

// WriteActivity writes journal entries as CSV.  Dates are rendered in loc.
func WriteActivity(w io.Writer, entries []model.Activity, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ActivityHeader); err != nil {
		return err
	}
	for _, a := range entries {
		rec := []string{
			a.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
			a.UserDisplayName,
			a.UserEmail,
			a.ActionType,
			a.EntityType,
			strconv.FormatUint(a.EntityID, 10),
			a.Summary,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
