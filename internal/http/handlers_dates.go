package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"hesabdar/internal/jalali"
	applog "hesabdar/internal/log"
)

type convertedDate struct {
	Jalali    string `json:"jalali"`
	Gregorian string `json:"gregorian"`
	Weekday   string `json:"weekday"`
	MonthName string `json:"month_name"`
}

// handleConvertDate converts ?jalali=YYYY/MM/DD to Gregorian or
// ?gregorian=YYYY-MM-DD to Jalali.
func (s *Server) handleConvertDate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case strings.TrimSpace(q.Get("jalali")) != "":
		t, err := jalali.ParseToGregorian(q.Get("jalali"))
		if err != nil {
			s.writeServiceError(w, r, applog.OpRead, &fieldError{Field: "jalali", Err: err})
			return
		}
		s.writeConverted(w, r, t)
	case strings.TrimSpace(q.Get("gregorian")) != "":
		t, err := time.Parse(isoDate, strings.TrimSpace(jalali.NormalizeDigits(q.Get("gregorian"))))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "expected YYYY-MM-DD", "gregorian")
			return
		}
		s.writeConverted(w, r, t)
	default:
		writeError(w, http.StatusBadRequest, "one of jalali or gregorian is required", "")
	}
}

func (s *Server) writeConverted(w http.ResponseWriter, r *http.Request, t time.Time) {
	d, err := jalali.FromGregorian(t)
	if err != nil {
		s.writeServiceError(w, r, applog.OpRead, &fieldError{Field: "gregorian", Err: errors.Join(jalali.ErrInvalidDateFormat, err)})
		return
	}
	writeJSON(w, http.StatusOK, convertedDate{
		Jalali:    d.String(),
		Gregorian: t.Format(isoDate),
		Weekday:   t.Weekday().String(),
		MonthName: jalali.MonthName(d.Month),
	})
}
