package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gutlog/internal/estimate"
	"github.com/sells-group/gutlog/internal/model"
	"github.com/sells-group/gutlog/internal/recognize"
	"github.com/sells-group/gutlog/internal/tracker"
)

// errBadRequest marks malformed request bodies and form values.
var errBadRequest = eris.New("bad request")

// mealRequest is the body of POST /meals: either values typed in by hand
// or a draft from /meals/analyze that the user confirmed or corrected.
type mealRequest struct {
	FoodName         string         `json:"food_name"`
	TotalMassG       float64        `json:"total_mass_g"`
	CaloriesKcal     float64        `json:"calories_kcal"`
	Comment          string         `json:"comment"`
	DinerCount       int            `json:"diner_count"`
	ConsumptionRatio float64        `json:"consumption_ratio"`
	MealType         model.MealType `json:"meal_type"`
	Timestamp        string         `json:"timestamp"`
}

type eliminationRequest struct {
	DischargedG *float64 `json:"discharged_g"`
	Timestamp   string   `json:"timestamp"`
}

type resetRequest struct {
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.Status(r.Context(), tracker.Request{User: userParam(r), Now: s.opts.Clock()})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, err)
			return
		}
		writeError(w, eris.Wrapf(errBadRequest, "multipart form: %v", err))
		return
	}

	in, err := portionFromForm(r)
	if err != nil {
		writeError(w, err)
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		writeError(w, eris.Wrap(errBadRequest, "photo file is required"))
		return
	}
	defer file.Close() //nolint:errcheck

	photo, err := io.ReadAll(file)
	if err != nil {
		writeError(w, eris.Wrapf(errBadRequest, "read photo: %v", err))
		return
	}

	draft, err := s.tracker.AnalyzePhoto(r.Context(), tracker.Request{User: userParam(r), Now: s.opts.Clock()}, photo, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleRecordMeal(w http.ResponseWriter, r *http.Request) {
	var body mealRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	now, err := s.requestTime(body.Timestamp)
	if err != nil {
		writeError(w, err)
		return
	}
	if body.DinerCount == 0 {
		body.DinerCount = 1
	}

	draft, err := s.tracker.BuildDraft(model.FoodRecognitionResult{
		FoodName:     body.FoodName,
		TotalMassG:   body.TotalMassG,
		Comment:      body.Comment,
		CaloriesKcal: body.CaloriesKcal,
	}, tracker.PortionInput{
		DinerCount: body.DinerCount,
		Ratio:      body.ConsumptionRatio,
		MealType:   body.MealType,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	user := userParam(r)
	unlock := s.locks.Lock(user)
	defer unlock()

	receipt, err := s.tracker.RecordMeal(r.Context(), tracker.Request{User: user, Now: now}, draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleRecordElimination(w http.ResponseWriter, r *http.Request) {
	var body eliminationRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.DischargedG == nil {
		writeError(w, eris.Wrap(errBadRequest, "discharged_g is required"))
		return
	}
	now, err := s.requestTime(body.Timestamp)
	if err != nil {
		writeError(w, err)
		return
	}

	user := userParam(r)
	unlock := s.locks.Lock(user)
	defer unlock()

	receipt, err := s.tracker.RecordElimination(r.Context(), tracker.Request{User: user, Now: now}, *body.DischargedG)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var body resetRequest
	if err := decodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, err)
		return
	}
	now, err := s.requestTime(body.Timestamp)
	if err != nil {
		writeError(w, err)
		return
	}

	user := userParam(r)
	unlock := s.locks.Lock(user)
	defer unlock()

	receipt, err := s.tracker.Reset(r.Context(), tracker.Request{User: user, Now: now})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	user := userParam(r)
	unlock := s.locks.Lock(user)
	defer unlock()

	res, err := s.tracker.Rebuild(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleNutrients(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if strings.TrimSpace(name) == "" {
		writeError(w, eris.Wrap(errBadRequest, "food name is required"))
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.LookupNutrients(name))
}

// requestTime parses an optional backdated timestamp. Empty means now.
func (s *Server) requestTime(ts string) (time.Time, error) {
	if ts == "" {
		return s.opts.Clock(), nil
	}
	t, err := model.ParseTimestamp(ts)
	if err != nil {
		return time.Time{}, eris.Wrapf(errBadRequest, "timestamp must look like %s", model.TimestampLayout)
	}
	return t, nil
}

func userParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "user"))
}

func portionFromForm(r *http.Request) (tracker.PortionInput, error) {
	in := tracker.PortionInput{DinerCount: 1, MealType: model.MealType(r.FormValue("meal_type"))}
	if v := r.FormValue("diners"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, eris.Wrapf(errBadRequest, "diners must be an integer, got %q", v)
		}
		in.DinerCount = n
	}
	if v := r.FormValue("ratio"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return in, eris.Wrapf(errBadRequest, "ratio must be a number, got %q", v)
		}
		in.Ratio = f
	}
	return in, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return eris.Wrap(io.EOF, "empty request body")
		}
		return eris.Wrapf(errBadRequest, "invalid request body: %v", err)
	}
	return nil
}

type errorBody struct {
	Error               string `json:"error"`
	ManualEntryRequired bool   `json:"manual_entry_required,omitempty"`
}

// statusFor maps domain errors to HTTP status codes. Unknown errors are
// store or infrastructure failures.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, recognize.ErrRecognitionFailed):
		return http.StatusBadGateway, true
	case errors.Is(err, recognize.ErrUnsupportedImage):
		return http.StatusBadRequest, true
	case errors.Is(err, errBadRequest),
		errors.Is(err, io.EOF),
		errors.Is(err, tracker.ErrEmptyUser),
		errors.Is(err, tracker.ErrInvalidMass),
		errors.Is(err, tracker.ErrInvalidRatio),
		errors.Is(err, tracker.ErrInvalidMealType),
		errors.Is(err, tracker.ErrNoDraft),
		errors.Is(err, estimate.ErrInvalidDinerCount),
		errors.Is(err, recognize.ErrMissingName),
		errors.Is(err, recognize.ErrInvalidMass),
		errors.Is(err, recognize.ErrNonPositiveMass):
		return http.StatusBadRequest, false
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge, false
	}
	return http.StatusInternalServerError, false
}

func writeError(w http.ResponseWriter, err error) {
	status, manual := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && !manual {
		zap.L().Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg, ManualEntryRequired: manual})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}
