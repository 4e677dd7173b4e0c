package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"pricecast/collector"
	"pricecast/db"
	"pricecast/export"
	"pricecast/ml"
	"pricecast/service"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	svc    *service.Service
	logger *zap.Logger
	page   *pageRenderer
}

func newHandlers(svc *service.Service, logger *zap.Logger) (*handlers, error) {
	if svc == nil {
		return nil, errors.New("http: service is required")
	}
	page, err := newPageRenderer()
	if err != nil {
		return nil, err
	}
	return &handlers{svc: svc, logger: logger.Named("http"), page: page}, nil
}

func (h *handlers) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handlePage)
	mux.HandleFunc("POST /predict", h.handleFormPredict)
	mux.HandleFunc("POST /api/predict", h.handleAPIPredict)
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("GET /api/history.csv", h.handleHistoryCSV)
	mux.HandleFunc("GET /api/schema", handleSchema)
	mux.HandleFunc("GET /api/health", handleHealth)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, collector.Fields())
}

func (h *handlers) handlePage(w http.ResponseWriter, r *http.Request) {
	data := h.page.base(collector.Defaults())
	h.withHistory(r, &data)
	h.render(w, http.StatusOK, data)
}

func (h *handlers) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		data := h.page.base(collector.Defaults())
		data.Error = "Could not read the form: " + err.Error()
		h.withHistory(r, &data)
		h.render(w, http.StatusBadRequest, data)
		return
	}

	rec, adjustments, err := collector.FromForm(r.PostForm)
	if err != nil {
		data := h.page.submitted(r.PostForm)
		data.Error = err.Error()
		h.withHistory(r, &data)
		h.render(w, http.StatusBadRequest, data)
		return
	}

	data := h.page.base(rec)
	status := http.StatusOK
	outcome, err := h.svc.Predict(r.Context(), rec)
	if err != nil {
		data.Error = err.Error()
		status = statusFor(err)
	} else {
		outcome.Adjustments = adjustments
		data.Result = h.page.result(outcome)
	}
	h.withHistory(r, &data)
	h.render(w, status, data)
}

func (h *handlers) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body map[string]*float64
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	values := make(map[string]float64, len(body))
	for name, v := range body {
		// A JSON null decodes to nil and would otherwise read as zero.
		if v == nil {
			writeError(w, http.StatusBadRequest, &ml.InvalidInputError{Field: name, Reason: "missing"})
			return
		}
		values[name] = *v
	}

	rec, adjustments, err := collector.FromMap(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	outcome, err := h.svc.Predict(r.Context(), rec)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	outcome.Adjustments = adjustments
	writeJSON(w, http.StatusOK, outcome)
}

type historyResponse struct {
	History []db.PredictionRecord `json:"history"`
	Error   string                `json:"error,omitempty"`
}

func (h *handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.History(r.Context())
	resp := historyResponse{History: history}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) handleHistoryCSV(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.History(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	if err := export.WriteCSV(w, history); err != nil {
		h.logger.Error("csv export failed", zap.Error(err))
	}
}

func (h *handlers) withHistory(r *http.Request, data *pageData) {
	history, err := h.svc.History(r.Context())
	if err != nil {
		data.HistoryError = "History unavailable: " + err.Error()
	}
	data.History = h.page.historyRows(history)
}

func (h *handlers) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.page.execute(w, data); err != nil {
		h.logger.Error("render page failed", zap.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ml.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var invalid *ml.InvalidInputError
	if errors.As(err, &invalid) {
		resp.Field = invalid.Field
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
