package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"subscription-activation/internal/domain"
	"subscription-activation/internal/domain/model"
)

type activationItem struct {
	Code           string     `json:"code"`
	SubscriptionID string     `json:"subscriptionId"`
	Status         string     `json:"status"`
	IssuedAt       time.Time  `json:"issuedAt"`
	UsedAt         *time.Time `json:"usedAt"`
	CustomerEmail  string     `json:"customerEmail"`
	OrderID        string     `json:"orderId,omitempty"`
	ActivateURL    string     `json:"activateUrl,omitempty"`
	QRURL          string     `json:"qrUrl,omitempty"`
}

type listResponse struct {
	OK     bool             `json:"ok"`
	Items  []activationItem `json:"items"`
	Totals struct {
		Total  int `json:"total"`
		Used   int `json:"used"`
		Unused int `json:"unused"`
	} `json:"totals"`
	Meta struct {
		Returned   int `json:"returned"`
		Limit      int `json:"limit"`
		Offset     int `json:"offset"`
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	} `json:"meta"`
}

// handleList serves GET /api/v1/activations with free-text, status and
// date-range filters plus limit/offset pagination.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, totals, err := s.listing.List(r.Context(), f)
	if err != nil {
		s.log.Error().Err(err).Msg("activation list failed")
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	var resp listResponse
	resp.OK = true
	resp.Items = make([]activationItem, 0, len(items))
	for _, it := range items {
		resp.Items = append(resp.Items, toItem(it, false))
	}
	resp.Totals.Total = totals.Total
	resp.Totals.Used = totals.Used
	resp.Totals.Unused = totals.Unused
	resp.Meta.Returned = len(resp.Items)
	resp.Meta.Limit = f.Limit
	resp.Meta.Offset = f.Offset
	resp.Meta.Page = f.Offset/f.Limit + 1
	resp.Meta.TotalPages = (totals.Total + f.Limit - 1) / f.Limit
	if resp.Meta.TotalPages < 1 {
		resp.Meta.TotalPages = 1
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleDetail serves GET /api/v1/activations/{code}, including the stored
// activation URL and QR data URL.
func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rec, err := s.listing.GetByCode(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "Not found")
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "Missing code")
		default:
			s.log.Error().Err(err).Msg("activation detail failed")
			writeError(w, http.StatusInternalServerError, "lookup failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, struct {
		OK   bool           `json:"ok"`
		Item activationItem `json:"item"`
	}{OK: true, Item: toItem(rec, true)})
}

func parseListFilter(r *http.Request) (model.ActivationFilter, error) {
	q := r.URL.Query()
	f := model.ActivationFilter{
		Query: strings.TrimSpace(q.Get("q")),
	}

	switch status := strings.ToLower(q.Get("status")); status {
	case "":
	case "used":
		f.Status = model.ActivationStatusUsed
	case "unused":
		f.Status = model.ActivationStatusUnused
	default:
		return f, errors.New("status must be used or unused")
	}

	var err error
	if f.IssuedFrom, err = parseDate(q.Get("issuedFrom"), false); err != nil {
		return f, errors.New("invalid issuedFrom")
	}
	if f.IssuedTo, err = parseDate(q.Get("issuedTo"), true); err != nil {
		return f, errors.New("invalid issuedTo")
	}
	if f.UsedFrom, err = parseDate(q.Get("usedFrom"), false); err != nil {
		return f, errors.New("invalid usedFrom")
	}
	if f.UsedTo, err = parseDate(q.Get("usedTo"), true); err != nil {
		return f, errors.New("invalid usedTo")
	}

	if v := q.Get("limit"); v != "" {
		f.Limit, err = strconv.Atoi(v)
		if err != nil {
			return f, errors.New("invalid limit")
		}
	}
	if v := q.Get("offset"); v != "" {
		f.Offset, err = strconv.Atoi(v)
		if err != nil {
			return f, errors.New("invalid offset")
		}
	}

	// Clamp here so the pagination meta reflects the effective page size.
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 2000 {
		f.Limit = 2000
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

// parseDate accepts YYYY-MM-DD; "to" bounds are extended to the end of the
// day so a single-day range behaves as operators expect.
func parseDate(v string, endOfDay bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

func toItem(rec *model.ActivationRecord, detail bool) activationItem {
	it := activationItem{
		Code:           rec.Code,
		SubscriptionID: rec.SubscriptionID,
		Status:         string(rec.Status),
		IssuedAt:       rec.IssuedAt,
		UsedAt:         rec.UsedAt,
		CustomerEmail:  rec.CustomerEmail,
		OrderID:        rec.OrderID,
	}
	if detail {
		it.ActivateURL = rec.ActivateURL
		it.QRURL = rec.QRDataURL
	}
	return it
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}{OK: false, Error: msg})
}
