package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookkeeper/internal/core"
	"bookkeeper/internal/log"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 64 << 10

// sessionFromRequest builds the caller identity from headers.
func (s *Server) sessionFromRequest(r *http.Request) core.Session {
	session := core.Session{
		AppName:   strings.TrimSpace(r.Header.Get("X-App-Name")),
		UserID:    strings.TrimSpace(r.Header.Get("X-User-ID")),
		SessionID: strings.TrimSpace(r.Header.Get("X-Session-ID")),
	}
	if session.AppName == "" {
		session.AppName = s.appName
	}
	if session.UserID == "" {
		session.UserID = "anonymous"
	}
	return session
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	var in core.RecordInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		logger.WarnContext(r.Context(), "Malformed record request", log.FieldError, err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("ERROR: Invalid transaction - malformed JSON: %v", err))
		return
	}

	confirmation, err := s.svc.RecordTransaction(r.Context(), s.sessionFromRequest(r), in)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: confirmation})
}

func (s *Server) handleExpensesSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseBound(q.Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid start_date %q: expected YYYY-MM-DD", q.Get("start_date")))
		return
	}
	end, err := parseBound(q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid end_date %q: expected YYYY-MM-DD", q.Get("end_date")))
		return
	}

	res, err := s.svc.Summarize(r.Context(), s.sessionFromRequest(r), start, end)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(res, s.currency))
}

func (s *Server) handleCurrentDate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, currentDateResponse{CurrentDate: s.svc.CurrentDate()})
}

// parseBound parses an optional YYYY-MM-DD query value. Blank means unset.
func parseBound(v string) (core.Date, error) {
	if strings.TrimSpace(v) == "" {
		return core.Date{}, nil
	}
	return core.ParseQueryDate(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type currentDateResponse struct {
	CurrentDate string `json:"current_date"`
}

type summaryResponse struct {
	Period             string                 `json:"period"`
	StartDate          *string                `json:"start_date"`
	EndDate            *string                `json:"end_date"`
	Currency           string                 `json:"currency"`
	TotalExpenses      json.Number            `json:"total_expenses"`
	TotalIncome        json.Number            `json:"total_income"`
	NetFlow            json.Number            `json:"net_flow"`
	MerchantBreakdown  map[string]json.Number `json:"merchant_breakdown"`
	TopMerchants       []merchantAmount       `json:"top_merchants"`
	RecentTransactions []core.Row             `json:"recent_transactions"`
	Matched            int                    `json:"matched"`
}

type merchantAmount struct {
	Merchant string      `json:"merchant"`
	Amount   json.Number `json:"amount"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func bound(d core.Date) *string {
	if d.IsEmpty() {
		return nil
	}
	s := d.Format(core.QueryDateLayout)
	return &s
}

func newSummaryResponse(res core.SummaryResult, currency string) summaryResponse {
	out := summaryResponse{
		Period:             res.Period,
		StartDate:          bound(res.Start),
		EndDate:            bound(res.End),
		Currency:           currency,
		TotalExpenses:      number(res.TotalExpenses),
		TotalIncome:        number(res.TotalIncome),
		NetFlow:            number(res.NetFlow),
		MerchantBreakdown:  make(map[string]json.Number, len(res.MerchantBreakdown)),
		TopMerchants:       []merchantAmount{},
		RecentTransactions: res.RecentTransactions,
		Matched:            res.Matched,
	}
	if out.RecentTransactions == nil {
		out.RecentTransactions = []core.Row{}
	}
	for merchant, amount := range res.MerchantBreakdown {
		out.MerchantBreakdown[merchant] = number(amount)
	}
	for _, m := range res.SortedBreakdown() {
		out.TopMerchants = append(out.TopMerchants, merchantAmount{Merchant: m.Merchant, Amount: number(m.Amount)})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
