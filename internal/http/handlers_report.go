package http

import (
	"net/http"

	"fliptrack/internal/report"
)

func (s *Server) handleExpensesBySupplyType(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := s.ledger.SupplyTypeTotals(r.Context(), userID, year)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if totals == nil {
		totals = []report.SupplyTypeTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleExpensesByMonth(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := s.ledger.MonthlyExpenseTotals(r.Context(), userID, year)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if totals == nil {
		totals = []report.MonthTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleSoldItemsByMonth(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	counts, err := s.ledger.MonthlySoldCounts(r.Context(), userID, year)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if counts == nil {
		counts = []report.MonthCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleDashboard returns all three aggregates in one response.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.ledger.YearSummary(r.Context(), userID, year)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if summary.BySupplyType == nil {
		summary.BySupplyType = []report.SupplyTypeTotal{}
	}
	if summary.ByMonth == nil {
		summary.ByMonth = []report.MonthTotal{}
	}
	if summary.SoldByMonth == nil {
		summary.SoldByMonth = []report.MonthCount{}
	}
	writeJSON(w, http.StatusOK, summary)
}
