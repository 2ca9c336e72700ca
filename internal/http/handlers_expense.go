package http

import (
	"net/http"

	"fliptrack/internal/core"
)

// expenseRequest uses pointers so a missing key is distinguishable from a
// zero value. Cost, date and supply type are all required on create.
type expenseRequest struct {
	Cost          *core.Money `json:"cost"`
	DatePurchased *core.Date  `json:"date_purchased"`
	SupplyTypeID  *int64      `json:"supply_type_id"`
	ImageRef      string      `json:"image"`
}

func (req expenseRequest) missingKeys() []string {
	var missing []string
	if req.DatePurchased == nil || req.DatePurchased.IsZero() {
		missing = append(missing, "date_purchased")
	}
	if req.Cost == nil {
		missing = append(missing, "cost")
	}
	if req.SupplyTypeID == nil {
		missing = append(missing, "supply_type_id")
	}
	return missing
}

func (req expenseRequest) toExpense(userID int64) core.Expense {
	e := core.Expense{UserID: userID, ImageRef: req.ImageRef}
	if req.Cost != nil {
		e.Cost = *req.Cost
	}
	if req.DatePurchased != nil {
		e.DatePurchased = *req.DatePurchased
	}
	if req.SupplyTypeID != nil {
		e.SupplyTypeID = *req.SupplyTypeID
	}
	return e
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if missing := req.missingKeys(); len(missing) > 0 {
		writeMissingKeys(w, missing)
		return
	}

	created, err := s.ledger.CreateExpense(r.Context(), req.toExpense(userID))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := s.ledger.ListExpenses(r.Context(), userID, year)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := s.ledger.GetExpense(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if missing := req.missingKeys(); len(missing) > 0 {
		writeMissingKeys(w, missing)
		return
	}

	e := req.toExpense(userID)
	e.ID = id
	if err := s.ledger.UpdateExpense(r.Context(), e); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.DeleteExpense(r.Context(), id, userID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
