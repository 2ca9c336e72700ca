package http

import (
	"errors"
	"net/http"

	"fliptrack/internal/core"
	"fliptrack/internal/services"
)

type itemRequest struct {
	Title         string     `json:"title"`
	UniqueItemID  int64      `json:"unique_item_id"`
	CategoryID    int64      `json:"category_id"`
	ListingTypeID int64      `json:"listing_type_id"`
	WeightTypeID  int64      `json:"weight_type_id"`
	ItemWeight    float64    `json:"item_weight"`
	Notes         string     `json:"notes"`
	ItemCost      core.Money `json:"item_cost"`
	ListingFee    core.Money `json:"listing_fee"`
	DateListed    core.Date  `json:"date_listed"`
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := s.ledger.CreateItem(r.Context(), core.Item{
		UserID:        userID,
		Title:         req.Title,
		UniqueItemID:  req.UniqueItemID,
		CategoryID:    req.CategoryID,
		ListingTypeID: req.ListingTypeID,
		WeightTypeID:  req.WeightTypeID,
		ItemWeight:    req.ItemWeight,
		Notes:         req.Notes,
		ItemCost:      req.ItemCost,
		ListingFee:    req.ListingFee,
		DateListed:    req.DateListed,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	items, err := s.ledger.ListItems(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []core.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleListSoldItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	items, err := s.ledger.ListSoldItems(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []core.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetSoldItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	it, err := s.ledger.GetSoldItem(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// handleCompleteSale accepts only the sale-completion fields; everything
// else about the listing is immutable once sold.
func (s *Server) handleCompleteSale(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var upd services.SaleUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	it, err := s.ledger.CompleteSale(r.Context(), id, userID, upd)
	if err != nil {
		if errors.Is(err, services.ErrMissingSoldDate) {
			writeMissingKeys(w, []string{"sold_date"})
			return
		}
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.DeleteItem(r.Context(), id, userID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
