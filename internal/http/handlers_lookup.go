package http

import "net/http"

func (s *Server) handleSupplyTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.ledger.SupplyTypes(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.Categories(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleListingTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.ledger.ListingTypes(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (s *Server) handleWeightTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.ledger.WeightTypes(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}
