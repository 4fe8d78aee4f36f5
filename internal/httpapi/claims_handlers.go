package httpapi

import (
	"net/http"
	"strings"

	"medclaim.org/internal/auth"
	"medclaim.org/internal/claims"
)

type createClaimRequest struct {
	PatientName      string        `json:"patient_name"`
	PatientID        string        `json:"patient_id"`
	HospitalName     string        `json:"hospital_name"`
	Diagnosis        string        `json:"diagnosis"`
	TreatmentDate    claims.Date   `json:"treatment_date"`
	ClaimAmount      claims.Amount `json:"claim_amount"`
	Currency         string        `json:"currency,omitempty"`
	InsuranceCompany string        `json:"insurance_company,omitempty"`
	Documents        []string      `json:"documents"`
}

type transitionRequest struct {
	Status         string         `json:"status"`
	ApprovedAmount *claims.Amount `json:"approved_amount,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Note           string         `json:"note,omitempty"`
}

type documentRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
}

type noteRequest struct {
	Text string `json:"text"`
}

type listClaimsResponse struct {
	Items []claims.Claim `json:"items"`
	Count int            `json:"count"`
}

// claimResponse is a claim plus what the caller can do next.
type claimResponse struct {
	claims.Claim
	Progress     []claims.TimelineEvent `json:"progress"`
	NextStatuses []claims.Status        `json:"next_statuses,omitempty"`
}

func newClaimResponse(id auth.Identity, c claims.Claim) claimResponse {
	resp := claimResponse{Claim: c, Progress: claims.Progress(c)}
	if claims.Allowed(id.Role, claims.ActionTransition) {
		resp.NextStatuses = claims.NextStatuses(c.Status)
	}
	return resp
}

func (a *API) handleClaimsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listClaims(w, r)
	case http.MethodPost:
		a.createClaim(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleClaimResource dispatches /v1/claims/{id}[/transitions|/documents|/notes].
func (a *API) handleClaimResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/claims/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id, sub, _ := strings.Cut(path, "/")
	if strings.Contains(sub, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch sub {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getClaim(w, r, id)
	case "transitions":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.transitionClaim(w, r, id)
	case "documents":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.attachDocument(w, r, id)
	case "notes":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.addNote(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listClaims(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	params := r.URL.Query()
	q := claims.Query{
		Search: params.Get("q"),
		Sort:   claims.SortKey(strings.ToLower(strings.TrimSpace(params.Get("sort")))),
	}
	if raw := strings.TrimSpace(params.Get("status")); raw != "" && raw != "all" {
		st, err := claims.ParseStatus(raw)
		if err != nil {
			handleClaimError(w, r, "list", err)
			return
		}
		q.Status = st
	}
	switch strings.ToLower(strings.TrimSpace(params.Get("order"))) {
	case "", "asc":
	case "desc":
		q.Desc = true
	default:
		writeErrorKind(w, r, http.StatusBadRequest, "validation", "order must be asc or desc")
		return
	}

	items, err := a.engine.List(r.Context(), id, q)
	if err != nil {
		handleClaimError(w, r, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, listClaimsResponse{Items: items, Count: len(items)})
}

func (a *API) createClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req createClaimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorKind(w, r, http.StatusBadRequest, "validation", err.Error())
		return
	}
	c, err := a.engine.Create(r.Context(), id, claims.ClaimInput{
		PatientName:      req.PatientName,
		PatientID:        req.PatientID,
		HospitalName:     req.HospitalName,
		Diagnosis:        req.Diagnosis,
		TreatmentDate:    req.TreatmentDate,
		ClaimAmount:      req.ClaimAmount,
		Currency:         req.Currency,
		InsuranceCompany: req.InsuranceCompany,
		Documents:        req.Documents,
	})
	if err != nil {
		handleClaimError(w, r, "create", err)
		return
	}
	w.Header().Set("Location", "/v1/claims/"+c.ID)
	writeJSON(w, http.StatusCreated, newClaimResponse(id, c))
}

func (a *API) getClaim(w http.ResponseWriter, r *http.Request, claimID string) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	c, err := a.engine.Get(r.Context(), id, claimID)
	if err != nil {
		handleClaimError(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, newClaimResponse(id, c))
}

func (a *API) transitionClaim(w http.ResponseWriter, r *http.Request, claimID string) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorKind(w, r, http.StatusBadRequest, "validation", err.Error())
		return
	}
	c, err := a.engine.ApplyTransition(r.Context(), id, claimID, claims.TransitionRequest{
		To:             claims.Status(strings.ToLower(strings.TrimSpace(req.Status))),
		ApprovedAmount: req.ApprovedAmount,
		Reason:         req.Reason,
		Note:           req.Note,
	})
	if err != nil {
		handleClaimError(w, r, "transition", err)
		return
	}
	writeJSON(w, http.StatusOK, newClaimResponse(id, c))
}

func (a *API) attachDocument(w http.ResponseWriter, r *http.Request, claimID string) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req documentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorKind(w, r, http.StatusBadRequest, "validation", err.Error())
		return
	}
	doc, err := a.engine.AttachDocument(r.Context(), id, claimID, claims.DocumentInput{
		Name:      req.Name,
		Type:      claims.DocumentType(strings.ToLower(strings.TrimSpace(req.Type))),
		SizeBytes: req.SizeBytes,
	})
	if err != nil {
		handleClaimError(w, r, "attach_document", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) addNote(w http.ResponseWriter, r *http.Request, claimID string) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErrorKind(w, r, http.StatusBadRequest, "validation", err.Error())
		return
	}
	c, err := a.engine.AddNote(r.Context(), id, claimID, req.Text)
	if err != nil {
		handleClaimError(w, r, "add_note", err)
		return
	}
	writeJSON(w, http.StatusCreated, newClaimResponse(id, c))
}

func (a *API) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	s, err := a.engine.Analytics(r.Context(), id)
	if err != nil {
		handleClaimError(w, r, "analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
