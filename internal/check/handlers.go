package check

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"splitcheck/internal/split"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// mutationError maps service errors on mutating calls: bad indices are caller
// bugs (400), anything else means the check could not be loaded (404)
func mutationError(w http.ResponseWriter, err error) {
	if errors.Is(err, split.ErrIndexOutOfRange) || errors.Is(err, split.ErrInvalidAssignment) {
		corsError(w, err.Error(), http.StatusBadRequest)
		return
	}
	corsError(w, "Check not found", http.StatusNotFound)
}

// handleUploadCheck accepts a multipart check image and runs the scan pipeline
func (s *Server) handleUploadCheck(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		corsError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		corsError(w, "Image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		corsError(w, "Error reading file", http.StatusBadRequest)
		return
	}

	people := 1
	if v := r.FormValue("people"); v != "" {
		people, err = strconv.Atoi(v)
		if err != nil || people < 1 {
			corsError(w, "Invalid people count", http.StatusBadRequest)
			return
		}
	}

	contentType := header.Header.Get("Content-Type")

	c, err := s.service.ProcessCheck(header.Filename, data, contentType, people)
	if err != nil {
		slog.Error("Error processing check", "error", err)
		corsError(w, "Error processing check", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// handleCreateFromText creates a check from a raw OCR text dump
func (s *Server) handleCreateFromText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text   string `json:"text"`
		People int    `json:"people"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := s.service.CreateFromText(req.Text, req.People)
	if err != nil {
		slog.Error("Error creating check from text", "error", err)
		corsError(w, "Error creating check", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// handleListChecks returns a list of all checks
func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := s.service.ListChecks()
	if err != nil {
		slog.Error("Error listing checks", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if checks == nil {
		checks = []*Check{}
	}

	writeJSON(w, http.StatusOK, checks)
}

// handleGetCheck returns a single check
func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Check ID required", http.StatusBadRequest)
		return
	}

	c, err := s.service.GetCheck(id)
	if err != nil {
		corsError(w, "Check not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleDeleteCheck removes a check
func (s *Server) handleDeleteCheck(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Check ID required", http.StatusBadRequest)
		return
	}

	if err := s.service.DeleteCheck(id); err != nil {
		corsError(w, "Check not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetCheckImage serves the stored check image
func (s *Server) handleGetCheckImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	data, contentType, err := s.service.GetCheckImage(id)
	if err != nil {
		corsError(w, "Image not found", http.StatusNotFound)
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteItem removes one parsed item from a check
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		corsError(w, "Invalid item index", http.StatusBadRequest)
		return
	}

	c, err := s.service.DeleteItem(id, index)
	if err != nil {
		mutationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleRenameParticipant changes a participant's display name
func (s *Server) handleRenameParticipant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		corsError(w, "Invalid participant index", http.StatusBadRequest)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := s.service.RenameParticipant(id, index, req.Name)
	if err != nil {
		mutationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleSetAssignment marks whether a participant shares an item
func (s *Server) handleSetAssignment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Item        int  `json:"item"`
		Participant int  `json:"participant"`
		Shared      bool `json:"shared"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := s.service.SetAssignment(id, req.Item, req.Participant, req.Shared)
	if err != nil {
		mutationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleSetPayer designates the paying participant
func (s *Server) handleSetPayer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		PayerIndex int `json:"payer_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := s.service.SetPayer(id, req.PayerIndex)
	if err != nil {
		mutationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleSummary returns the computed settlement for a check
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := s.service.Summary(id)
	if err != nil {
		mutationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
