package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-verifier-go/pkg/types"
)

// Upper bound on the JSON size of one hash or flag, quotes and separators included
const bytesPerElement = 80

// requestError is a failure with the HTTP status it maps to
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func newRequestError(status int, format string, args ...interface{}) *requestError {
	return &requestError{status: status, msg: fmt.Sprintf(format, args...)}
}

// handleVerify handles POST /verify
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req types.VerifyRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	if n := countElements(&req); n > s.config.MaxProofElements {
		s.writeError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request carries %d proof elements, limit is %d", n, s.config.MaxProofElements))
		return
	}

	proofReq, err := s.resolve(&req)
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	computed, err := s.validator.Process(proofReq)
	if err != nil {
		s.writeRequestError(w, r, classifyProcessError(err))
		return
	}

	resp := types.VerifyResponse{
		RequestID:    requestID(r),
		Valid:        computed == proofReq.Root,
		Root:         proofReq.Root,
		ComputedRoot: computed,
	}

	s.logger.Sugar().Debugw("Verify request served",
		"request_id", resp.RequestID,
		"root_name", req.RootName,
		"leaves", len(req.Leaves),
		"valid", resp.Valid,
	)

	s.writeJSON(w, r, http.StatusOK, resp)
}

// handleVerifyBatch handles POST /verify/batch
func (s *Server) handleVerifyBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var batch types.BatchVerifyRequest
	if err := s.decodeBody(w, r, &batch); err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	total := 0
	for i := range batch.Requests {
		total += countElements(&batch.Requests[i])
	}
	if total > s.config.MaxProofElements {
		s.writeError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch carries %d proof elements, limit is %d", total, s.config.MaxProofElements))
		return
	}

	// Resolution failures are reported per request, like verification failures
	proofReqs := make([]*types.ProofRequest, len(batch.Requests))
	resolveErrs := make(map[int]string)
	for i := range batch.Requests {
		proofReq, err := s.resolve(&batch.Requests[i])
		if err != nil {
			resolveErrs[i] = err.Error()
			continue
		}
		proofReqs[i] = proofReq
	}

	results, err := s.validator.ValidateBatch(r.Context(), proofReqs)
	if err != nil {
		s.logger.Sugar().Warnw("Batch verification interrupted", "request_id", requestID(r), "error", err)
		s.writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	for i, msg := range resolveErrs {
		results[i].Error = msg
	}

	s.writeJSON(w, r, http.StatusOK, types.BatchVerifyResponse{
		RequestID: requestID(r),
		Results:   results,
	})
}

// handleRoots handles POST and GET on /roots
func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleRegisterRoot(w, r)
	case http.MethodGet:
		roots, err := s.roots.ListRoots()
		if err != nil {
			s.logger.Sugar().Errorw("Failed to list roots", "request_id", requestID(r), "error", err)
			s.writeError(w, r, http.StatusInternalServerError, "failed to list roots")
			return
		}
		s.writeJSON(w, r, http.StatusOK, roots)
	default:
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleRegisterRoot(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRootRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	if err := persistence.ValidateRootName(req.Name); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	algorithm := req.HashAlgorithm
	if algorithm == "" {
		algorithm = s.validator.HashAlgorithm()
	}
	if _, err := merkle.HasherForAlgorithm(algorithm); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	root := &types.TrustedRoot{
		Name:          req.Name,
		Root:          req.Root,
		HashAlgorithm: algorithm,
		Description:   req.Description,
		CreatedAt:     time.Now().Unix(),
	}
	if err := s.roots.SaveRoot(root); err != nil {
		s.logger.Sugar().Errorw("Failed to save root", "request_id", requestID(r), "name", req.Name, "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to save root")
		return
	}

	s.logger.Sugar().Infow("Registered trusted root",
		"request_id", requestID(r),
		"name", root.Name,
		"root", root.Root.Hex(),
		"hash_algorithm", root.HashAlgorithm,
	)

	s.writeJSON(w, r, http.StatusCreated, root)
}

// handleRoot handles GET and DELETE on /roots/{name}
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := r.PathValue("name")
	root, err := s.roots.LoadRoot(name)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to load root", "request_id", requestID(r), "name", name, "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to load root")
		return
	}
	if root == nil {
		s.writeError(w, r, http.StatusNotFound, fmt.Sprintf("root %q not found", name))
		return
	}

	if r.Method == http.MethodGet {
		s.writeJSON(w, r, http.StatusOK, root)
		return
	}

	if err := s.roots.DeleteRoot(name); err != nil {
		s.logger.Sugar().Errorw("Failed to delete root", "request_id", requestID(r), "name", name, "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to delete root")
		return
	}
	s.logger.Sugar().Infow("Deleted trusted root", "request_id", requestID(r), "name", name)
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.roots.HealthCheck(); err != nil {
		s.logger.Sugar().Warnw("Health check failed", "error", err)
		s.writeJSON(w, r, http.StatusServiceUnavailable, types.HealthResponse{Status: "unhealthy"})
		return
	}
	s.writeJSON(w, r, http.StatusOK, types.HealthResponse{Status: "ok"})
}

// resolve turns a wire request into a ProofRequest, looking up a named root
// in the registry.
func (s *Server) resolve(req *types.VerifyRequest) (*types.ProofRequest, error) {
	proofReq := &types.ProofRequest{
		Leaves:        req.Leaves,
		Proof:         req.Proof,
		ProofFlags:    req.ProofFlags,
		HashAlgorithm: req.HashAlgorithm,
	}

	switch {
	case req.RootName != "":
		trusted, err := s.roots.LoadRoot(req.RootName)
		if err != nil {
			return nil, newRequestError(http.StatusInternalServerError, "failed to load root %q", req.RootName)
		}
		if trusted == nil {
			return nil, newRequestError(http.StatusNotFound, "root %q not found", req.RootName)
		}
		proofReq.Root = trusted.Root
		proofReq.HashAlgorithm = trusted.HashAlgorithm
	case req.Root != nil:
		proofReq.Root = *req.Root
	default:
		return nil, newRequestError(http.StatusBadRequest, "one of root or rootName is required")
	}

	return proofReq, nil
}

func classifyProcessError(err error) *requestError {
	if errors.Is(err, merkle.ErrInvalidMultiProof) {
		return newRequestError(http.StatusUnprocessableEntity, "%s", err.Error())
	}
	return newRequestError(http.StatusBadRequest, "%s", err.Error())
}

func countElements(req *types.VerifyRequest) int {
	return len(req.Leaves) + len(req.Proof) + len(req.ProofFlags)
}

// decodeBody parses a JSON body capped at a size derived from MaxProofElements
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	limit := int64(s.config.MaxProofElements)*bytesPerElement + 64<<10
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return newRequestError(http.StatusRequestEntityTooLarge, "request body exceeds %d bytes", maxErr.Limit)
		}
		return newRequestError(http.StatusBadRequest, "failed to parse request: %v", err)
	}
	return nil
}

func (s *Server) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		s.writeError(w, r, reqErr.status, reqErr.msg)
		return
	}
	s.writeError(w, r, http.StatusInternalServerError, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, types.ErrorResponse{RequestID: requestID(r), Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Sugar().Errorw("Failed to encode response", "request_id", requestID(r), "error", err)
	}
}
