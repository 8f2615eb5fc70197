package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Layr-Labs/verified-messages-go/pkg/registry"
	"github.com/Layr-Labs/verified-messages-go/pkg/types"
)

// handleVerifyMessage handles POST /messages/verify
func (s *Server) handleVerifyMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req types.VerifyMessageRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	valid := s.node.registry.VerifyMessage(req.Message, req.Signature, req.Signer)
	writeJSON(w, http.StatusOK, types.VerifyMessageResponse{Valid: valid})
}

// handlePostMessage handles POST /messages/post
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if s.node.postLimiter != nil && !s.node.postLimiter.Allow() {
		if s.node.metrics != nil {
			s.node.metrics.RateLimited.Inc()
		}
		writeError(w, http.StatusTooManyRequests, "Post rate limit exceeded")
		return
	}

	var req types.PostMessageRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	event, err := s.node.registry.PostMessage(req.Message, req.Signature, req.Signer)
	if err != nil {
		var postErr *registry.PostError
		if errors.As(err, &postErr) {
			status := http.StatusUnprocessableEntity
			if postErr.Code == registry.ErrCodeMessageAlreadyPosted {
				status = http.StatusConflict
			}
			writeJSON(w, status, types.ErrorResponse{Code: postErr.Code, Error: postErr.Message})
			return
		}

		s.node.logger.Sugar().Errorw("Failed to post message", "signer", req.Signer, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, types.PostMessageResponse{Event: event})
}

// handleIsMessagePosted handles POST /messages/posted
func (s *Server) handleIsMessagePosted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req types.MessageRef
	if !decodeRequest(w, r, &req) {
		return
	}

	posted, err := s.node.registry.IsMessagePosted(req.Message, req.Signer)
	if err != nil {
		s.node.logger.Sugar().Errorw("Failed to look up message", "signer", req.Signer, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, types.IsMessagePostedResponse{Posted: posted})
}

// handleListEvents handles GET /messages/events?after=N&limit=M
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query()

	var after uint64
	if v := query.Get("after"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid after: %v", err))
			return
		}
		after = parsed
	}

	limit := DefaultEventsLimit
	if v := query.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit: must be a positive integer")
			return
		}
		limit = min(parsed, MaxEventsLimit)
	}

	events, err := s.node.registry.Events(after, limit)
	if err != nil {
		s.node.logger.Sugar().Errorw("Failed to list events", "after", after, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, types.EventsResponse{Events: events})
}

// handleLedgerRoot handles GET /ledger/root
func (s *Server) handleLedgerRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	root, count, err := s.node.registry.LedgerRoot()
	if err != nil {
		s.node.logger.Sugar().Errorw("Failed to compute ledger root", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, types.LedgerRootResponse{Root: root, Count: count})
}

// handleLedgerProof handles POST /ledger/proof
func (s *Server) handleLedgerProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req types.MessageRef
	if !decodeRequest(w, r, &req) {
		return
	}

	proof, root, err := s.node.registry.ProveMessage(req.Message, req.Signer)
	if errors.Is(err, registry.ErrNotPosted) {
		writeError(w, http.StatusNotFound, "Message not posted")
		return
	}
	if err != nil {
		s.node.logger.Sugar().Errorw("Failed to build ledger proof", "signer", req.Signer, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	key, _ := registry.RegistryKey(req.Message, req.Signer)
	writeJSON(w, http.StatusOK, types.LedgerProofResponse{
		Root:      root,
		Key:       key,
		LeafIndex: proof.LeafIndex,
		Leaf:      proof.Leaf,
		Proof:     proof.Proof,
	})
}

// handleHealthz handles GET /healthz
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.node.registry.HealthCheck(); err != nil {
		s.node.logger.Sugar().Warnw("Health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Registry store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeRequest decodes a JSON body into dst, writing a 400 on failure
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse request: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}
