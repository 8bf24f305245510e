package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/philipparndt/modelforge/internal/account"
	"github.com/philipparndt/modelforge/internal/auth"
	"github.com/philipparndt/modelforge/internal/billing"
	"github.com/philipparndt/modelforge/internal/gallery"
	"github.com/philipparndt/modelforge/internal/modelfile"
	"github.com/philipparndt/modelforge/internal/operation"
	"github.com/philipparndt/modelforge/version"
)

const codeUpstream = "UPSTREAM_ERROR"

func (s *Server) fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeError(w, status, code, err.Error())
}

func caller(r *http.Request) auth.User {
	u, _ := auth.UserFrom(r.Context())
	return u
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Get().Version,
	})
}

type meResponse struct {
	ID       string       `json:"id"`
	Email    string       `json:"email,omitempty"`
	Tier     account.Tier `json:"tier"`
	Customer bool         `json:"hasSubscription"`
	Billing  bool         `json:"billingEnabled"`
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u := caller(r)
	resp := meResponse{ID: u.ID, Email: u.Email, Tier: account.TierFree, Billing: s.svc.Billing != nil}
	if s.svc.Accounts != nil {
		p, err := s.svc.Accounts.Ensure(r.Context(), u.ID, u.Email)
		if err != nil {
			s.fail(w, err)
			return
		}
		resp.Email = p.Email
		resp.Tier = p.SubscriptionTier
		resp.Customer = p.StripeCustomerID != ""
	}
	writeSuccess(w, http.StatusOK, resp)
}

// Chat

func (s *Server) chatHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Chat.Recent(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, entries)
}

type promptRequest struct {
	Message string `json:"message,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
}

func (p promptRequest) text() string {
	if p.Prompt != "" {
		return p.Prompt
	}
	return p.Message
}

func (s *Server) chatSubmit(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
		return
	}
	reply, err := s.svc.Chat.Submit(r.Context(), caller(r).ID, req.text())
	if err != nil {
		s.fail(w, err)
		return
	}
	if s.svc.Metrics != nil {
		if reply.Entry.Instruction != nil {
			s.svc.Metrics.RecordInterpretation(reply.Entry.Instruction.Op.Name(), nil)
		} else {
			s.svc.Metrics.RecordInterpretation("", errors.New(reply.Entry.Error))
		}
	}
	writeSuccess(w, http.StatusOK, reply)
}

func (s *Server) interpret(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
		return
	}
	text := strings.TrimSpace(req.text())
	if text == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "prompt required")
		return
	}
	inst, err := s.svc.Interpreter.Interpret(r.Context(), text)
	if s.svc.Metrics != nil {
		name := ""
		if inst != nil {
			name = inst.Op.Name()
		}
		s.svc.Metrics.RecordInterpretation(name, err)
	}
	if err != nil {
		s.logger.Warn("interpretation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, codeUpstream, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, inst)
}

// Models

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.svc.Gallery.List(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, models)
}

func (s *Server) importModel(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeInvalidRequest, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "multipart form with a file field required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "failed to read file")
		return
	}
	m, err := s.svc.Gallery.Import(r.Context(), caller(r).ID, gallery.Upload{
		Filename:    header.Filename,
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Data:        data,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, m)
}

func (s *Server) renameModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "name required")
		return
	}
	m, err := s.svc.Gallery.Rename(r.Context(), caller(r).ID, r.PathValue("id"), strings.TrimSpace(req.Name))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, m)
}

func (s *Server) deleteModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Gallery.Delete(r.Context(), caller(r).ID, id); err != nil {
		s.fail(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *Server) modelFile(w http.ResponseWriter, r *http.Request) {
	rc, m, err := s.svc.Gallery.File(r.Context(), caller(r).ID, r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	defer rc.Close()

	format := modelfile.Format(m.Format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", modelfile.CleanName(m.Name)+format.Extension()))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("failed to stream model", zap.String("model", m.ID), zap.Error(err))
	}
}

type customizeRequest struct {
	Prompt     string          `json:"prompt,omitempty"`
	Operation  string          `json:"operation,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Format     string          `json:"format,omitempty"`
}

// customizeModel applies one operation, given as a prompt or by name, and
// returns the encoded result
func (s *Server) customizeModel(w http.ResponseWriter, r *http.Request) {
	var req customizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
		return
	}
	format := modelfile.STL
	if req.Format != "" {
		f, err := modelfile.ParseFormat(req.Format)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}
		format = f
	}

	var inst *operation.Instruction
	switch {
	case strings.TrimSpace(req.Prompt) != "":
		var err error
		inst, err = s.svc.Interpreter.Interpret(r.Context(), req.Prompt)
		if err != nil {
			writeError(w, http.StatusBadGateway, codeUpstream, err.Error())
			return
		}
	case req.Operation != "":
		op, err := operation.Decode(req.Operation, req.Parameters)
		if errors.Is(err, operation.ErrNotImplemented) {
			s.fail(w, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}
		inst = operation.NewInstruction(op)
	default:
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "prompt or operation required")
		return
	}
	if err := operation.Validate(inst.Op); err != nil && !errors.Is(err, operation.ErrNotImplemented) {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	mesh, err := s.svc.Gallery.Open(r.Context(), caller(r).ID, r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	out, err := s.svc.Transform.Apply(mesh, inst.Op)
	if s.svc.Metrics != nil {
		s.svc.Metrics.RecordTransform(inst.Op.Name(), err)
	}
	if err != nil {
		s.fail(w, err)
		return
	}

	var buf bytes.Buffer
	if err := modelfile.Encode(format, &buf, out); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", modelfile.CleanName(mesh.Name)+"_custom"+format.Extension()))
	w.Header().Set("X-Modelforge-Operation", inst.Op.Name())
	w.Header().Set("X-Modelforge-Explanation", headerValue(inst.Explanation))
	_, _ = w.Write(buf.Bytes())
}

func headerValue(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// Search

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "query parameter q required")
		return
	}
	results, err := s.svc.Search.Search(r.Context(), q, r.URL.Query()["platform"]...)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, results)
}

// Billing

func (s *Server) billing(w http.ResponseWriter) (*billing.Service, bool) {
	if s.svc.Billing == nil {
		s.fail(w, billing.ErrDisabled)
		return nil, false
	}
	return s.svc.Billing, true
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	b, ok := s.billing(w)
	if !ok {
		return
	}
	u := caller(r)
	c, err := b.CreateCheckout(r.Context(), u.ID, u.Email)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

func (s *Server) portal(w http.ResponseWriter, r *http.Request) {
	b, ok := s.billing(w)
	if !ok {
		return
	}
	var req struct {
		ReturnURL string `json:"returnUrl"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
			return
		}
	}
	url, err := b.CreatePortal(r.Context(), caller(r).ID, req.ReturnURL)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) verifyCheckout(w http.ResponseWriter, r *http.Request) {
	b, ok := s.billing(w)
	if !ok {
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "session_id required")
		return
	}
	v, err := b.VerifyCheckout(r.Context(), caller(r).ID, sessionID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, v)
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	b, ok := s.billing(w)
	if !ok {
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "failed to read body")
		return
	}
	event, err := b.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		s.logger.Warn("webhook rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"received": true, "type": event})
}
