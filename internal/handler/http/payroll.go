package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/events"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

type PayrollHandler interface {
	// Payroll records
	Create(w http.ResponseWriter, r *http.Request)
	CreateMonthly(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)

	// Calculation
	AddLine(w http.ResponseWriter, r *http.Request)
	Calculate(w http.ResponseWriter, r *http.Request)

	// Lifecycle
	Approve(w http.ResponseWriter, r *http.Request)
	Process(w http.ResponseWriter, r *http.Request)
	MarkAsPaid(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)

	// Batch
	RunMonthEnd(w http.ResponseWriter, r *http.Request)

	// SSE
	GetStreamToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

// MonthEndRunner creates and calculates monthly payrolls for every active employee.
type MonthEndRunner interface {
	RunForMonth(ctx context.Context, year, month int) (payroll.MonthEndResult, error)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
	monthEnd       MonthEndRunner
	jwtService     jwt.Service
	hub            *sse.Hub
	keepalive      time.Duration
}

func NewPayrollHandler(payrollService payroll.PayrollService, monthEnd MonthEndRunner, jwtService jwt.Service, hub *sse.Hub) PayrollHandler {
	return &payrollHandlerImpl{
		payrollService: payrollService,
		monthEnd:       monthEnd,
		jwtService:     jwtService,
		hub:            hub,
		keepalive:      30 * time.Second,
	}
}

// getUserIDFromContext extracts user_id from JWT context
func getUserIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if userID, ok := claims["user_id"].(string); ok {
		return userID
	}
	return ""
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

// decodeOptional decodes a JSON body that may be absent.
// payrollIDParam reads the {id} path param. Payroll IDs are UUIDv7.
func payrollIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		return "", validator.ValidationErrors{{Field: "id", Message: "must be a valid UUID"}}
	}
	return id, nil
}

func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ========== PAYROLL RECORDS ==========

func (h *payrollHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreatePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll created successfully", result)
}

func (h *payrollHandlerImpl) CreateMonthly(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateMonthlyPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateMonthly(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll created successfully", result)
}

func (h *payrollHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id, err := payrollIDParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.Get(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := payroll.ListPayrollFilter{
		Page:  getIntQueryParam(r, "page", 1),
		Limit: getIntQueryParam(r, "limit", 20),
	}
	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}

	result, err := h.payrollService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Payrolls, &response.Meta{
		Page:  result.Page,
		Limit: result.Limit,
		Count: len(result.Payrolls),
	})
}

func (h *payrollHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := payrollIDParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if err := h.payrollService.Delete(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll deleted successfully", nil)
}

// ========== CALCULATION ==========

func (h *payrollHandlerImpl) AddLine(w http.ResponseWriter, r *http.Request) {
	id, err := payrollIDParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req payroll.AddLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.AddLine(r.Context(), id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Line added successfully", result)
}

func (h *payrollHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	id, err := payrollIDParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req payroll.CalculatePayrollRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.Calculate(r.Context(), id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll calculated successfully", result)
}

// ========== LIFECYCLE ==========

// Approve records the authenticated user as approver unless the body names one.
func (h *payrollHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := payrollIDParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req payroll.ApprovePayrollRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if req.ApprovedBy == "" {
		req.ApprovedBy = getUserIDFromContext(r)
	}

	result, err := h.payrollService.Approve(r.Context(), id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll approved successfully", result)
}

func (h *payrollHandlerImpl) Process(w http.ResponseWriter, r *http.Request) {
	id, err := payrollIDParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.Process(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll processed successfully", result)
}

func (h *payrollHandlerImpl) MarkAsPaid(w http.ResponseWriter, r *http.Request) {
	id, err := payrollIDParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req payroll.MarkAsPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.MarkAsPaid(r.Context(), id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll marked as paid", result)
}

func (h *payrollHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := payrollIDParam(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.Cancel(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll cancelled successfully", result)
}

// ========== BATCH ==========

func (h *payrollHandlerImpl) RunMonthEnd(w http.ResponseWriter, r *http.Request) {
	var req payroll.RunMonthEndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.monthEnd.RunForMonth(r.Context(), req.Year, req.Month)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Month-end payroll run completed", result)
}

// ========== SSE ==========

type streamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// GetStreamToken generates a short-lived token for the event stream
func (h *payrollHandlerImpl) GetStreamToken(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(userID)
	if err != nil {
		response.InternalServerError(w, "Failed to generate stream token")
		return
	}

	response.Success(w, streamTokenResponse{Token: token, ExpiresIn: expiresIn})
}

// Stream pushes payroll events over SSE. With employee_id set only that
// employee's payroll events are sent. The stream token is consumed on connect.
func (h *payrollHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter (SSE doesn't support custom headers)
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwtService.ValidateSSEToken(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	// Stream tokens are single use; a reconnect fetches a new one.
	h.jwtService.RevokeToken(tokenStr)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	topic := events.TopicAllPayrolls
	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		topic = events.EmployeeTopic(employeeID)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	stream, cleanup := h.hub.Subscribe(topic)
	defer cleanup()
	slog.DebugContext(r.Context(), "SSE client connected", "user_id", userID, "topic", topic, "subscribers", h.hub.SubscriberCount(topic))

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"user_id\":%q,\"topic\":%q}\n\n", userID, topic)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-stream:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
