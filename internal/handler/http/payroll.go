package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Periods
	ResolvePeriod(w http.ResponseWriter, r *http.Request)
	GetPeriod(w http.ResponseWriter, r *http.Request)
	ListPeriods(w http.ResponseWriter, r *http.Request)

	// Runs
	CreateRun(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	ListRuns(w http.ResponseWriter, r *http.Request)
	ApproveRun(w http.ResponseWriter, r *http.Request)
	ProcessRun(w http.ResponseWriter, r *http.Request)
	MarkRunPaid(w http.ResponseWriter, r *http.Request)
	CancelRun(w http.ResponseWriter, r *http.Request)

	// Entries
	CreateEntry(w http.ResponseWriter, r *http.Request)
	GetEntry(w http.ResponseWriter, r *http.Request)
	ListEntries(w http.ResponseWriter, r *http.Request)
	UpdateEntry(w http.ResponseWriter, r *http.Request)
	DeleteEntry(w http.ResponseWriter, r *http.Request)
	SubmitEntry(w http.ResponseWriter, r *http.Request)
	ApproveEntry(w http.ResponseWriter, r *http.Request)
	RejectEntry(w http.ResponseWriter, r *http.Request)
	LockEntry(w http.ResponseWriter, r *http.Request)
	UnlockEntry(w http.ResponseWriter, r *http.Request)
	GetEntryTimesheets(w http.ResponseWriter, r *http.Request)
	DownloadPayslip(w http.ResponseWriter, r *http.Request)

	// Sync
	SyncAttendance(w http.ResponseWriter, r *http.Request)
	SyncEmployee(w http.ResponseWriter, r *http.Request)
	SyncRejection(w http.ResponseWriter, r *http.Request)

	// Reporting
	GetDashboard(w http.ResponseWriter, r *http.Request)
	ListAuditLogs(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{
		payrollService: payrollService,
	}
}

// ==================== PERIODS ====================

func (h *payrollHandlerImpl) ResolvePeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.ResolvePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.ResolvePeriod(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) GetPeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.GetPeriod(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if result == nil {
		response.NotFound(w, "Pay period not found")
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListPeriods(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := payroll.PeriodFilter{
		Frequency: queryString(q, "frequency"),
		Status:    queryString(q, "status"),
	}
	if y := q.Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			response.BadRequest(w, "Invalid year", nil)
			return
		}
		filter.Year = &year
	}
	filter.Page, filter.Limit = pagination(q)

	result, err := h.payrollService.ListPeriods(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, response.NewMeta(result.Page, result.Limit, result.TotalCount))
}

// ==================== RUNS ====================

func (h *payrollHandlerImpl) CreateRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateRun(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if result == nil {
		response.NotFound(w, "Pay period not found")
		return
	}

	response.Created(w, "Payroll run created successfully", result)
}

func (h *payrollHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.GetRun(r.Context(), actor, chi.URLParam(r, "id"))
	h.writeRun(w, result, err, "")
}

func (h *payrollHandlerImpl) ListRuns(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := payroll.RunFilter{
		PayPeriodID: queryString(q, "pay_period_id"),
		Status:      queryString(q, "status"),
	}
	filter.Page, filter.Limit = pagination(q)

	result, err := h.payrollService.ListRuns(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, response.NewMeta(result.Page, result.Limit, result.TotalCount))
}

func (h *payrollHandlerImpl) ApproveRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.ApproveRun(r.Context(), actor, chi.URLParam(r, "id"))
	h.writeRun(w, result, err, "Payroll run approved successfully")
}

func (h *payrollHandlerImpl) ProcessRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.ProcessRun(r.Context(), actor, chi.URLParam(r, "id"))
	h.writeRun(w, result, err, "Payroll run processed successfully")
}

func (h *payrollHandlerImpl) MarkRunPaid(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.MarkRunPaid(r.Context(), actor, chi.URLParam(r, "id"))
	h.writeRun(w, result, err, "Payroll run marked as paid")
}

func (h *payrollHandlerImpl) CancelRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.CancelRunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}

	result, err := h.payrollService.CancelRun(r.Context(), actor, chi.URLParam(r, "id"), req)
	h.writeRun(w, result, err, "Payroll run cancelled successfully")
}

func (h *payrollHandlerImpl) writeRun(w http.ResponseWriter, result *payroll.PayrollRunResponse, err error, message string) {
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if result == nil {
		response.NotFound(w, "Payroll run not found")
		return
	}
	if message == "" {
		response.Success(w, result)
		return
	}
	response.SuccessWithMessage(w, message, result)
}

// ==================== ENTRIES ====================

func (h *payrollHandlerImpl) CreateEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateEntry(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if result == nil {
		response.NotFound(w, "Pay period or employee not found")
		return
	}

	response.Created(w, "Payroll entry created successfully", result)
}

func (h *payrollHandlerImpl) GetEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.GetEntry(r.Context(), actor, chi.URLParam(r, "id"))
	h.writeEntry(w, result, err, "")
}

func (h *payrollHandlerImpl) ListEntries(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := payroll.EntryFilter{
		PayrollRunID: queryString(q, "payroll_run_id"),
		PayPeriodID:  queryString(q, "pay_period_id"),
		EmployeeID:   queryString(q, "employee_id"),
		Status:       queryString(q, "status"),
		SourceType:   queryString(q, "source_type"),
		SortBy:       q.Get("sort_by"),
		SortOrder:    q.Get("sort_order"),
	}
	filter.Page, filter.Limit = pagination(q)

	result, err := h.payrollService.ListEntries(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, response.NewMeta(result.Page, result.Limit, result.TotalCount))
}

func (h *payrollHandlerImpl) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.payrollService.UpdateEntry(r.Context(), actor, req)
	h.writeEntry(w, result, err, "Payroll entry updated successfully")
}

func (h *payrollHandlerImpl) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.DeleteEntry(r.Context(), actor, chi.URLParam(r, "id"))
	h.writeEntry(w, result, err, "Payroll entry deleted successfully")
}

func (h *payrollHandlerImpl) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.SubmitEntry(r.Context(), actor, chi.URLParam(r, "id"))
	h.writeEntry(w, result, err, "Payroll entry submitted for approval")
}

func (h *payrollHandlerImpl) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.ApproveEntry(r.Context(), actor, chi.URLParam(r, "id"))
	h.writeEntry(w, result, err, "Payroll entry approved successfully")
}

func (h *payrollHandlerImpl) RejectEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.RejectEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.RejectEntry(r.Context(), actor, chi.URLParam(r, "id"), req)
	h.writeEntry(w, result, err, "Payroll entry rejected")
}

func (h *payrollHandlerImpl) LockEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.LockEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.LockEntry(r.Context(), actor, chi.URLParam(r, "id"), req)
	h.writeEntry(w, result, err, "Payroll entry locked")
}

func (h *payrollHandlerImpl) UnlockEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.UnlockEntry(r.Context(), actor, chi.URLParam(r, "id"))
	h.writeEntry(w, result, err, "Payroll entry unlocked")
}

func (h *payrollHandlerImpl) GetEntryTimesheets(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.GetEntryTimesheets(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) DownloadPayslip(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	slip, err := h.payrollService.GetPayslip(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if slip == nil {
		response.NotFound(w, "Payroll entry not found")
		return
	}

	response.File(w, "application/pdf", slip.Filename, slip.Content)
}

func (h *payrollHandlerImpl) writeEntry(w http.ResponseWriter, result *payroll.PayrollEntryResponse, err error, message string) {
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if result == nil {
		response.NotFound(w, "Payroll entry not found")
		return
	}
	if message == "" {
		response.Success(w, result)
		return
	}
	response.SuccessWithMessage(w, message, result)
}

// ==================== SYNC ====================

func (h *payrollHandlerImpl) SyncAttendance(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.SyncFromApproval(r.Context(), actor.CompanyID, chi.URLParam(r, "attendanceId"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) SyncEmployee(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.SyncEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.SyncEmployeePeriod(r.Context(), actor.CompanyID, req.EmployeeID, req.ParsedDate())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) SyncRejection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req payroll.SyncEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.payrollService.RecalcForRejection(r.Context(), actor.CompanyID, req.EmployeeID, req.ParsedDate())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ==================== REPORTING ====================

func (h *payrollHandlerImpl) GetDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := payroll.DashboardFilter{
		StartDate:   queryString(q, "start_date"),
		EndDate:     queryString(q, "end_date"),
		PayPeriodID: queryString(q, "pay_period_id"),
		Frequency:   queryString(q, "frequency"),
	}

	result, err := h.payrollService.GetDashboard(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := payroll.AuditLogFilter{
		ReferenceType: queryString(q, "reference_type"),
		ReferenceID:   queryString(q, "reference_id"),
		Action:        queryString(q, "action"),
	}
	filter.Page, filter.Limit = pagination(q)

	result, err := h.payrollService.ListAuditLogs(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, response.NewMeta(result.Page, result.Limit, result.TotalCount))
}

// ==================== HELPERS ====================

func requireActor(w http.ResponseWriter, r *http.Request) (payroll.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return payroll.Actor{}, false
	}
	return actor, true
}

func queryString(q url.Values, key string) *string {
	if v := q.Get(key); v != "" {
		return &v
	}
	return nil
}

// pagination reads page and limit. Invalid values are ignored and the
// service applies its defaults.
func pagination(q url.Values) (page int, limit int) {
	if p := q.Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	return page, limit
}
