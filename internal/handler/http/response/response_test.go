package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeta(t *testing.T) {
	assert.Equal(t, &Meta{Page: 1, Limit: 20, TotalItems: 40, TotalPages: 2}, NewMeta(1, 20, 40))
	assert.Equal(t, 3, NewMeta(1, 20, 41).TotalPages)
	assert.Equal(t, 0, NewMeta(1, 20, 0).TotalPages)
	assert.Equal(t, 0, NewMeta(1, 0, 10).TotalPages)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"duplicate entry", payroll.DuplicateEntry("emp-1", "p-1"), http.StatusConflict, payroll.CodeDuplicateEntry},
		{"wrapped already approved", fmt.Errorf("approve: %w", payroll.AlreadyApproved(payroll.EntryStatusPaid)), http.StatusConflict, payroll.CodeAlreadyApproved},
		{"locked", payroll.EntryLocked(nil), http.StatusLocked, payroll.CodeEntryLocked},
		{"run not found", payroll.ErrPayrollRunNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"attendance processed", attendance.ErrAttendanceAlreadyProcessed, http.StatusConflict, "CONFLICT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}
