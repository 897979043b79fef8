package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/despensa-next/internal/http/response"
	"github.com/despensa-next/internal/service"

	"github.com/gin-gonic/gin"
)

func TestMapErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{service.ErrTaskNotFound, response.CodeNotFound},
		{fmt.Errorf("wrapped: %w", service.ErrProviderNotFound), response.CodeNotFound},
		{service.ErrTaskCompleted, response.CodeConflict},
		{service.ErrTaskSubstituted, response.CodeConflict},
		{service.ErrSubstituteUnitChanged, response.CodeConflict},
		{&service.ConversionUnresolvedError{ProductID: 1, FromUnit: "caja", ToUnit: "kg"}, response.CodeConflict},
		{&service.MissingFieldError{Field: "evidence", Err: service.ErrPurchaseEvidenceRequired}, response.CodeBadRequest},
		{service.ErrEvidenceInvalid, response.CodeBadRequest},
		{service.ErrQueueUnavailable, response.CodeServiceUnavailable},
		{errors.New("database is locked"), response.CodeInternal},
	}
	for _, tc := range cases {
		if got := MapError(tc.err); got.Code != tc.code {
			t.Fatalf("%v: want %d got %d", tc.err, tc.code, got.Code)
		}
	}
	if got := MapError(errors.New("secret dsn")); got.Message != internalErrorMessage {
		t.Fatalf("internal errors must not leak details, got %q", got.Message)
	}
}

func TestRespondErrorWritesFieldDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Set("request_id", "req-7")

	RespondError(c, &service.MissingFieldError{Field: "unit_price", Err: service.ErrPurchaseUnitPriceRequired})

	var body struct {
		StatusCode int                    `json:"status_code"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if body.StatusCode != response.CodeBadRequest || body.Data["field"] != "unit_price" || body.Data["request_id"] != "req-7" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
