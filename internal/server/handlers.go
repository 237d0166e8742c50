package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lease-audit/internal/domain"
	"lease-audit/internal/usecase"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API reply.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, Response{Code: status, Message: err.Error()})
}

// statusOf maps domain errors to HTTP statuses.
func statusOf(err error) int {
	var (
		schemaErr    *domain.SchemaError
		invariantErr *domain.InvariantError
		keyErr       *domain.KeyError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownSource):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &schemaErr), errors.As(err, &invariantErr), errors.As(err, &keyErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	fail(c, status, err)
}

// startRunRequest is the optional POST /runs body. Year and month narrow the
// audit period; zero means every year or every month.
type startRunRequest struct {
	InitiatedBy string `json:"initiated_by"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
}

// runFailure reports which stage of a failed run broke.
type runFailure struct {
	Stage  domain.Stage `json:"stage,omitempty"`
	Source string       `json:"source,omitempty"`
	Error  string       `json:"error"`
}

func (s *Server) startRun(c *gin.Context) {
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if req.InitiatedBy == "" {
		req.InitiatedBy = "api"
	}

	report, err := s.auditor.Run(c.Request.Context(), usecase.RunRequest{
		InitiatedBy: req.InitiatedBy,
		Period:      domain.AuditPeriod{Year: req.Year, Month: req.Month},
	})
	if err != nil {
		var stageErr *domain.StageError
		if errors.As(err, &stageErr) {
			status := statusOf(stageErr.Err)
			if status == http.StatusNotFound || status == http.StatusInternalServerError {
				status = http.StatusUnprocessableEntity
			}
			s.logger.Warn().Err(stageErr.Err).Str("stage", string(stageErr.Stage)).Str("source", stageErr.Source).Msg("audit run failed")
			c.JSON(status, Response{
				Code:    status,
				Message: err.Error(),
				Data:    runFailure{Stage: stageErr.Stage, Source: stageErr.Source, Error: stageErr.Err.Error()},
			})
			return
		}
		s.respondError(c, err)
		return
	}
	created(c, report)
}

func (s *Server) listRuns(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	runs, err := s.reviewer.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	success(c, runs)
}

func (s *Server) listFindings(c *gin.Context) {
	findings, err := s.reviewer.Findings(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	success(c, findings)
}

func (s *Server) listExceptions(c *gin.Context) {
	views, err := s.reviewer.Exceptions(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	success(c, views)
}

func (s *Server) listChargeCodes(c *gin.Context) {
	summaries, err := s.reviewer.ChargeCodes(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	success(c, summaries)
}

func (s *Server) getChargeCode(c *gin.Context) {
	property, err1 := strconv.ParseInt(c.Param("property_id"), 10, 64)
	lease, err2 := strconv.ParseInt(c.Param("lease_interval_id"), 10, 64)
	if err1 != nil || err2 != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("property_id and lease_interval_id must be integers"))
		return
	}
	cc := domain.ChargeCodeKey{PropertyID: property, LeaseIntervalID: lease, ARCodeID: c.Param("ar_code_id")}

	summary, err := s.reviewer.ChargeCode(c.Request.Context(), c.Param("run_id"), cc)
	if err != nil {
		s.respondError(c, err)
		return
	}
	success(c, summary)
}

type resolveRequest struct {
	PropertyID      int64  `json:"property_id" binding:"required"`
	LeaseIntervalID int64  `json:"lease_interval_id" binding:"required"`
	ARCodeID        string `json:"ar_code_id" binding:"required"`
	// AuditMonth accepts YYYY-MM or YYYY-MM-DD; a date must be the first of the month.
	AuditMonth string `json:"audit_month" binding:"required"`
	Status     string `json:"status"`
	FixLabel   string `json:"fix_label"`
	ActionType string `json:"action_type"`
	ResolvedBy string `json:"resolved_by"`
}

func (s *Server) resolveException(c *gin.Context) {
	var body resolveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	month, err := parseAuditMonth(body.AuditMonth)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}

	result, err := s.reviewer.Resolve(c.Request.Context(), usecase.ResolveRequest{
		RunID: c.Param("run_id"),
		Key: domain.BucketKey{
			PropertyID:      body.PropertyID,
			LeaseIntervalID: body.LeaseIntervalID,
			ARCodeID:        body.ARCodeID,
			AuditMonth:      month,
		},
		Status:     domain.ExceptionStatus(body.Status),
		FixLabel:   body.FixLabel,
		ActionType: body.ActionType,
		ResolvedBy: body.ResolvedBy,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if result.Created {
		created(c, result)
		return
	}
	success(c, result)
}

func parseAuditMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01", s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("audit_month %q is not YYYY-MM or YYYY-MM-DD", s)
	}
	if t.Day() != 1 {
		return time.Time{}, fmt.Errorf("audit_month %q is not the first day of a month", s)
	}
	return t, nil
}
