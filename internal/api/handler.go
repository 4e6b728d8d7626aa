package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/junho85/garden10/internal/dateutil"
	apperrors "github.com/junho85/garden10/internal/errors"
	"github.com/junho85/garden10/internal/models"
)

// AttendanceService defines the core operations exposed over HTTP
type AttendanceService interface {
	CheckUser(ctx context.Context, githubID string, date time.Time) (*models.CheckResult, error)
	CheckAll(ctx context.Context, date time.Time) (*models.BatchResult, error)
	History(ctx context.Context, githubID string, start, end time.Time) ([]*models.HistoryEntry, error)
	RangeStats(ctx context.Context, start, end time.Time) (*models.RangeStats, error)
	DayStats(ctx context.Context, date time.Time) (*models.DayStats, error)
	DefaultRange() (time.Time, time.Time)
	ListCommits(ctx context.Context, githubID string, limit, offset int, from, to *time.Time) (*models.CommitPage, error)
	RegisterParticipant(ctx context.Context, githubID string) (*models.Participant, error)
	ListParticipants(ctx context.Context) ([]*models.Participant, error)
}

type Handler struct {
	service AttendanceService
	logger  *logrus.Logger
}

func NewHandler(service AttendanceService, logger *logrus.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// ListUsers godoc
// @Summary List participants
// @Tags users
// @Produce json
// @Success 200 {array} UserResponse
// @Router /users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	participants, err := h.service.ListParticipants(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	users := make([]UserResponse, 0, len(participants))
	for _, p := range participants {
		users = append(users, UserResponse{
			GitHubID:         p.GitHubID,
			GitHubProfileURL: p.ProfileURL(),
		})
	}
	c.JSON(http.StatusOK, users)
}

// AddUser godoc
// @Summary Register a new participant
// @Tags users
// @Accept json
// @Produce json
// @Param request body AddUserRequest true "Participant to register"
// @Success 201 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users [post]
func (h *Handler) AddUser(c *gin.Context) {
	var req AddUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.GitHubID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "github_id is required"})
		return
	}

	participant, err := h.service.RegisterParticipant(c.Request.Context(), req.GitHubID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UserResponse{
		GitHubID:         participant.GitHubID,
		GitHubProfileURL: participant.ProfileURL(),
	})
}

// CheckAllAttendance godoc
// @Summary Run attendance check for all participants
// @Description Ingests commit activity and rederives attendance for every participant. The batch always returns one entry per participant, mixing successes and failures.
// @Tags attendance
// @Produce json
// @Param date query string false "Date to check (YYYY-MM-DD, default today KST)"
// @Success 200 {object} models.BatchResult
// @Failure 400 {object} ErrorResponse
// @Router /attendance/check [post]
func (h *Handler) CheckAllAttendance(c *gin.Context) {
	date, ok := h.dateParam(c, "date", dateutil.Today())
	if !ok {
		return
	}

	result, err := h.service.CheckAll(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckUserAttendance godoc
// @Summary Run attendance check for one participant
// @Tags attendance
// @Produce json
// @Param github_id path string true "GitHub handle"
// @Param date query string false "Date to check (YYYY-MM-DD, default today KST)"
// @Success 200 {object} models.CheckResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} models.CheckResult
// @Router /attendance/check/{github_id} [post]
func (h *Handler) CheckUserAttendance(c *gin.Context) {
	date, ok := h.dateParam(c, "date", dateutil.Today())
	if !ok {
		return
	}

	result, err := h.service.CheckUser(c.Request.Context(), c.Param("github_id"), date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if result.Status == models.StatusError {
		c.JSON(http.StatusBadGateway, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetHistory godoc
// @Summary Get a participant's attendance history
// @Tags attendance
// @Produce json
// @Param github_id path string true "GitHub handle"
// @Param start_date query string false "Range start (YYYY-MM-DD, default challenge start)"
// @Param end_date query string false "Range end (YYYY-MM-DD, default today clipped to challenge end)"
// @Success 200 {array} models.HistoryEntry
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attendance/history/{github_id} [get]
func (h *Handler) GetHistory(c *gin.Context) {
	start, end, ok := h.rangeParams(c)
	if !ok {
		return
	}

	history, err := h.service.History(c.Request.Context(), c.Param("github_id"), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// GetRangeStats godoc
// @Summary Get cohort attendance statistics over a date range
// @Tags attendance
// @Produce json
// @Param start_date query string false "Range start (YYYY-MM-DD, default challenge start)"
// @Param end_date query string false "Range end (YYYY-MM-DD, default today clipped to challenge end)"
// @Success 200 {object} models.RangeStats
// @Failure 400 {object} ErrorResponse
// @Router /attendance/stats [get]
func (h *Handler) GetRangeStats(c *gin.Context) {
	start, end, ok := h.rangeParams(c)
	if !ok {
		return
	}

	stats, err := h.service.RangeStats(c.Request.Context(), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetDayStats godoc
// @Summary Get cohort attendance for one day
// @Tags attendance
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} models.DayStats
// @Failure 400 {object} ErrorResponse
// @Router /attendance/stats/{date} [get]
func (h *Handler) GetDayStats(c *gin.Context) {
	date, err := dateutil.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	stats, err := h.service.DayStats(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetRanking godoc
// @Summary Get attendance ranking over a date range
// @Tags attendance
// @Produce json
// @Param start_date query string false "Range start (YYYY-MM-DD, default challenge start)"
// @Param end_date query string false "Range end (YYYY-MM-DD, default today clipped to challenge end)"
// @Success 200 {array} models.ParticipantStats
// @Failure 400 {object} ErrorResponse
// @Router /attendance/ranking [get]
func (h *Handler) GetRanking(c *gin.Context) {
	start, end, ok := h.rangeParams(c)
	if !ok {
		return
	}

	stats, err := h.service.RangeStats(c.Request.Context(), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats.Users)
}

// GetCommits godoc
// @Summary Get a participant's stored commits
// @Description Returns one page of stored commits, newest first. Messages of commits from private repositories are masked.
// @Tags commits
// @Produce json
// @Param github_id path string true "GitHub handle"
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Records to skip" default(0)
// @Param from_date query string false "Filter from date (YYYY-MM-DD)"
// @Param to_date query string false "Filter to date (YYYY-MM-DD)"
// @Success 200 {object} models.CommitPage
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /commits/{github_id} [get]
func (h *Handler) GetCommits(c *gin.Context) {
	limit, err := intQueryParam(c, "limit", 10)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit parameter"})
		return
	}
	offset, err := intQueryParam(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset parameter"})
		return
	}

	var from, to *time.Time
	if raw := c.Query("from_date"); raw != "" {
		d, err := dateutil.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		from = &d
	}
	if raw := c.Query("to_date"); raw != "" {
		d, err := dateutil.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		to = &d
	}

	page, err := h.service.ListCommits(c.Request.Context(), c.Param("github_id"), limit, offset, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// dateParam parses an optional YYYY-MM-DD query parameter, responding with
// 400 on malformed input.
func (h *Handler) dateParam(c *gin.Context, name string, defaultValue time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue, true
	}
	date, err := dateutil.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return time.Time{}, false
	}
	return date, true
}

// rangeParams parses optional start_date/end_date query parameters, using
// the canonical default range when absent.
func (h *Handler) rangeParams(c *gin.Context) (start, end time.Time, ok bool) {
	defaultStart, defaultEnd := h.service.DefaultRange()

	start, ok = h.dateParam(c, "start_date", defaultStart)
	if !ok {
		return
	}
	end, ok = h.dateParam(c, "end_date", defaultEnd)
	if !ok {
		return
	}

	if end.Before(start) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "start_date must not be after end_date"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case apperrors.IsParticipantNotFound(err) || apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case apperrors.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case apperrors.IsExternalService(err):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	default:
		h.logger.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func intQueryParam(c *gin.Context, name string, defaultValue int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}
