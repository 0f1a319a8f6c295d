package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/glefebvre/zapper/internal/database"
	apperrors "github.com/glefebvre/zapper/internal/errors"
	"github.com/glefebvre/zapper/internal/fetcher"
	"github.com/glefebvre/zapper/internal/filter"
	"github.com/glefebvre/zapper/internal/models"
	"github.com/glefebvre/zapper/internal/session"
)

const inlineSource = "inline"

// call runs fn on the scheduler loop. It answers 503 and returns false when
// the loop is gone.
func (s *Server) call(c *gin.Context, fn func()) bool {
	if err := s.loop.Call(c.Request.Context(), fn); err != nil {
		c.Error(err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: err.Error(),
		})
		return false
	}
	return true
}

func (s *Server) respondError(c *gin.Context, err error) {
	c.Error(err)

	status := apperrors.HTTPStatus(err)
	if errors.Is(err, database.ErrDisabled) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, ErrorResponse{
		Error:   string(apperrors.GetErrorCode(err)),
		Message: err.Error(),
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	err := database.HealthCheck()
	if errors.Is(err, database.ErrDisabled) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "disabled",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func (s *Server) loadPlaylist(c *gin.Context) {
	var req LoadPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.Wrap(err, apperrors.CodeValidation, "invalid request body"))
		return
	}
	if (req.URL == "") == (req.Content == "") {
		s.respondError(c, apperrors.ValidationError("exactly one of url or content is required"))
		return
	}
	// local paths are only readable from the command line
	if req.URL != "" && !fetcher.IsRemote(req.URL) {
		s.respondError(c, apperrors.ValidationError("url must be an http or https URL"))
		return
	}

	source, doc := inlineSource, req.Content
	if req.URL != "" {
		source = req.URL
		loaded, err := s.loader.Load(c.Request.Context(), req.URL)
		if err != nil {
			s.recordFailure(c.Request.Context(), source, err)
			if !s.call(c, func() { s.session.Fail(source, err) }) {
				return
			}
			s.respondError(c, err)
			return
		}
		doc = loaded
	}

	var gen uint64
	var loadErr error
	if !s.call(c, func() { gen, loadErr = s.session.Load(source, doc) }) {
		return
	}
	if loadErr != nil {
		s.respondError(c, loadErr)
		return
	}

	if req.URL != "" {
		s.remember(c.Request.Context(), req.URL)
	}

	c.JSON(http.StatusAccepted, LoadPlaylistResponse{Generation: gen, Source: source})
}

func (s *Server) recordFailure(ctx context.Context, source string, cause error) {
	if s.history == nil {
		return
	}
	if _, err := s.history.FailRun(ctx, source, cause); err != nil && !errors.Is(err, database.ErrDisabled) {
		s.log.ErrorContext(ctx, "failed to record failed load", err)
	}
}

func (s *Server) remember(ctx context.Context, url string) {
	if s.history == nil {
		return
	}
	if err := s.history.SetPlaylistURL(ctx, url); err != nil && !errors.Is(err, database.ErrDisabled) {
		s.log.ErrorContext(ctx, "failed to remember playlist url", err)
	}
}

func (s *Server) getStatus(c *gin.Context) {
	var st session.Status
	if !s.call(c, func() { st = s.session.Status() }) {
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		Status:        st,
		ParseComplete: !st.Parsing && st.LastLoad != nil,
		StatusLine:    st.Line(),
	})
}

func (s *Server) listCategories(c *gin.Context) {
	var resp CategoriesResponse
	if !s.call(c, func() {
		resp.Categories = s.session.Categories()
		resp.Current = s.session.Filter().Category
	}) {
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) setFilter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.Wrap(err, apperrors.CodeValidation, "invalid request body"))
		return
	}

	state := filter.NewState(req.Category, req.Search)
	var known bool
	var resp ChannelsResponse
	if !s.call(c, func() {
		known = s.session.CategoryIndex().Contains(state.Category)
		if !known {
			return
		}
		s.session.SetFilter(state)
		resp = s.channels()
	}) {
		return
	}
	if !known {
		s.respondError(c, apperrors.NotFoundError("category", state.Category))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// channels must run on the loop.
func (s *Server) channels() ChannelsResponse {
	r := s.session.Renderer()
	return ChannelsResponse{
		Snapshot: s.session.View(),
		State:    r.State().String(),
		Shown:    r.Shown(),
		Total:    r.Total(),
	}
}

func (s *Server) listChannels(c *gin.Context) {
	var resp ChannelsResponse
	if !s.call(c, func() { resp = s.channels() }) {
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) loadMore(c *gin.Context) {
	var resp LoadMoreResponse
	if !s.call(c, func() {
		resp.Loaded = s.session.LoadMore()
		resp.Channels = s.channels()
	}) {
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) scroll(c *gin.Context) {
	var req ScrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.Wrap(err, apperrors.CodeValidation, "invalid request body"))
		return
	}

	var resp LoadMoreResponse
	if !s.call(c, func() {
		resp.Loaded = s.session.Scroll(req.Position())
		resp.Channels = s.channels()
	}) {
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) playChannel(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		s.respondError(c, apperrors.ValidationError("channel id must be an integer"))
		return
	}

	var ch models.Channel
	var playErr error
	if !s.call(c, func() { ch, playErr = s.session.Activate(id) }) {
		return
	}
	if playErr != nil {
		s.respondError(c, playErr)
		return
	}

	c.JSON(http.StatusOK, PlayResponse{Channel: ch})
}

func (s *Server) listHistory(c *gin.Context) {
	if s.history == nil {
		s.respondError(c, database.ErrDisabled)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		s.respondError(c, apperrors.ValidationError("limit must be a non-negative integer"))
		return
	}

	runs, err := s.history.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if runs == nil {
		runs = []models.LoadRun{}
	}

	c.JSON(http.StatusOK, HistoryResponse{Runs: runs})
}
