// Administrative endpoints (bearer token, see middleware.AdminAuth).
//
//   - GET    /admin/jobs            (registered jobs and their next trigger)
//   - POST   /admin/jobs/{name}     (run a job now)
//   - GET    /admin/users           (every registered user)
//   - DELETE /admin/users/{handle}  (remove a user)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/http/middleware"
	"github.com/tbourn/cptrainer/internal/scheduler"
	"github.com/tbourn/cptrainer/internal/services"
)

// JobsResponse lists the scheduled jobs.
type JobsResponse struct {
	Jobs []scheduler.Entry `json:"jobs"`
}

// JobRunResponse reports a finished manual run.
type JobRunResponse struct {
	Job    string `json:"job" example:"rotate"`
	Status string `json:"status" example:"ok"`
}

// UsersResponse lists registered users.
type UsersResponse struct {
	Users []domain.User `json:"users"`
}

// ListJobs godoc
// @Summary      Scheduled jobs
// @Tags         admin
// @Produce      json
// @Security     AdminToken
// @Success      200  {object}  JobsResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /admin/jobs [get]
func (h *Handlers) ListJobs(c *gin.Context) {
	ok(c, http.StatusOK, JobsResponse{Jobs: h.jobs.Upcoming()})
}

// RunJob godoc
// @Summary      Run a job now
// @Description  Runs reconcile, rotate or remind immediately, after any job that is already running.
// @Tags         admin
// @Produce      json
// @Security     AdminToken
// @Param        name  path      string  true  "Job name"  Enums(reconcile, rotate, remind)
// @Success      200   {object}  JobRunResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      502   {object}  ErrorResponse
// @Router       /admin/jobs/{name} [post]
func (h *Handlers) RunJob(c *gin.Context) {
	name := c.Param("name")
	if err := h.jobs.RunNow(c.Request.Context(), name); err != nil {
		if errors.Is(err, scheduler.ErrUnknownJob) {
			failErr(c, err)
			return
		}
		middleware.LoggerFrom(c).Error().Err(err).Str("job", name).Msg("manual job run failed")
		fail(c, http.StatusBadGateway, ErrCodeJobFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, JobRunResponse{Job: name, Status: "ok"})
}

// ListUsers godoc
// @Summary      Registered users
// @Tags         admin
// @Produce      json
// @Security     AdminToken
// @Success      200  {object}  UsersResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /admin/users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, UsersResponse{Users: users})
}

// RemoveUser godoc
// @Summary      Remove a user
// @Description  Deletes the user and drops their assignment and pending verification.
// @Tags         admin
// @Security     AdminToken
// @Param        handle  path  string  true  "Codeforces handle"
// @Success      204     "Removed"
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /admin/users/{handle} [delete]
func (h *Handlers) RemoveUser(c *gin.Context) {
	handle, err := services.NormalizeHandle(c.Param("handle"))
	if err != nil {
		failErr(c, err)
		return
	}
	if err := h.users.Remove(c.Request.Context(), handle); err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Str("handle", handle).Msg("user removed")
	noContent(c)
}
