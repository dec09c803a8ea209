// Public user endpoints.
//
//   - GET /leaderboard               (top users by streak)
//   - GET /users/{handle}/streak     (streak of one handle)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/cptrainer/internal/domain"
	"github.com/tbourn/cptrainer/internal/services"
	"github.com/tbourn/cptrainer/internal/utils"
)

// LeaderboardEntry is one leaderboard row.
type LeaderboardEntry struct {
	Position int    `json:"position" example:"1"`
	Handle   string `json:"handle" example:"tourist"`
	Streak   int    `json:"streak" example:"42"`
	Rank     string `json:"rank,omitempty" example:"legendary grandmaster"`
}

// LeaderboardResponse wraps the leaderboard.
type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// StreakResponse reports the streak of one user.
type StreakResponse struct {
	Handle string `json:"handle" example:"tourist"`
	Streak int    `json:"streak" example:"42"`
	Rating int    `json:"rating" example:"3800"`
	Rank   string `json:"rank,omitempty" example:"legendary grandmaster"`
}

func toEntries(users []domain.User) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		out = append(out, LeaderboardEntry{Position: i + 1, Handle: u.Handle, Streak: u.Streak, Rank: u.Rank})
	}
	return out
}

// Leaderboard godoc
// @Summary      Leaderboard
// @Description  Users ordered by streak descending. Ties keep registration order. Supports If-None-Match.
// @Tags         users
// @Produce      json
// @Param        limit          query     int     false  "Number of entries (default configured, max 100)"
// @Param        If-None-Match  header    string  false  "ETag of a previous response"
// @Success      200    {object}  LeaderboardResponse
// @Success      304    "Not Modified"
// @Failure      400    {object}  ErrorResponse
// @Failure      500    {object}  ErrorResponse
// @Router       /leaderboard [get]
func (h *Handlers) Leaderboard(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 0)
	if limit < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "limit must be >= 0")
		return
	}
	limit = utils.Clamp(limit, 0, services.MaxLeaderboardSize)

	// The ETag is best effort: without a version the response is simply
	// unconditional.
	if v, err := h.users.Version(c.Request.Context()); err == nil {
		etag := fmt.Sprintf(`W/"lb-%d-%s"`, limit, v)
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	users, err := h.users.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, LeaderboardResponse{Entries: toEntries(users)})
}

// Streak godoc
// @Summary      Streak of a handle
// @Tags         users
// @Produce      json
// @Param        handle  path      string  true  "Codeforces handle"
// @Success      200     {object}  StreakResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /users/{handle}/streak [get]
func (h *Handlers) Streak(c *gin.Context) {
	handle, err := services.NormalizeHandle(c.Param("handle"))
	if err != nil {
		failErr(c, err)
		return
	}
	u, err := h.users.Get(c.Request.Context(), handle)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, StreakResponse{Handle: u.Handle, Streak: u.Streak, Rating: u.Rating, Rank: u.Rank})
}
