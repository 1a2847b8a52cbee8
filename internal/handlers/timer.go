package handlers

import (
	"errors"
	"math"
	"net/http"

	"elapsed_timer/internal/models"
	"elapsed_timer/internal/protocol"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK          = "ok"
	statusStarted     = "started"
	statusStopped     = "stopped"
	statusReset       = "reset"
	statusDurationSet = "duration_set"
	statusIgnored     = "ignored"

	errStartTimer      = "failed to start timer"
	errStopTimer       = "failed to stop timer"
	errResetTimer      = "failed to reset timer"
	errSetDuration     = "failed to set duration"
	errGetState        = "failed to load state"
	errPersist         = "counter could not be persisted"
	errInvalidBodyPref = "invalid body: "
	errEmptyDuration   = "provide text or at least one of days, hours, minutes, seconds"
	errNegativeField   = "duration fields must not be negative"
	errFieldTooLarge   = "duration fields must not exceed 2147483647"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// commandError maps a failed command to a response.
func (h *Handler) commandError(c *gin.Context, userMsg, logKey string, err error) {
	var pf *models.PersistenceFault
	if errors.As(err, &pf) {
		h.logAndJSONError(c, http.StatusInternalServerError, errPersist, logKey, err)
		return
	}
	h.logAndJSONError(c, http.StatusInternalServerError, userMsg, logKey, err)
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	st, err := h.services.Monitoring.GetState(ctx)
	if err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// Request DTO for setting the duration. Nil fields are left unchanged.
type durationRequest struct {
	Days    *int   `json:"days"`
	Hours   *int   `json:"hours"`
	Minutes *int   `json:"minutes"`
	Seconds *int   `json:"seconds"`
	Text    string `json:"text"`
}

// SetDurationRequest is an exported model for Swagger docs of the setDuration payload.
type SetDurationRequest struct {
	Days    int `json:"days,omitempty" example:"0"`
	Hours   int `json:"hours,omitempty" example:"1"`
	Minutes int `json:"minutes,omitempty" example:"30"`
	Seconds int `json:"seconds,omitempty" example:"0"`
	// Phrase as typed into the remote UI, e.g. "5 minutes 30 seconds" or "Reset".
	// When set, the numeric fields are ignored.
	Text string `json:"text,omitempty" example:"5 minutes 30 seconds"`
}

func (r durationRequest) counter() (models.Counter, models.FieldMask, error) {
	var (
		c    models.Counter
		mask models.FieldMask
	)
	for _, f := range []struct {
		src *int
		dst *int
		bit models.FieldMask
	}{
		{r.Days, &c.Days, models.FieldDays},
		{r.Hours, &c.Hours, models.FieldHours},
		{r.Minutes, &c.Minutes, models.FieldMinutes},
		{r.Seconds, &c.Seconds, models.FieldSeconds},
	} {
		if f.src == nil {
			continue
		}
		if *f.src < 0 {
			return c, 0, errors.New(errNegativeField)
		}
		if *f.src > math.MaxInt32 {
			return c, 0, errors.New(errFieldTooLarge)
		}
		*f.dst = *f.src
		mask |= f.bit
	}
	if mask == 0 {
		return c, 0, errors.New(errEmptyDuration)
	}
	return c, mask, nil
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Plain-text status line
// @Tags         timer
// @Produce      plain
// @Success      200  {string}  string  "Timer: 0 days 0 hours 1 minutes 5 seconds"
// @Failure      500  {string}  string
// @Router       /test [get]
func (h *Handler) statusText(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.log.Errorw("status_text_failed", "err", err)
		c.String(http.StatusInternalServerError, errGetState)
		return
	}
	c.String(http.StatusOK, protocol.FormatStatus(st.Counter))
}

// @Summary      Start counting
// @Tags         timer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/timer/start [post]
func (h *Handler) startTimer(c *gin.Context) {
	if err := h.services.Timer.Start(c.Request.Context()); err != nil {
		h.commandError(c, errStartTimer, "timer_start_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusStarted, gin.H{})
}

// @Summary      Stop counting
// @Tags         timer
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/timer/stop [post]
func (h *Handler) stopTimer(c *gin.Context) {
	if err := h.services.Timer.Stop(c.Request.Context()); err != nil {
		h.commandError(c, errStopTimer, "timer_stop_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusStopped, gin.H{})
}

// @Summary      Reset the counter
// @Description  Stops counting and zeroes all fields.
// @Tags         timer
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/timer/reset [post]
func (h *Handler) resetTimer(c *gin.Context) {
	if err := h.services.Timer.Reset(c.Request.Context()); err != nil {
		h.commandError(c, errResetTimer, "timer_reset_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusReset, gin.H{})
}

// @Summary      Set duration
// @Description  Either numeric fields (omitted ones stay unchanged) or a text phrase parsed like the remote UI.
// @Tags         timer
// @Accept       json
// @Produce      json
// @Param        body  body   SetDurationRequest  true  "Duration payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/timer/duration [post]
func (h *Handler) setDuration(c *gin.Context) {
	var req durationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()

	if req.Text != "" {
		h.applyPhrase(c, req.Text)
		return
	}

	d, mask, err := req.counter()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.services.Timer.SetDuration(ctx, d, mask); err != nil {
		h.commandError(c, errSetDuration, "timer_set_duration_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusDurationSet, gin.H{})
}

func (h *Handler) applyPhrase(c *gin.Context, text string) {
	cmd, err := h.services.Remote.Apply(c.Request.Context(), text)
	if err != nil {
		pf, ok := parseFaultOnly(err)
		switch {
		case ok && cmd.IsNoop():
			c.JSON(http.StatusBadRequest, gin.H{"error": pf.Error()})
		case ok:
			// partial phrase; the scanned fields were applied
			h.respondWithStatusAndState(c, statusDurationSet, gin.H{"warning": pf.Error()})
		default:
			h.commandError(c, errSetDuration, "timer_phrase_failed", err)
		}
		return
	}

	status := statusDurationSet
	switch cmd.Kind {
	case models.CommandReset:
		status = statusReset
	case models.CommandNone:
		status = statusIgnored
	}
	h.respondWithStatusAndState(c, status, gin.H{})
}

// parseFaultOnly returns the ParseFault in err when nothing else failed.
func parseFaultOnly(err error) (*models.ParseFault, bool) {
	var pf *models.ParseFault
	if !errors.As(err, &pf) {
		return nil, false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			var other *models.ParseFault
			if !errors.As(e, &other) {
				return nil, false
			}
		}
	}
	return pf, true
}

// @Summary      Get timer state
// @Tags         timer
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/timer/state [get]
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "timer_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
