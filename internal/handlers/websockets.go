package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"weather_favorites/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

const (
	envForecast = "forecast"
	envError    = "error"
)

// Browser clients reach the stream from the configured CORS origins; the
// stream carries only public weather data.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Forecast stream
// @Description  Websocket that pushes the forecast immediately and then every interval.
// @Tags         weather
// @Param        lat       query  number  true   "latitude"
// @Param        lon       query  number  true   "longitude"
// @Param        interval  query  string  false  "refresh period, e.g. 5m"
// @Failure      400  {object}  map[string]string
// @Router       /ws/forecast [get]
func (h *Handler) forecastStream(c *gin.Context) {
	lat, lon, ok := parseCoords(c)
	if !ok || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		badRequest(c, "lat and lon must be valid coordinates")
		return
	}
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	metrics.ForecastStreams.Inc()
	defer metrics.ForecastStreams.Dec()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	if err := h.sendForecast(ctx, conn, lat, lon); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendForecast(ctx, conn, lat, lon); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=2m or ?interval_ms=120000. Values outside the
// configured bounds fall back to the default.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	inBounds := func(d time.Duration) bool {
		return d >= h.opts.MinStreamInterval && d <= h.opts.MaxStreamInterval
	}

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && inBounds(d) {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			if d := time.Duration(v) * time.Millisecond; inBounds(d) {
				return d
			}
		}
	}

	return h.opts.StreamInterval
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// sendForecast writes one forecast envelope. An upstream failure is reported
// to the client as an error envelope; only write failures end the stream.
func (h *Handler) sendForecast(ctx context.Context, conn *websocket.Conn, lat, lon float64) error {
	env := wsEnvelope{Type: envForecast}
	raw, err := h.services.Forecast(ctx, lat, lon)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_forecast_failed", "lat", lat, "lon", lon, "err", err)
		}
		_, msg := statusFor(err)
		env = wsEnvelope{Type: envError, Error: msg}
	} else {
		env.Data = raw
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
