package feed

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

const streamMaxBars = 600

type streamCandle struct {
	Token  int64   `json:"token"`
	Ts     int64   `json:"ts"` // bar open time, epoch millis
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

// StreamSource keeps a rolling per-token candle cache fed by a websocket
// stream of closed bars. Run maintains the connection; Candles serves reads
// from the cache so the polling loop never blocks on the network.
type StreamSource struct {
	url string
	log zerolog.Logger

	mu    sync.RWMutex
	cache map[int64][]sig.Candle
}

// NewStreamSource builds a source against the given websocket URL.
func NewStreamSource(url string, log zerolog.Logger) *StreamSource {
	return &StreamSource{
		url:   url,
		log:   log,
		cache: make(map[int64][]sig.Candle),
	}
}

// Candles returns cached candles for the token within [from, to].
func (s *StreamSource) Candles(_ context.Context, token int64, from, to time.Time) ([]sig.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []sig.Candle
	for _, c := range s.cache[token] {
		if c.Ts.Before(from) || c.Ts.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Run dials the stream and reconnects with backoff until the context ends.
func (s *StreamSource) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("candle stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (s *StreamSource) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Str("url", s.url).Msg("connected candle stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg streamCandle
		if err := json.Unmarshal(message, &msg); err != nil {
			s.log.Warn().Err(err).Msg("failed to decode stream message")
			continue
		}
		if msg.Token == 0 || msg.Close <= 0 {
			continue
		}
		s.store(msg)
	}
}

func (s *StreamSource) store(msg streamCandle) {
	c := sig.Candle{
		Ts:     time.UnixMilli(msg.Ts).UTC(),
		Open:   msg.Open,
		High:   msg.High,
		Low:    msg.Low,
		Close:  msg.Close,
		Volume: msg.Volume,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bars := s.cache[msg.Token]
	// replace in place when the venue re-sends a bar
	if n := len(bars); n > 0 && bars[n-1].Ts.Equal(c.Ts) {
		bars[n-1] = c
	} else {
		bars = append(bars, c)
	}
	if len(bars) > streamMaxBars {
		bars = bars[len(bars)-streamMaxBars:]
	}
	s.cache[msg.Token] = bars
}
