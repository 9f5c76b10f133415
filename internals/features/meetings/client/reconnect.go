package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

/*
=========================================================

	Signal Client + Reconnection Supervisor
	Dipakai klien (CLI/daemon) untuk mengirim sinyal
	join/leave/heartbeat ke backend, dengan retry
	transparan saat jaringan putus.

	Backoff: 1s, 2s, 4s, 8s, lalu mentok 10s;
	maksimal 5 percobaan, setelah itu menyerah dengan
	error terakhir (pemanggil yang memutuskan lapor user).
	=========================================================
*/
const (
	DefaultMaxAttempts = 5
	backoffInitial     = 1 * time.Second
	backoffCap         = 10 * time.Second
)

var ErrGiveUp = errors.New("menyerah setelah percobaan maksimum")

type SignalClient struct {
	BaseURL string
	HTTP    *http.Client
	Token   string

	// RefreshToken dipanggil SEKALI per request saat server menjawab 401;
	// token baru dipakai untuk retry langsung tanpa membakar attempt.
	RefreshToken func(ctx context.Context) (string, error)

	MaxAttempts int

	// Sleep bisa diganti di test supaya backoff tidak benar-benar menunggu.
	Sleep func(d time.Duration)
}

func NewSignalClient(baseURL, token string) *SignalClient {
	return &SignalClient{
		BaseURL:     baseURL,
		HTTP:        &http.Client{Timeout: 15 * time.Second},
		Token:       token,
		MaxAttempts: DefaultMaxAttempts,
		Sleep:       time.Sleep,
	}
}

func (c *SignalClient) Join(ctx context.Context, sessionID uuid.UUID) error {
	return c.signal(ctx, sessionID, "join")
}

func (c *SignalClient) Leave(ctx context.Context, sessionID uuid.UUID) error {
	return c.signal(ctx, sessionID, "leave")
}

func (c *SignalClient) Heartbeat(ctx context.Context, sessionID uuid.UUID) error {
	return c.signal(ctx, sessionID, "heartbeat")
}

// BackoffFor mengembalikan jeda sebelum percobaan ke-n (attempt mulai dari 1).
func BackoffFor(attempt int) time.Duration {
	d := backoffInitial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}

func (c *SignalClient) signal(ctx context.Context, sessionID uuid.UUID, action string) error {
	url := fmt.Sprintf("%s/api/u/class-sessions/%s/%s", c.BaseURL, sessionID, action)

	maxAttempts := c.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			sleep(BackoffFor(attempt - 1))
		}

		err := c.post(ctx, url)
		if err == nil {
			return nil
		}

		// 401 → refresh token sekali, retry langsung; attempt tidak dihitung.
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized && c.RefreshToken != nil {
			tok, rerr := c.RefreshToken(ctx)
			if rerr == nil && tok != "" {
				c.Token = tok
				if err2 := c.post(ctx, url); err2 == nil {
					return nil
				} else {
					err = err2
				}
			}
		}

		// 4xx selain 401 bukan masalah jaringan — retry tidak akan menolong.
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusUnauthorized {
			return err
		}

		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrGiveUp, lastErr)
}

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server menjawab %d: %s", e.Code, e.Body)
}

func (c *SignalClient) post(ctx context.Context, url string) error {
	body, _ := json.Marshal(map[string]string{
		"client_time": time.Now().UTC().Format(time.RFC3339),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &statusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(b))}
}
