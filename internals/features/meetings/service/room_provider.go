package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"bimbelku_backend/internals/configs"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

/*
=========================================================

	Room Provider
	Abstraksi media server (LiveKit-compatible API).
	Token akses = JWT HS256 berisi video grant; room
	per sesi, nama deterministik dari session ID.
	=========================================================
*/
type RoomProvider interface {
	// ProvisionRoom menyiapkan room untuk sesi dan mengembalikan nama room.
	// Idempotent: provisioning ulang mengembalikan nama yang sama.
	ProvisionRoom(ctx context.Context, sessionID uuid.UUID) (string, error)

	// IssueParticipantToken menerbitkan token akses untuk satu peserta.
	IssueParticipantToken(roomName string, participantID uuid.UUID, displayName string, canPublish bool) (string, error)

	// DisconnectRoom menutup room dan memutus semua peserta.
	DisconnectRoom(ctx context.Context, roomName string) error

	// RemoveParticipant menendang satu peserta dari room.
	RemoveParticipant(ctx context.Context, roomName string, participantID uuid.UUID) error
}

func RoomNameFor(sessionID uuid.UUID) string {
	return "bimbelku-session-" + sessionID.String()
}

/*
=========================================================

	Implementasi LiveKit-style (HTTP + JWT grant)
	=========================================================
*/
type videoGrant struct {
	Room       string `json:"room,omitempty"`
	RoomJoin   bool   `json:"roomJoin,omitempty"`
	RoomAdmin  bool   `json:"roomAdmin,omitempty"`
	CanPublish *bool  `json:"canPublish,omitempty"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name,omitempty"`
	Video videoGrant `json:"video"`
}

type LiveRoomProvider struct {
	Host      string
	APIKey    string
	APISecret string
	HTTP      *http.Client
	TokenTTL  time.Duration
}

func NewRoomProviderFromEnv() RoomProvider {
	if configs.MeetingHost == "" || configs.MeetingAPIKey == "" {
		log.Println("[WARN] MEETING_HOST/MEETING_API_KEY kosong — pakai NoopRoomProvider")
		return NoopRoomProvider{}
	}
	return &LiveRoomProvider{
		Host:      configs.MeetingHost,
		APIKey:    configs.MeetingAPIKey,
		APISecret: configs.MeetingAPISecret,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		TokenTTL:  6 * time.Hour,
	}
}

func (p *LiveRoomProvider) signedToken(claims *accessClaims) (string, error) {
	claims.Issuer = p.APIKey
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	ttl := p.TokenTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(p.APISecret))
}

// Room dibuat lazily oleh media server saat peserta pertama connect;
// provisioning di sini cukup menerbitkan nama deterministik.
func (p *LiveRoomProvider) ProvisionRoom(_ context.Context, sessionID uuid.UUID) (string, error) {
	return RoomNameFor(sessionID), nil
}

func (p *LiveRoomProvider) IssueParticipantToken(roomName string, participantID uuid.UUID, displayName string, canPublish bool) (string, error) {
	pub := canPublish
	return p.signedToken(&accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: participantID.String()},
		Name:             displayName,
		Video: videoGrant{
			Room:       roomName,
			RoomJoin:   true,
			CanPublish: &pub,
		},
	})
}

// adminRequest memanggil RPC bergaya Twirp di media server dengan
// token admin sekali pakai.
func (p *LiveRoomProvider) adminRequest(ctx context.Context, method string, payload interface{}) error {
	adminTok, err := p.signedToken(&accessClaims{
		Video: videoGrant{RoomAdmin: true},
	})
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := p.Host + "/twirp/livekit.RoomService/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminTok)

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("media server %s: status %d", method, resp.StatusCode)
	}
	return nil
}

func (p *LiveRoomProvider) DisconnectRoom(ctx context.Context, roomName string) error {
	return p.adminRequest(ctx, "DeleteRoom", map[string]string{"room": roomName})
}

func (p *LiveRoomProvider) RemoveParticipant(ctx context.Context, roomName string, participantID uuid.UUID) error {
	return p.adminRequest(ctx, "RemoveParticipant", map[string]string{
		"room":     roomName,
		"identity": participantID.String(),
	})
}

/*
=========================================================

	Noop (env belum dikonfigurasi / test)
	=========================================================
*/
type NoopRoomProvider struct{}

func (NoopRoomProvider) ProvisionRoom(_ context.Context, sessionID uuid.UUID) (string, error) {
	return RoomNameFor(sessionID), nil
}

func (NoopRoomProvider) IssueParticipantToken(roomName string, participantID uuid.UUID, _ string, _ bool) (string, error) {
	return "noop-" + roomName + "-" + participantID.String(), nil
}

func (NoopRoomProvider) DisconnectRoom(context.Context, string) error { return nil }

func (NoopRoomProvider) RemoveParticipant(context.Context, string, uuid.UUID) error { return nil }
