package service

import (
	"bimbelku_backend/internals/constants"
	sessionModel "bimbelku_backend/internals/features/sessions/model"
)

/*
=========================================================

	Join Eligibility Policy
	Satu-satunya sumber kebenaran boleh/tidaknya join —
	dipakai proyeksi status UI DAN endpoint penerbitan token,
	supaya keduanya tidak pernah beda pendapat.
	Bebas side effect; aman dipanggil tiap poll.
	=========================================================
*/

type DenialCode string

const (
	DenyNone          DenialCode = ""
	DenyNotYetOpen    DenialCode = "not_yet_open"
	DenyEnded         DenialCode = "ended"
	DenyCanceled      DenialCode = "canceled"
	DenyCompleted     DenialCode = "completed"
	DenyRoomNotReady  DenialCode = "room_not_ready"
)

type JoinDecision struct {
	Allowed bool       `json:"allowed"`
	Code    DenialCode `json:"code,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

func allow() JoinDecision { return JoinDecision{Allowed: true} }

func deny(code DenialCode, reason string) JoinDecision {
	return JoinDecision{Allowed: false, Code: code, Reason: reason}
}

// CanJoin memutuskan apakah role tertentu boleh connect SEKARANG.
func CanJoin(role string, status sessionModel.SessionStatus, ph Phase, hasRoom bool) JoinDecision {
	// Status terminal: tidak pernah joinable, fase apa pun.
	switch status {
	case sessionModel.SessionCanceled:
		return deny(DenyCanceled, "Sesi sudah dibatalkan")
	case sessionModel.SessionCompleted:
		return deny(DenyCompleted, "Sesi sudah selesai")
	}

	// Fase ended = cutoff otoritatif, independen dari status.
	if ph == PhaseEnded {
		return deny(DenyEnded, "Waktu sesi sudah berakhir")
	}

	switch status {
	case sessionModel.SessionReady, sessionModel.SessionOngoing:
		if hasRoom {
			return allow()
		}
		// Belum ada room: hanya host yang boleh masuk (join-nya yang bikin room).
		if constants.IsHostRole(role) {
			return allow()
		}
		return deny(DenyRoomNotReady, "Ruang meeting belum dibuka pengajar")

	case sessionModel.SessionScheduled, sessionModel.SessionAbsent:
		// Termasuk siswa yang sempat di-mark absent: masih boleh masuk
		// selama jendela (preparation/active/overtime) belum tutup.
		if ph == PhaseNotStarted {
			return deny(DenyNotYetOpen, "Sesi belum dibuka")
		}
		return allow()
	}

	return deny(DenyNotYetOpen, "Sesi belum dibuka")
}
