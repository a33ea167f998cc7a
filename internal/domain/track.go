package domain

type TrackID string

type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// RemoteTrack mirrors one subscription event from the media transport.
// ParticipantSID may be empty for participants the server never assigned a
// session id; Identity may be empty for anonymous joins.
type RemoteTrack struct {
	ParticipantSID      string
	ParticipantIdentity string
	TrackID             TrackID
	Kind                TrackKind
}
