package models

type IncrementRequest struct {
	ActorIdentity string `json:"actorIdentity" validate:"required"`
}

type HeartbeatRequest struct {
	Identity         string `json:"identity" validate:"required"`
	PreviousIdentity string `json:"previousIdentity"`
}

type ResetRequest struct {
	Identity string `json:"identity"`
}
