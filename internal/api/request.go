package api

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

const maxTokenLength = 2048

// CheckInRequest only bounds field sizes. Blank ids are left to the
// coordinator, which reports ExpiredOrInvalidToken before MissingFields.
type CheckInRequest struct {
	Token           string `json:"token" form:"token"`
	ParticipantID   string `json:"participant_id" form:"participant_id"`
	ParticipantName string `json:"participant_name" form:"participant_name"`
}

func (req *CheckInRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Token, validation.Length(0, maxTokenLength)),
		validation.Field(&req.ParticipantID, validation.Length(0, 64)),
		validation.Field(&req.ParticipantName, validation.Length(0, 200)),
	)
}

type GrantRequest struct {
	Code string `json:"code" form:"code"`
}

func (req *GrantRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Code, validation.Required, validation.Length(1, 256)),
	)
}
