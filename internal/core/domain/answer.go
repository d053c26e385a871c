package domain

// AskRequest is the body every front end accepts.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the wire form of a QueryResult shared by the HTTP, NATS and
// MCP front ends.
type AskResponse struct {
	Question           string             `json:"question"`
	Answer             string             `json:"answer"`
	VerificationScore  *float64           `json:"verification_score"`
	Verified           bool               `json:"verified"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	Sources            []Citation         `json:"sources"`
}

func NewAskResponse(result *QueryResult) AskResponse {
	sources := result.Citations
	if sources == nil {
		sources = []Citation{}
	}
	return AskResponse{
		Question:           result.Question,
		Answer:             result.Answer,
		VerificationScore:  result.Verification.Score,
		Verified:           result.Verification.Passed(),
		VerificationStatus: result.Verification.Status,
		Sources:            sources,
	}
}

// AskReply decodes a reply that is either an AskResponse or a Failure.
type AskReply struct {
	AskResponse
	Kind  FailureKind `json:"kind,omitempty"`
	Error string      `json:"error,omitempty"`
}

func (r AskReply) Failed() bool {
	return r.Kind != ""
}
