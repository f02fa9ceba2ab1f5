package model

type UserAuthenticationResponse struct {
	UserID      int32       `json:"userId"`
	ValidUntil  int64       `json:"validUntil"`
	AccessToken string      `json:"accessToken"`
	AccountInfo AccountInfo `json:"accountInfo"`
}

type UserRegisterResponse struct {
	UserID int32 `json:"userId"`
}

// SessionState is what survives between process runs of the same device session.
type SessionState struct {
	UserID      int32       `json:"userId"`
	AccessToken string      `json:"accessToken"`
	ValidUntil  int64       `json:"validUntil"`
	AccountInfo AccountInfo `json:"accountInfo"`
}

func NewSessionState(resp UserAuthenticationResponse) SessionState {
	return SessionState{
		UserID:      resp.UserID,
		AccessToken: resp.AccessToken,
		ValidUntil:  resp.ValidUntil,
		AccountInfo: resp.AccountInfo,
	}
}
