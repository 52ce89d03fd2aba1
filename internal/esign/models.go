package esign

// Wire structures for the provider's envelope API. Only the fields this
// service sends or reads are modeled.

// Signer identifies the designated signer for an envelope.
type Signer struct {
	Email string
	Name  string
}

type document struct {
	DocumentBase64 string `json:"documentBase64"`
	Name           string `json:"name"`
	FileExtension  string `json:"fileExtension"`
	DocumentID     string `json:"documentId"`
}

type signHereTab struct {
	DocumentID  string `json:"documentId"`
	PageNumber  string `json:"pageNumber"`
	RecipientID string `json:"recipientId"`
	TabLabel    string `json:"tabLabel"`
	XPosition   string `json:"xPosition"`
	YPosition   string `json:"yPosition"`
}

type tabs struct {
	SignHereTabs []signHereTab `json:"signHereTabs"`
}

type recipientSigner struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
	ClientUserID string `json:"clientUserId"`
	Tabs         tabs   `json:"tabs"`
}

type recipients struct {
	Signers []recipientSigner `json:"signers"`
}

type envelopeEvent struct {
	EnvelopeEventStatusCode string `json:"envelopeEventStatusCode"`
}

type eventNotification struct {
	URL                   string          `json:"url"`
	LoggingEnabled        string          `json:"loggingEnabled"`
	RequireAcknowledgment string          `json:"requireAcknowledgment"`
	EnvelopeEvents        []envelopeEvent `json:"envelopeEvents"`
}

type envelopeDefinition struct {
	EmailSubject      string             `json:"emailSubject"`
	Documents         []document         `json:"documents"`
	Recipients        recipients         `json:"recipients"`
	EventNotification *eventNotification `json:"eventNotification,omitempty"`
	Status            string             `json:"status"`
}

type envelopeSummary struct {
	EnvelopeID string `json:"envelopeId"`
}

type recipientViewRequest struct {
	AuthenticationMethod string `json:"authenticationMethod"`
	ClientUserID         string `json:"clientUserId"`
	RecipientID          string `json:"recipientId"`
	ReturnURL            string `json:"returnUrl"`
	UserName             string `json:"userName"`
	Email                string `json:"email"`
}

type recipientViewResponse struct {
	URL string `json:"url"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
