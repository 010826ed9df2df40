package mpesa

import "encoding/json"

// CallbackEnvelope is the STK push result Safaricom POSTs to the callback
// URL. Only the transaction reference and result code matter to
// reconciliation; metadata is carried through opaquely.
type CallbackEnvelope struct {
	Body struct {
		STKCallback struct {
			MerchantRequestID string            `json:"MerchantRequestID"`
			CheckoutRequestID string            `json:"CheckoutRequestID"`
			ResultCode        int               `json:"ResultCode"`
			ResultDesc        string            `json:"ResultDesc"`
			CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type CallbackMetadata struct {
	Item []struct {
		Name  string          `json:"Name"`
		Value json.RawMessage `json:"Value,omitempty"`
	} `json:"Item"`
}

// Succeeded reports whether the push completed with payment.
func (e *CallbackEnvelope) Succeeded() bool {
	return e.Body.STKCallback.ResultCode == 0
}

// Reference returns the provider transaction reference.
func (e *CallbackEnvelope) Reference() string {
	return e.Body.STKCallback.CheckoutRequestID
}

// Ack is the response Safaricom expects. Anything other than ResultCode 0
// triggers retries, so handlers always acknowledge success.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func AckOK() Ack {
	return Ack{ResultCode: 0, ResultDesc: "Accepted"}
}
