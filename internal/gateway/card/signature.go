package card

import (
	"time"

	"github.com/stripe/stripe-go/v76/webhook"
)

const SignatureHeader = "Stripe-Signature"

var (
	ErrNoSignature       = webhook.ErrNotSigned
	ErrBadHeader         = webhook.ErrInvalidHeader
	ErrSignatureMismatch = webhook.ErrNoValidSignature
	ErrSignatureExpired  = webhook.ErrTooOld
)

// VerifySignature checks a "t=<unix>,v1=<hex>[,v1=<hex>]" header against the
// raw payload. Any v1 entry matching is enough, so secrets can be rotated.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	return webhook.ValidatePayloadWithTolerance(payload, header, secret, tolerance)
}

// Sign returns the header value for payload signed at t, as the gateway
// would send it. Used to replay deliveries locally.
func Sign(payload []byte, secret string, t time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: t,
	}).Header
}
