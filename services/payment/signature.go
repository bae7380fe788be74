package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Sign computes the gateway's HMAC-SHA256 signature over
// orderID + amount + referenceID + status, hex encoded. Amount is
// formatted with two decimal places to match the gateway.
func Sign(secret, orderID string, amount float64, referenceID, status string) string {
	payload := orderID + strconv.FormatFloat(amount, 'f', 2, 64) + referenceID + status

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a client-supplied signature in constant time.
func VerifySignature(secret, orderID string, amount float64, referenceID, status, signature string) bool {
	expected := Sign(secret, orderID, amount, referenceID, status)
	return hmac.Equal([]byte(expected), []byte(signature))
}
