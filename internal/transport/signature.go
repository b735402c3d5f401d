package transport

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"sort"
)

// Sign computes the webhook signature for a callback URL and its form
// parameters: base64(HMAC-SHA1(secret, url + sorted key+value pairs)).
func Sign(secret, callbackURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(callbackURL))
	for _, k := range keys {
		mac.Write([]byte(k))
		mac.Write([]byte(params[k]))
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an inbound webhook signature in constant time.
func VerifySignature(secret, callbackURL string, params map[string]string, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, callbackURL, params)
	return hmac.Equal([]byte(expected), []byte(signature))
}
