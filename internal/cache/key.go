package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// RequestKey derives a stable cache key for one logical API request.
// Bodies are serialized with encoding/json, which writes map keys in
// sorted order, so two bodies differing only in field order produce the
// same key. md5 is used for key compaction, not security.
func RequestKey(endpoint, method string, body any) string {
	payload, err := json.Marshal(body)
	if err != nil {
		// Unmarshalable bodies still need a deterministic key
		payload = []byte(fmt.Sprintf("%#v", body))
	}

	sum := md5.Sum([]byte(method + " " + endpoint + " " + string(payload)))
	return "call:" + hex.EncodeToString(sum[:])
}
