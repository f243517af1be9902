package mpesa

import (
	"encoding/base64"
	"time"
)

// timestampLayout is the gateway's YYYYMMDDHHmmss format.
const timestampLayout = "20060102150405"

// eat is East Africa Time; the gateway stamps everything in it.
var eat = time.FixedZone("EAT", 3*60*60)

// Timestamp formats t the way the gateway expects in push and query requests.
func Timestamp(t time.Time) string {
	return t.In(eat).Format(timestampLayout)
}

// ParseTimestamp parses a gateway timestamp such as 20191219102115.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, s, eat)
}

// Password builds the request password: base64(shortcode + passkey + timestamp).
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}
