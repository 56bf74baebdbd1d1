package timeutil

import "time"

// Timestamp layouts used on the wire
const (
	// ProviderLayout is YYYYMMDDHHmmss, used in express passwords and payloads
	ProviderLayout = "20060102150405"

	// DateTimeLayout is used by bill manager invoice and reconciliation dates
	DateTimeLayout = "2006-01-02 15:04:05"
)

// EastAfrica is East Africa Time (UTC+3, no daylight saving).
// The provider interprets every timestamp in this zone.
var EastAfrica = time.FixedZone("EAT", 3*60*60)

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// ProviderTimestamp formats t as an East Africa Time YYYYMMDDHHmmss string
func ProviderTimestamp(t time.Time) string {
	return t.In(EastAfrica).Format(ProviderLayout)
}

// ParseProviderTimestamp parses a YYYYMMDDHHmmss string in East Africa Time and returns a UTC time
func ParseProviderTimestamp(value string) (time.Time, error) {
	t, err := time.ParseInLocation(ProviderLayout, value, EastAfrica)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatDateTime formats t in East Africa Time using DateTimeLayout
func FormatDateTime(t time.Time) string {
	return t.In(EastAfrica).Format(DateTimeLayout)
}
