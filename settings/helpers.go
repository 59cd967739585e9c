package settings

import (
	"net/url"
	"time"

	"github.com/ordishs/gocore"
)

func getString(key, defaultValue string) string {
	value, found := gocore.Config().Get(key)
	if !found {
		return defaultValue
	}

	return value
}

func getInt(key string, defaultValue int) int {
	value, found := gocore.Config().GetInt(key)
	if !found {
		return defaultValue
	}

	return value
}

// getDuration reads an integer count of unit.
func getDuration(key string, defaultValue int, unit time.Duration) time.Duration {
	return time.Duration(getInt(key, defaultValue)) * unit
}

func getURL(key, defaultValue string) *url.URL {
	value, err, _ := gocore.Config().GetURL(key, defaultValue)
	if err != nil || value == nil {
		value, _ = url.Parse(defaultValue)
	}

	return value
}
