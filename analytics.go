package asqlite

import (
	"os"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/posthog/posthog-go"
)

const (
	posthogAPIKey = "phc_Jd2qfqwLe81VRqozDsU1fPGqKZSxY3nTxJ0CoWhjfJk"
	posthogHost   = "https://us.i.posthog.com"
)

var (
	analyticsClient      posthog.Client
	analyticsOnce        sync.Once
	analyticsEnabled     = true
	analyticsInitialized = false
	analyticsDistinctID  string

	// Identical error events are reported once per process within the
	// window; repeated failures in a retry loop would otherwise flood.
	analyticsSeen *lru.Cache[string, struct{}]
)

// initAnalytics initializes the PostHog client (lazy, called once).
func initAnalytics() {
	analyticsOnce.Do(func() {
		if os.Getenv("ASQLITE_DISABLE_ANALYTICS") == "true" {
			analyticsEnabled = false
			return
		}

		client, err := posthog.NewWithConfig(
			posthogAPIKey,
			posthog.Config{
				Endpoint: posthogHost,
			},
		)
		if err != nil {
			analyticsEnabled = false
			return
		}

		analyticsClient = client
		// Anonymous per-process id; no user identity is collected.
		analyticsDistinctID = uuid.NewString()
		analyticsSeen, _ = lru.New[string, struct{}](256)
		analyticsInitialized = true
	})
}

// trackEvent sends an event to PostHog with static SDK metadata only.
func trackEvent(eventName string, properties map[string]interface{}) {
	initAnalytics()

	if !analyticsEnabled || !analyticsInitialized {
		return
	}

	if properties == nil {
		properties = make(map[string]interface{})
	}
	properties["sdk_version"] = Version
	properties["sdk_language"] = "go"

	// Enqueue event (non-blocking)
	_ = analyticsClient.Enqueue(posthog.Capture{
		DistinctId: analyticsDistinctID,
		Event:      eventName,
		Properties: properties,
	})
}

// trackConnectionOpened tracks a successful connection open.
func trackConnectionOpened() {
	trackEvent("connection_opened", nil)
}

// trackError tracks error events by type and location, de-duplicated per
// process.
func trackError(errorType, location string) {
	initAnalytics()
	if !shouldReport(errorType + "/" + location) {
		return
	}
	trackEvent(errorType, map[string]interface{}{
		"error_type": errorType,
		"location":   location,
	})
}

// shouldReport is true for the first occurrence of an error key within the
// dedup window.
func shouldReport(key string) bool {
	if analyticsSeen == nil {
		return true
	}
	found, _ := analyticsSeen.ContainsOrAdd(key, struct{}{})
	return !found
}

// closeAnalytics closes the PostHog client (called on shutdown).
func closeAnalytics() {
	if analyticsInitialized && analyticsClient != nil {
		_ = analyticsClient.Close()
	}
}
