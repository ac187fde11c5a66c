package instance

import "github.com/naili/storefront/pkg/env"

// GetID returns the process instance identifier used in startup logs.
func GetID() string {
	return env.Get("local", "STOREFRONT_INSTANCE_ID", "DYNO", "HOSTNAME")
}
