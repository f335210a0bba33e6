package mqtt

// Topic suffixes below the configured prefix.
const (
	topicCurrent      = "/current"
	topicTarget       = "/target"
	topicObstruction  = "/obstruction"
	topicAvailability = "/availability"
	topicTargetSet    = "/target/set"
)

// Availability payloads.
const (
	availabilityOnline  = "online"
	availabilityOffline = "offline"
)
