// Package services implements the device engine's workers: the pairing state
// machine, the action catalog cache, the throttle, the trigger pipeline and
// the offline queue.
package services
