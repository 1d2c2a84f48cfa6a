package services

import "time"

// now is replaceable in tests that assert on timestamps.
var now = time.Now
