package providers

import (
	"fmt"
	"tally/internal/structures"
	"time"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (c *CnfValidator) Validate() error {
	v := validate.Struct(c.conf)
	if !v.Validate() {
		return v.Errors
	}
	if _, err := time.LoadLocation(c.conf.Counter.Timezone); err != nil {
		return fmt.Errorf("counter.timezone: %w", err)
	}
	if c.conf.Activity.RecentLimit > c.conf.Activity.MaxLimit {
		return fmt.Errorf("activity.recentLimit (%d) exceeds activity.maxLimit (%d)", c.conf.Activity.RecentLimit, c.conf.Activity.MaxLimit)
	}
	if c.conf.Activity.Retention > 0 && c.conf.Activity.ArchiveDir == "" {
		return fmt.Errorf("activity.archiveDir is required when activity.retention is set")
	}
	if c.conf.Auth.Enabled && len(c.conf.Auth.Tokens) == 0 {
		return fmt.Errorf("auth.tokens must not be empty when auth is enabled")
	}
	return nil
}
