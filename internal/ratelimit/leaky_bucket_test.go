/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type LeakyBucketLimiterTestSuite struct {
	suite.Suite
}

func TestLeakyBucketLimiter(t *testing.T) {
	suite.Run(t, new(LeakyBucketLimiterTestSuite))
}

func (ts *LeakyBucketLimiterTestSuite) TestBurstThenReject() {
	limiter, err := NewLeakyBucketLimiter(Rate{Count: 1, Duration: time.Minute}, 1, 100)
	ts.Require().NoError(err)

	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 2; i++ {
		d, err := limiter.CheckAndRecord(ctx, "10.0.0.1", now)
		ts.Require().NoError(err)
		ts.True(d.Allow, "request #%d", i+1)
		ts.Equal(2, d.Limit)
		ts.Zero(d.RetryAfter)
	}

	d, err := limiter.CheckAndRecord(ctx, "10.0.0.1", now)
	ts.Require().NoError(err)
	ts.False(d.Allow)
	ts.Equal(0, d.Remaining)
	ts.Greater(d.RetryAfter, 50*time.Second)
	ts.GreaterOrEqual(d.RetryAfterSeconds(), 51)
	ts.True(d.ResetAt.After(now))

	d, err = limiter.CheckAndRecord(ctx, "10.0.0.2", now)
	ts.Require().NoError(err)
	ts.True(d.Allow)
}

func (ts *LeakyBucketLimiterTestSuite) TestInvalidQuota() {
	_, err := NewLeakyBucketLimiter(Rate{Count: 1, Duration: time.Second}, -1, 10)
	ts.Error(err)
}
