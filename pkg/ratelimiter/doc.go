// Package ratelimiter counts attempts per key inside a fixed decay window.
//
// The window opens with the first hit on a key and closes Decay later; the
// counter then starts from zero again. This is the model used for login
// throttling (five failed attempts per credential and IP) and for simple
// per-client request limits.
//
//	limiter, err := ratelimiter.New(ratelimiter.NewMemoryStore(),
//		ratelimiter.WithMaxAttempts(5),
//		ratelimiter.WithDecay(time.Minute),
//	)
//
//	res, err := limiter.Attempt(ctx, key)
//	if err != nil {
//		return err
//	}
//	if !res.Allowed() {
//		return fmt.Errorf("retry in %s", res.RetryAfter())
//	}
//	if passwordOK {
//		_ = limiter.Clear(ctx, key)
//	}
//
// Attempt counts and checks in one store increment. TooManyAttempts followed
// by Hit leaves a gap in which concurrent callers all pass the check.
//
// Counters live in a Store. MemoryStore keeps them in process and needs its
// cleanup loop running (Start or Run); RedisStore shares them across
// instances.
package ratelimiter
